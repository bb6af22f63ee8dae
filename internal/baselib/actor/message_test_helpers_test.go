package actor

// testMsg is a generic message type shared by the package's table-free
// behavior tests (shutdown_test.go, caller_context_test.go, stoppable_test.go,
// watcher_test.go, base_actor_ref_test.go, service_key_ergonomics_test.go):
// a single string payload is enough to exercise Tell/Ask plumbing without
// each test declaring its own type.
type testMsg struct {
	BaseMessage
	data string
}

func (m *testMsg) MessageType() string { return "testMsg" }

// newTestMsg builds a testMsg carrying data.
func newTestMsg(data string) *testMsg {
	return &testMsg{data: data}
}
