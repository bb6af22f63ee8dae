package actor

import "github.com/loomrt/loom/internal/build"

// log is the package-wide logger for the actor runtime, tagged under its
// own sub-system so actor traffic can be filtered independently of the
// dispatcher, timer, and stream packages.
var log = build.NewCtxLog(build.Logger("ACTR"))
