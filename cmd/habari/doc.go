// Command habari runs and inspects the Swahili news broadcaster.
//
// `habari run` drives the fetch, narrate, render, and stream loop in the
// foreground; `start` and `stop` manage it as a background process. The
// remaining commands read state the broadcaster leaves behind: readiness and
// last-cycle status, cycle history, and the JSON run log.
package main
