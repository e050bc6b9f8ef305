// Package supervisor runs the scanning engine as a child process and streams
// its output.
//
// Two reader goroutines drain stdout and stderr and hand chunks to the Run
// goroutine over a single channel. Run forwards stdout chunks to the progress
// callback in arrival order and accumulates both streams into an Invocation.
// Cancellation kills the whole process group so no engine helpers outlive the
// scan.
package supervisor
