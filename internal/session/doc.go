// Package session manages the lifetime of authenticated platform sessions.
//
// Every Session owns a messaging.Client and an Executor: a single goroutine
// draining a bounded FIFO queue of work, plus any detached long-running task
// (the background invite job) started through Executor.Go. The client and the
// executor are created together and torn down together by the Registry.
//
// Request handlers never touch a session's client directly. They hand work to
// the session's executor with Submit and wait on the returned Handle, which
// keeps all client traffic of one session ordered and confined to goroutines
// the session controls.
package session
