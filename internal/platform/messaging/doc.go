// Package messaging defines the boundary between the bulk invite engine and
// the messaging platform: the Client interface every platform driver
// implements, the platform error taxonomy and its mapping onto domain errors,
// a rate-limited Client decorator, and an in-memory platform used by the
// "memory" driver and by tests.
//
// A Client is exclusively owned by one session. Implementations are not
// required to be safe for concurrent use beyond what the session executor and
// its invite job need: calls issued from one session are serialized by the
// session executor, except for the concurrent invites of a single batch.
package messaging
