// Package domain contains the core entities and value objects of the bulk
// invite workflow: candidates, delay ranges, invite history records, the
// authentication outcome and the error taxonomy shared by every layer. It has
// no knowledge of sessions, transports or the messaging platform client.
package domain
