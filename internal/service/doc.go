// Package service provides the application operations behind the HTTP API:
// two-phase sign-in, eligibility scans, single and background invites, and
// job control. Every platform call runs on the executor of the session it
// belongs to.
package service
