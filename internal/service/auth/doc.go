// Package auth issues and verifies the signed session tokens that stand in
// for registry session ids at the HTTP boundary.
package auth
