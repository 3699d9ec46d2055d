package domain

// AuthOutcome is the result of one step of the two-phase sign-in flow.
type AuthOutcome int

// Possible sign-in outcomes
const (
	AuthFailed AuthOutcome = iota
	AuthAuthorized
	AuthCodeRequired
)

// String returns the outcome name.
func (o AuthOutcome) String() string {
	switch o {
	case AuthAuthorized:
		return "authorized"
	case AuthCodeRequired:
		return "code_required"
	default:
		return "failed"
	}
}

// AuthResult carries an AuthOutcome and, for AuthFailed, the reason. Expected
// sign-in failures (bad code, unsupported number) are reported here rather
// than as errors; errors are reserved for transport failures.
type AuthResult struct {
	Outcome AuthOutcome
	Reason  error
}

// Authorized returns a successful AuthResult.
func Authorized() AuthResult {
	return AuthResult{Outcome: AuthAuthorized}
}

// CodeRequired returns an AuthResult asking for a verification code.
func CodeRequired() AuthResult {
	return AuthResult{Outcome: AuthCodeRequired}
}

// AuthFailedWith returns a failed AuthResult with the given reason.
func AuthFailedWith(reason error) AuthResult {
	return AuthResult{Outcome: AuthFailed, Reason: reason}
}
