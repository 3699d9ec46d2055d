package service

// User guidance attached to errors and results. The API layer renders the
// guidance of an error in place of its raw text.
const (
	MsgCodeSent          = "A verification code has been sent to your phone. Please enter the verification code."
	MsgAuthenticated     = "Successfully authenticated"
	MsgAlreadyAuthorized = "Already authorized"
	MsgInvalidCode       = "Invalid code"
	MsgUnsupportedPhone  = "This phone number is not supported. Please try a different phone number."
	MsgNoActiveSession   = "No active session found"
	MsgNotAuthenticated  = "Please complete authentication before continuing"
	MsgNoTargetGroup     = "Scan a target group before inviting participants"
	MsgNoCandidates      = "No participants to invite"
	MsgNoActiveProcess   = "No active process found"
	MsgProcessStopped    = "Process stopped"
	MsgNoJob             = "No invite job found for this session"
)
