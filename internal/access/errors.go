package access

// Denial reasons surfaced to API clients alongside the 403 status.
const (
	ReasonNotYourTeam      = "NotYourTeam"
	ReasonCannotCreatePeer = "CannotCreatePeer"
	ReasonCannotModifyPeer = "CannotModifyPeer"
	ReasonNotOwner         = "NotOwner"
	ReasonRoleForbidden    = "RoleForbidden"
)

// Error is an authorization denial with a machine-readable reason.
type Error struct {
	Reason  string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func deny(reason, message string) *Error {
	return &Error{Reason: reason, Message: message}
}
