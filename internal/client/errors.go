package client

import "fmt"

// Kind classifies a failed request.
type Kind int

const (
	// KindInvalid is a request rejected before it was sent.
	KindInvalid Kind = iota + 1
	KindAuth
	KindNotFound
	KindNetwork
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// User-facing messages.
const (
	MsgInvalidContestID = "Invalid contest ID format"
	MsgInvalidToken     = "Invalid or expired token"
	MsgAccessDenied     = "Access denied"
	MsgContestNotFound  = "Contest not found"
	MsgLoadFailed       = "Failed to load standings"
	MsgBadCredentials   = "Invalid username or password"
	MsgLoginFailed      = "Failed to sign in"
)

// Error is returned by every Client method. Message is safe to show to
// users; Err carries the cause when there is one.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
