package program

import "errors"

// Operation failures. Every handler returns one of these wrapped with %w and
// a detail message; none of them leave partial state behind.
var (
	ErrAddressMismatch  = errors.New("address mismatch")
	ErrAlreadyExists    = errors.New("account already exists")
	ErrNotFound         = errors.New("account not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrSelfRelation     = errors.New("self relation")
	ErrInvalidRole      = errors.New("invalid role")
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrNameTooLong      = errors.New("name too long")
	ErrMessageTooLong   = errors.New("message too long")
	ErrInvalidAccount   = errors.New("invalid account data")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrAddressMismatch, "AddressMismatch"},
	{ErrAlreadyExists, "AlreadyExists"},
	{ErrNotFound, "NotFound"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrSelfRelation, "SelfRelationError"},
	{ErrInvalidRole, "InvalidRole"},
	{ErrCapacityExceeded, "CapacityExceeded"},
	{ErrNameTooLong, "NameTooLong"},
	{ErrMessageTooLong, "MessageTooLong"},
	{ErrInvalidAccount, "InvalidAccount"},
}

// Code returns the stable error kind of err, or "" if err is not an
// operation failure.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}
