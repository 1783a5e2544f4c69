package registry

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUnauthorized = errors.New("wrong room password")
	ErrForbidden    = errors.New("only the room owner or an admin may do this")
)
