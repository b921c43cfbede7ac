package service

import "errors"

// Sentinel errors surfaced by the services. Handlers map these onto HTTP
// status codes; anything else is treated as a store failure.
var (
	ErrInvalidRole        = errors.New("invalid role")
	ErrUserNotFound       = errors.New("user profile not found")
	ErrFarmNotFound       = errors.New("farm not found")
	ErrFarmAlreadyClaimed = errors.New("farm already claimed")
)
