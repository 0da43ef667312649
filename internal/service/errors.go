package service

import "errors"

// Common service errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("resource not found")
)

// Account service errors
var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrAccountAlreadyExists   = errors.New("account already exists")
	ErrInvalidRegistrationKey = errors.New("invalid registration key")
)

// Matchmaking errors
var (
	ErrAlreadyQueued = errors.New("player already queued")
	ErrPlayerInGame  = errors.New("player is in an active game")
)

// Session errors
var (
	ErrMatchNotFound = errors.New("match not found")
	ErrSessionClosed = errors.New("session manager is shut down")
)
