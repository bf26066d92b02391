package domain

import "errors"

var (
	ErrRoundNotFound   = errors.New("round not found")
	ErrInsightNotFound = errors.New("insight not found")
	ErrAlertNotFound   = errors.New("fraud alert not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrNotInRoom       = errors.New("connection is not in a room")
	ErrInvalidPayload  = errors.New("invalid payload")
)
