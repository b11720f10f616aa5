package util

import "github.com/google/uuid"

// NewID returns a random UUID string used for runs, events and sessions.
func NewID() string { return uuid.NewString() }
