package utils

import "github.com/google/uuid"

// NewRequestID returns a unique id used to correlate transport commands with
// their acknowledgements.
func NewRequestID() string {
	return uuid.NewString()
}
