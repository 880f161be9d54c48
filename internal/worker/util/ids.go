package util

import "github.com/google/uuid"

// NewJobID returns an identifier for jobs created by this process
// (runner API and CLI); queued jobs keep the id given by their producer.
func NewJobID() string {
	return uuid.NewString()
}
