package core

import (
	"time"

	"github.com/google/uuid"
)

// generateID creates a unique ID for memories and edges
func generateID() string {
	return uuid.NewString()
}

// timeNow returns the current time (useful for testing)
var timeNow = time.Now
