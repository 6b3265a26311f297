package utils

import (
	"strings"

	"github.com/google/uuid"
)

// TripCodeLength is the length of generated trip codes
const TripCodeLength = 8

// NewID returns a random identifier for destinations, flights, accommodations
// and attempts
func NewID() string {
	return uuid.NewString()
}

// NewClientID returns a random identifier for this process as a remote writer
func NewClientID() string {
	return "client-" + uuid.NewString()
}

// GenerateTripCode returns an uppercase alphanumeric trip code
func GenerateTripCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:TripCodeLength])
}
