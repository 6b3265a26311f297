package usecase

import "errors"

var (
	ErrDestinationNotFound   = errors.New("destination not found")
	ErrFlightNotFound        = errors.New("flight not found")
	ErrAccommodationNotFound = errors.New("accommodation not found")
	ErrNoAttempt             = errors.New("no saved attempt")
	ErrInvalidInput          = errors.New("invalid input")
)
