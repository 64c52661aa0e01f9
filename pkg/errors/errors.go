package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeConfiguration represents configuration errors. The only fatal type.
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeNavigation represents page navigation failures
	ErrorTypeNavigation ErrorType = "navigation"
	// ErrorTypeScan represents failures while harvesting links from a page
	ErrorTypeScan ErrorType = "scan"
	// ErrorTypeSourceFeed represents source list loading errors
	ErrorTypeSourceFeed ErrorType = "source_feed"
	// ErrorTypeState represents seen-state persistence errors
	ErrorTypeState ErrorType = "state"
	// ErrorTypeNotification represents notification delivery errors
	ErrorTypeNotification ErrorType = "notification"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
)

// RelayError represents an error raised while relaying giveaways
type RelayError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *RelayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *RelayError) Unwrap() error {
	return e.Err
}

// New creates a new RelayError
func New(errType ErrorType, source, message string, err error) *RelayError {
	return &RelayError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *RelayError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewNavigation creates a new navigation error
func NewNavigation(source, message string, err error) *RelayError {
	return New(ErrorTypeNavigation, source, message, err)
}

// NewScan creates a new scan error
func NewScan(source, message string, err error) *RelayError {
	return New(ErrorTypeScan, source, message, err)
}

// NewSourceFeed creates a new source feed error
func NewSourceFeed(source, message string, err error) *RelayError {
	return New(ErrorTypeSourceFeed, source, message, err)
}

// NewState creates a new state error
func NewState(message string, err error) *RelayError {
	return New(ErrorTypeState, "", message, err)
}

// NewNotification creates a new notification error
func NewNotification(source, message string, err error) *RelayError {
	return New(ErrorTypeNotification, source, message, err)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *RelayError {
	return New(ErrorTypeCache, source, message, err)
}
