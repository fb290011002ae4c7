package hcs12

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAssemblyNotFound      = errors.New("failed to load assembly")
	ErrInvalidAssemblyFormat = errors.New("invalid assembly format")
	ErrAssemblyParse         = errors.New("failed to parse assembly")
	ErrForeignProtocol       = errors.New("message is not an hcs-12 message")
	ErrContentNotFound       = errors.New("content not found")
)

// ValidationError reports every problem found in a registration document.
type ValidationError struct {
	Message  string
	Problems []string
}

func (errorValue *ValidationError) Error() string {
	if len(errorValue.Problems) == 0 {
		return errorValue.Message
	}
	return fmt.Sprintf("%s: %s", errorValue.Message, strings.Join(errorValue.Problems, "; "))
}

func newValidationError(message string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{
		Message:  message,
		Problems: append([]string{}, problems...),
	}
}

// SyncError is returned by Registry.Sync. The registry's local state is unchanged when it is returned.
type SyncError struct {
	RegistryType RegistryType
	TopicID      string
	Err          error
}

func (errorValue *SyncError) Error() string {
	return fmt.Sprintf("failed to sync %s registry %s: %v", errorValue.RegistryType, errorValue.TopicID, errorValue.Err)
}

func (errorValue *SyncError) Unwrap() error {
	return errorValue.Err
}
