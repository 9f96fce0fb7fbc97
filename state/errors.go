package state

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports a malformed initial state.
	ErrConfiguration = errors.New("invalid store configuration")
	// ErrReaderKeys reports a reader key list that cannot produce a value.
	ErrReaderKeys = errors.New("invalid reader keys")
	// ErrAlreadySubscribed reports a second SubscribeAll without an UnsubscribeAll in between.
	ErrAlreadySubscribed = errors.New("reader already subscribed")
)

// ConfigurationError describes why an initial state was rejected.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
