package core

import "github.com/pkg/errors"

// ErrKeyNotFound is returned by a KVStore when nothing is stored under a key.
var ErrKeyNotFound = errors.New("key not found")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ConfigError reports a missing or invalid setting needed before any remote call.
type ConfigError struct {
	Key string
	msg string
}

func NewConfigError(key, msg string) error {
	return &ConfigError{Key: key, msg: msg}
}

func (err ConfigError) Error() string {
	return "config " + err.Key + ": " + err.msg
}

func IsConfigError(err error) bool {
	var cErr *ConfigError
	return errors.As(err, &cErr)
}
