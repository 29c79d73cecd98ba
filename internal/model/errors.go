package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAddress   = errors.New("invalid address")
	ErrUnsupportedChain = errors.New("unsupported chain")
)

// InputValidationError reports a malformed input rejected before any computation.
type InputValidationError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *InputValidationError) Unwrap() error {
	return e.Err
}

// UpstreamUnavailableError wraps a collaborator failure with the entity it was serving.
type UpstreamUnavailableError struct {
	Entity string
	Op     string
	Err    error
}

func (e *UpstreamUnavailableError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("upstream unavailable for %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("upstream unavailable for %s (%s): %v", e.Entity, e.Op, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

// Upstream wraps err as an UpstreamUnavailableError unless it already is one.
func Upstream(entity, op string, err error) error {
	if err == nil {
		return nil
	}
	var upstream *UpstreamUnavailableError
	if errors.As(err, &upstream) && upstream.Entity == entity {
		return err
	}
	return &UpstreamUnavailableError{Entity: entity, Op: op, Err: err}
}
