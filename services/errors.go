package services

import "fmt"

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NotFoundError reports an absent entity.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// PermissionError reports an actor lacking rights over an entity.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	return e.Reason
}

// StateError reports an operation invalid for the entity's current lifecycle
// state. Every rejected transition carries the state it was rejected in.
type StateError struct {
	Entity string
	State  string
	Op     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s in state %q", e.Op, e.Entity, e.State)
}

// ConflictError reports a duplicate bid, participation or review.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// InsufficientBalanceError reports a points or funds shortfall.
type InsufficientBalanceError struct {
	Balance  int64
	Required int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %d, need %d", e.Balance, e.Required)
}
