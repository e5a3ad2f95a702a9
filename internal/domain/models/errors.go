package models

import (
	"errors"
	"fmt"
)

// StoreErrorKind вид ошибки хранилища
type StoreErrorKind string

const (
	StoreUnavailable StoreErrorKind = "unavailable"
	StoreConflict    StoreErrorKind = "conflict"
	StoreNotFound    StoreErrorKind = "not_found"
)

// StoreError ошибка на границе хранилища
type StoreError struct {
	Kind StoreErrorKind
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("store %s: %s", e.Op, e.Kind)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError создает ошибку хранилища
func NewStoreError(kind StoreErrorKind, op string, err error) *StoreError {
	return &StoreError{Kind: kind, Op: op, Err: err}
}

// RemoteErrorKind вид ошибки удаленного вызова
type RemoteErrorKind string

const (
	RemoteTimeout  RemoteErrorKind = "timeout"
	RemoteRejected RemoteErrorKind = "rejected"
	RemoteUnknown  RemoteErrorKind = "unknown"
)

// RemoteError ошибка вызова API поставщика или хаба
type RemoteError struct {
	Kind RemoteErrorKind
	Op   string
	Err  error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("remote %s: %s", e.Op, e.Kind)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError создает ошибку удаленного вызова
func NewRemoteError(kind RemoteErrorKind, op string, err error) *RemoteError {
	return &RemoteError{Kind: kind, Op: op, Err: err}
}

// PreconditionKind вид нарушенного предусловия
type PreconditionKind string

const (
	AlreadyInFlight PreconditionKind = "already_in_flight"
	EntityNotFound  PreconditionKind = "entity_not_found"
)

var (
	// ErrAlreadyInFlight операция для сущности уже выполняется
	ErrAlreadyInFlight = errors.New("operation already in flight")
	// ErrEntityNotFound сущность не найдена
	ErrEntityNotFound = errors.New("entity not found")
)

// PreconditionError отказ оркестратора без побочных эффектов
type PreconditionError struct {
	Kind     PreconditionKind
	EntityID string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed for %q: %s", e.EntityID, e.Kind)
}

// Is позволяет сравнивать через errors.Is с ErrAlreadyInFlight и ErrEntityNotFound
func (e *PreconditionError) Is(target error) bool {
	switch target {
	case ErrAlreadyInFlight:
		return e.Kind == AlreadyInFlight
	case ErrEntityNotFound:
		return e.Kind == EntityNotFound
	}
	return false
}

// IsStoreError проверяет, что в цепочке есть StoreError указанного вида.
// Пустой kind совпадает с любым видом.
func IsStoreError(err error, kind StoreErrorKind) bool {
	var se *StoreError
	if !errors.As(err, &se) {
		return false
	}
	return kind == "" || se.Kind == kind
}

// IsRemoteError проверяет, что в цепочке есть RemoteError указанного вида
func IsRemoteError(err error, kind RemoteErrorKind) bool {
	var re *RemoteError
	if !errors.As(err, &re) {
		return false
	}
	return kind == "" || re.Kind == kind
}

// IsPreconditionError проверяет, что ошибка - отказ по предусловию
func IsPreconditionError(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
