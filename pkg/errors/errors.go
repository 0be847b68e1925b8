package errors

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Kind defines the categories of errors that cross the cluster boundary.
type Kind string

const (
	KindInvalidArgument        Kind = "InvalidArgument"
	KindNotFound               Kind = "NotFound"
	KindAlreadyExists          Kind = "AlreadyExists"
	KindWouldCreateCycle       Kind = "WouldCreateCycle"
	KindCacheEmpty             Kind = "CacheEmpty"
	KindEventNotCached         Kind = "EventNotCached"
	KindPersistentStorageEmpty Kind = "PersistentStorageEmpty"
	KindReaderRefreshFailed    Kind = "ReaderRefreshFailed"
	KindServiceUnavailable     Kind = "ServiceUnavailable"
	KindInternal               Kind = "Internal"
)

// Attribute is a named value attached to an error, typically the offending
// parameter name and its value.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Error is the uniform error type used across the service.
type Error struct {
	Kind       Kind
	Message    string
	Target     string
	Attributes []Attribute
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is and errors.As to work.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithTarget sets the target element the error refers to.
func (e *Error) WithTarget(target string) *Error {
	e.Target = target
	return e
}

// WithAttribute appends a named attribute.
func (e *Error) WithAttribute(name, value string) *Error {
	e.Attributes = append(e.Attributes, Attribute{Name: name, Value: value})
	return e
}

// Constructor functions for each error kind.

// NewInvalidArgument creates a parameter validation error. The parameter name
// is surfaced as an attribute.
func NewInvalidArgument(param, message string) *Error {
	return &Error{
		Kind:       KindInvalidArgument,
		Message:    message,
		Attributes: []Attribute{{Name: "ParameterName", Value: param}},
	}
}

// NewNotFound creates an error for a missing resource of the given kind.
func NewNotFound(resource, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s '%s' does not exist", resource, id),
		Target:  id,
		Attributes: []Attribute{
			{Name: "ResourceType", Value: resource},
			{Name: "ResourceId", Value: id},
		},
	}
}

// NewAlreadyExists creates an error for a duplicate mutation in strict mode.
func NewAlreadyExists(resource, id string) *Error {
	return &Error{
		Kind:    KindAlreadyExists,
		Message: fmt.Sprintf("%s '%s' already exists", resource, id),
		Target:  id,
		Attributes: []Attribute{
			{Name: "ResourceType", Value: resource},
			{Name: "ResourceId", Value: id},
		},
	}
}

// NewWouldCreateCycle creates an error for an edge that would close a cycle
// in the group graph.
func NewWouldCreateCycle(from, to string) *Error {
	return &Error{
		Kind:    KindWouldCreateCycle,
		Message: fmt.Sprintf("adding an edge from '%s' to '%s' would create a circular reference", from, to),
		Attributes: []Attribute{
			{Name: "FromGroup", Value: from},
			{Name: "ToGroup", Value: to},
		},
	}
}

// NewCacheEmpty creates the benign startup-condition error raised when the
// event cache holds no events.
func NewCacheEmpty() *Error {
	return &Error{Kind: KindCacheEmpty, Message: "the event cache is empty"}
}

// NewEventNotCached creates the error raised when the supplied prior event id
// is no longer (or was never) in the cache.
func NewEventNotCached(eventID string) *Error {
	return &Error{
		Kind:       KindEventNotCached,
		Message:    fmt.Sprintf("no event with id '%s' was found in the cache", eventID),
		Attributes: []Attribute{{Name: "EventId", Value: eventID}},
	}
}

// NewPersistentStorageEmpty creates the error raised by Load on an empty store.
func NewPersistentStorageEmpty() *Error {
	return &Error{Kind: KindPersistentStorageEmpty, Message: "persistent storage is empty"}
}

// NewReaderRefreshFailed creates a terminal refresh error wrapping its cause.
func NewReaderRefreshFailed(err error) *Error {
	return &Error{
		Kind:    KindReaderRefreshFailed,
		Message: "failed to refresh the reader node from the event cache",
		Err:     err,
	}
}

// NewServiceUnavailable creates the error returned while the trip switch is
// actuated or a downstream dependency is out.
func NewServiceUnavailable(message string) *Error {
	return &Error{Kind: KindServiceUnavailable, Message: message}
}

// NewInternal creates an internal error wrapping its cause.
func NewInternal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// Wrap wraps an error with additional context, preserving its kind when it is
// already one of ours.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return &Error{
			Kind:       appErr.Kind,
			Message:    fmt.Sprintf("%s: %s", message, appErr.Message),
			Target:     appErr.Target,
			Attributes: appErr.Attributes,
			Err:        err,
		}
	}

	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of an error, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Kind checking helpers.

func IsInvalidArgument(err error) bool { return KindOf(err) == KindInvalidArgument }
func IsNotFound(err error) bool        { return KindOf(err) == KindNotFound }
func IsAlreadyExists(err error) bool   { return KindOf(err) == KindAlreadyExists }
func IsWouldCreateCycle(err error) bool {
	return KindOf(err) == KindWouldCreateCycle
}
func IsCacheEmpty(err error) bool     { return KindOf(err) == KindCacheEmpty }
func IsEventNotCached(err error) bool { return KindOf(err) == KindEventNotCached }
func IsPersistentStorageEmpty(err error) bool {
	return KindOf(err) == KindPersistentStorageEmpty
}
func IsServiceUnavailable(err error) bool { return KindOf(err) == KindServiceUnavailable }

// Append combines errors into a single flattened multi-error.
func Append(err error, errs ...error) error {
	return multierror.Append(err, errs...).ErrorOrNil()
}

// Flatten returns the individual child errors of a multi-error, or the error
// itself as a single-element slice.
func Flatten(err error) []error {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return merr.Errors
	}
	return []error{err}
}
