package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-multierror"
)

// UnboundedDepth disables truncation of inner-error chains in the envelope.
const UnboundedDepth = -1

// ErrorResponse is the JSON envelope returned on the wire.
type ErrorResponse struct {
	Error *ErrorBody `json:"error"`
}

// ErrorBody carries one error record and, optionally, the error it wraps.
type ErrorBody struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Target     string      `json:"target,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	InnerError *ErrorBody  `json:"innerError,omitempty"`
}

// HTTPStatus returns the stable HTTP status code for an error kind.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists, KindWouldCreateCycle:
		return http.StatusConflict
	case KindCacheEmpty, KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindEventNotCached:
		return http.StatusNotFound
	case KindPersistentStorageEmpty:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode returns the stable gRPC status code number for an error kind.
func GRPCCode(kind Kind) int {
	switch kind {
	case KindInvalidArgument:
		return 3 // InvalidArgument
	case KindNotFound, KindEventNotCached, KindPersistentStorageEmpty:
		return 5 // NotFound
	case KindAlreadyExists, KindWouldCreateCycle:
		return 6 // AlreadyExists
	case KindCacheEmpty, KindServiceUnavailable:
		return 14 // Unavailable
	default:
		return 13 // Internal
	}
}

// ToResponse converts an error to its wire envelope, nesting wrapped errors as
// innerError records up to maxDepth levels (UnboundedDepth for no limit).
// Multi-error containers are flattened into InnerException{i}Code/Message
// attributes rather than nested.
func ToResponse(err error, maxDepth int) *ErrorResponse {
	return &ErrorResponse{Error: toBody(err, maxDepth)}
}

func toBody(err error, depth int) *ErrorBody {
	if err == nil {
		return nil
	}

	var merr *multierror.Error
	if errors.As(err, &merr) {
		return flattenBody(merr)
	}

	body := &ErrorBody{
		Code:    string(KindInternal),
		Message: err.Error(),
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		body.Code = string(appErr.Kind)
		body.Message = appErr.Message
		body.Target = appErr.Target
		body.Attributes = appErr.Attributes
	}

	if depth != 0 {
		if inner := errors.Unwrap(err); inner != nil {
			body.InnerError = toBody(inner, depth-1)
		}
	}

	return body
}

func flattenBody(merr *multierror.Error) *ErrorBody {
	body := &ErrorBody{
		Code:    string(KindInternal),
		Message: fmt.Sprintf("%d errors occurred", len(merr.Errors)),
	}
	for i, child := range merr.Errors {
		body.Attributes = append(body.Attributes,
			Attribute{Name: fmt.Sprintf("InnerException%dCode", i), Value: string(KindOf(child))},
			Attribute{Name: fmt.Sprintf("InnerException%dMessage", i), Value: child.Error()},
		)
	}
	return body
}

// FromResponse reconstructs a client-side error from a wire envelope.
func FromResponse(resp *ErrorResponse) error {
	if resp == nil || resp.Error == nil {
		return nil
	}
	return fromBody(resp.Error)
}

func fromBody(body *ErrorBody) *Error {
	err := &Error{
		Kind:       Kind(body.Code),
		Message:    body.Message,
		Target:     body.Target,
		Attributes: body.Attributes,
	}
	switch err.Kind {
	case KindInvalidArgument, KindNotFound, KindAlreadyExists, KindWouldCreateCycle,
		KindCacheEmpty, KindEventNotCached, KindPersistentStorageEmpty,
		KindReaderRefreshFailed, KindServiceUnavailable, KindInternal:
	default:
		// Unknown codes from newer peers degrade to Internal but keep the
		// original code as an attribute.
		err.Attributes = append(err.Attributes, Attribute{Name: "OriginalCode", Value: body.Code})
		err.Kind = KindInternal
	}
	if body.InnerError != nil {
		err.Err = fromBody(body.InnerError)
	}
	return err
}
