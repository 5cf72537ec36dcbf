package errors

import (
	"errors"
	"fmt"
)

type Status string

// A call body could not be decoded because its method identity is missing
const MalformedCall Status = "MalformedCall"

// A raw extrinsic slot in a fetched block is structurally absent
const MalformedExtrinsic Status = "MalformedExtrinsic"

// The runtime at this point in chain history does not expose the fee constants
const FeeUnavailable Status = "FeeUnavailable"

// An extrinsic index is past the end of the block
const IndexOutOfRange Status = "IndexOutOfRange"

// An extrinsic index path param is not a non-negative integer
const InvalidIndexFormat Status = "InvalidIndexFormat"

// A block id path param is neither a height nor a block hash
const InvalidBlockID Status = "InvalidBlockId"

// The block, extrinsic, or storage entry could not be found on chain
const NotFound Status = "NotFound"

// A network error occured -- the queried block may be perfectly fine
const NetworkError Status = "NetworkError"

// No outcome for this error known
const UnknownError Status = "UnknownError"

type Error struct {
	Status  Status
	Message string
}

var _ error = &Error{}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

func Errorf(status Status, format string, args ...interface{}) error {
	return &Error{
		Status:  status,
		Message: fmt.Sprintf(format, args...),
	}
}

// Used when a call body is missing its pallet or method identity,
// or a nested call slot holds a placeholder instead of a call.
func MalformedCallf(format string, args ...interface{}) error {
	return &Error{
		Status:  MalformedCall,
		Message: fmt.Sprintf(format, args...),
	}
}

// Used when a raw extrinsic slot is empty in a fetched block.
func MalformedExtrinsicf(format string, args ...interface{}) error {
	return &Error{
		Status:  MalformedExtrinsic,
		Message: fmt.Sprintf(format, args...),
	}
}

func FeeUnavailablef(format string, args ...interface{}) error {
	return &Error{
		Status:  FeeUnavailable,
		Message: fmt.Sprintf(format, args...),
	}
}

func IndexOutOfRangef(format string, args ...interface{}) error {
	return &Error{
		Status:  IndexOutOfRange,
		Message: fmt.Sprintf(format, args...),
	}
}

func InvalidIndexFormatf(format string, args ...interface{}) error {
	return &Error{
		Status:  InvalidIndexFormat,
		Message: fmt.Sprintf(format, args...),
	}
}

func InvalidBlockIDf(format string, args ...interface{}) error {
	return &Error{
		Status:  InvalidBlockID,
		Message: fmt.Sprintf(format, args...),
	}
}

func NotFoundf(format string, args ...interface{}) error {
	return &Error{
		Status:  NotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

func NetworkErrorf(format string, args ...interface{}) error {
	return &Error{
		Status:  NetworkError,
		Message: fmt.Sprintf(format, args...),
	}
}

func Unknownf(format string, args ...interface{}) error {
	return &Error{
		Status:  UnknownError,
		Message: fmt.Sprintf(format, args...),
	}
}

// StatusOf reports the Status attached to err, or UnknownError
// for errors that did not come from this package.
func StatusOf(err error) Status {
	var sidecarErr *Error
	if errors.As(err, &sidecarErr) {
		return sidecarErr.Status
	}
	return UnknownError
}

// MessageOf reports the message attached to err without its status
// prefix, falling back to err.Error() for foreign errors.
func MessageOf(err error) string {
	var sidecarErr *Error
	if errors.As(err, &sidecarErr) {
		return sidecarErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
