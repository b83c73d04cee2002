package travel

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                       // 1: Operation failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the service.
	RetCInvalidOperation                    // 3: Invalid operation.
	RetCNotFound                            // 4: No record with the requested id exists.
	RetCEncodingFault                       // 5: A record could not be encoded or decoded.
	RetCAllocatorOverflow                   // 6: The identifier space is exhausted.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCNotFound:
		return "NotFound"
	case RetCEncodingFault:
		return "EncodingFault"
	case RetCAllocatorOverflow:
		return "AllocatorOverflow"
	default:
		return fmt.Sprintf("Unknown(%d)", uint64(c))
	}
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps a return code and a message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("TravelError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// CodeOf returns the return code carried by err.
// nil maps to RetCSuccess and foreign errors to RetCInternalError.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return RetCInternalError
}

// IsNotFound reports whether err signals a missing record
func IsNotFound(err error) bool {
	return CodeOf(err) == RetCNotFound
}

// --------------------------------------------------------------------------
// Not Found Errors
// --------------------------------------------------------------------------

func ErrReadNotFound(id uint64) *Error {
	return NewError(RetCNotFound, fmt.Sprintf("travel experience with id=%d not found", id))
}

func ErrReplaceNotFound(id uint64) *Error {
	return NewError(RetCNotFound, fmt.Sprintf("couldn't update travel experience with id=%d. item not found", id))
}

func ErrUpdateDateNotFound(id uint64) *Error {
	return NewError(RetCNotFound, fmt.Sprintf("couldn't update date for travel experience with id=%d. item not found", id))
}

func ErrDeleteNotFound(id uint64) *Error {
	return NewError(RetCNotFound, fmt.Sprintf("couldn't delete travel experience with id=%d. item not found.", id))
}
