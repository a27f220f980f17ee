// Package result provides a tagged success/failure value for operations whose
// failures are part of the normal contract (a provider refused a message, a
// template does not exist) rather than exceptional errors.
package result

import (
	"encoding/json"
	"fmt"
)

// Result holds either a value of type T or a failure message with an optional
// underlying cause. The zero value is a failure with an empty message.
type Result[T any] struct {
	ok    bool
	value T
	msg   string
	cause error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{ok: true, value: v}
}

// Fail builds a failed result carrying a human-readable message.
func Fail[T any](msg string) Result[T] {
	return Result[T]{msg: msg}
}

// Failf is Fail with formatting.
func Failf[T any](format string, args ...interface{}) Result[T] {
	return Result[T]{msg: fmt.Sprintf(format, args...)}
}

// FromError builds a failed result from err. A nil err yields a failure with
// the message "unknown error" so callers never observe an Ok without a value.
func FromError[T any](err error) Result[T] {
	if err == nil {
		return Result[T]{msg: "unknown error"}
	}
	return Result[T]{msg: err.Error(), cause: err}
}

func (r Result[T]) IsOk() bool { return r.ok }

// Value returns the wrapped value and whether the result is a success.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.ok
}

// Message returns the failure message, or "" for a success.
func (r Result[T]) Message() string {
	if r.ok {
		return ""
	}
	return r.msg
}

// Err returns the failure as an error, or nil for a success.
func (r Result[T]) Err() error {
	if r.ok {
		return nil
	}
	if r.cause != nil {
		return r.cause
	}
	return fmt.Errorf("%s", r.msg)
}

// Match calls onOk or onFail depending on the variant.
func Match[T, U any](r Result[T], onOk func(T) U, onFail func(string) U) U {
	if r.ok {
		return onOk(r.value)
	}
	return onFail(r.msg)
}

type wire[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// MarshalJSON renders {"success":true,"data":...} or
// {"success":false,"message":"..."}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.ok {
		return json.Marshal(wire[T]{Success: true, Data: &r.value})
	}
	return json.Marshal(wire[T]{Message: r.msg})
}
