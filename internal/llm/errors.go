package llm

import "fmt"

// InferenceError covers every failure of the vision inference call itself:
// auth rejection, network/timeout, service-side error, empty completion.
type InferenceError struct {
	Detail string
	Err    error
}

func (e *InferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference failed: %s: %v", e.Detail, e.Err)
	}
	return "inference failed: " + e.Detail
}

func (e *InferenceError) Unwrap() error { return e.Err }

// ParseError covers a completion that could not be decoded into the contact
// schema. Kept distinct from InferenceError for diagnostics even though both
// end up on the record's error field.
type ParseError struct {
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse failed: %s: %v", e.Detail, e.Err)
	}
	return "parse failed: " + e.Detail
}

func (e *ParseError) Unwrap() error { return e.Err }
