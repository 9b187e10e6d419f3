package sources

import "fmt"

// DecodeError reports a vendor payload that did not match the expected shape.
type DecodeError struct {
	Source string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s response: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %s response: %s", e.Source, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(source, reason string, err error) error {
	return &DecodeError{Source: source, Reason: reason, Err: err}
}
