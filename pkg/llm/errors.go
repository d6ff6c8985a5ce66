package llm

import "fmt"

// ParseError reports a stream frame whose payload could not be decoded.
// It is recoverable: the frame is skipped and the stream continues.
type ParseError struct {
	Provider string
	Line     string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed frame %q: %v", e.Provider, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
