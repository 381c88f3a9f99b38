package formatting

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrParseFailed is returned when a payload is not a single JSON value of the
// expected shape.
var ErrParseFailed = errors.New("failed to parse payload")

const snippetLength = 120

// ParseJSON decodes exactly one JSON value from data into T. Empty payloads
// and trailing content are rejected.
func ParseJSON[T any](data []byte) (T, error) {
	var result T

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return result, fmt.Errorf("%w: empty payload", ErrParseFailed)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(&result); err != nil {
		return result, fmt.Errorf("%w: %v: %s", ErrParseFailed, err, snippet(trimmed))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return result, fmt.Errorf("%w: trailing content: %s", ErrParseFailed, snippet(trimmed))
	}

	return result, nil
}

func snippet(data []byte) string {
	if len(data) <= snippetLength {
		return string(data)
	}
	return string(data[:snippetLength]) + "..."
}
