package errors

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Category represents the type of error.
type Category string

const (
	CategoryConnection Category = "connection"
	CategoryHandshake  Category = "handshake"
	CategoryProtocol   Category = "protocol"
	CategoryScene      Category = "scene"
	CategoryConfig     Category = "config"
	CategoryOutput     Category = "output"
	CategoryCLI        Category = "cli"
)

// Location represents a position in an input file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// BlosprayError is a structured error with location and suggestions.
type BlosprayError struct {
	// Code is a unique error identifier (e.g., "B001").
	Code string

	// Category is the error type (connection, scene, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the input file position where the error occurred.
	Location *Location

	// Context contains surrounding lines of the input file.
	Context []string

	// ContextStart is the line number of Context[0].
	ContextStart int

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *BlosprayError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *BlosprayError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a file position to the error.
func (e *BlosprayError) WithLocation(file string, line, column int) *BlosprayError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context, e.ContextStart = readContextLines(file, line, 2)
	return e
}

// WithLocationFromError extracts a line number from a parser error such
// as "yaml: line 12: mapping values are not allowed in this context".
func (e *BlosprayError) WithLocationFromError(file string, err error) *BlosprayError {
	if err == nil || file == "" {
		return e
	}
	msg := err.Error()
	i := strings.Index(msg, "line ")
	if i < 0 {
		return e
	}
	var line int
	fmt.Sscanf(msg[i+len("line "):], "%d", &line)
	if line > 0 {
		e.WithLocation(file, line, 0)
	}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *BlosprayError) WithSuggestion(s string) *BlosprayError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *BlosprayError) WithDetail(d string) *BlosprayError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *BlosprayError) Wrap(err error) *BlosprayError {
	e.Wrapped = err
	return e
}

// readContextLines returns up to radius lines on either side of target,
// clipped to the file, and the number of the first line returned.
func readContextLines(filename string, target, radius int) ([]string, int) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	first := max(target-radius, 1)
	var lines []string
	scanner := bufio.NewScanner(file)
	for n := 1; scanner.Scan() && n <= target+radius; n++ {
		if n >= first {
			lines = append(lines, scanner.Text())
		}
	}
	if len(lines) == 0 {
		return nil, 0
	}
	return lines, first
}

// New creates a BlosprayError from a registered error code.
func New(code string) *BlosprayError {
	template, ok := registry[code]
	if !ok {
		return &BlosprayError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &BlosprayError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new BlosprayError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *BlosprayError {
	return &BlosprayError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a BlosprayError.
func FromError(err error, code string) *BlosprayError {
	if err == nil {
		return nil
	}
	if be, ok := err.(*BlosprayError); ok {
		return be
	}
	return New(code).Wrap(err)
}
