package models

import "fmt"

// ErrorKind is the error taxonomy shared by every stage. It is carried as
// metadata on responses; the user-visible failure is a single message string.
type ErrorKind string

const (
	ErrKindConfig         ErrorKind = "config"
	ErrKindLocation       ErrorKind = "location"
	ErrKindAPIKeyMissing  ErrorKind = "api_key_missing"
	ErrKindAPIKeyInvalid  ErrorKind = "api_key_invalid"
	ErrKindRateLimit      ErrorKind = "rate_limit"
	ErrKindNetwork        ErrorKind = "network"
	ErrKindTimeout        ErrorKind = "timeout"
	ErrKindServer         ErrorKind = "server"
	ErrKindEmptyData      ErrorKind = "empty_data"
	ErrKindDataValidation ErrorKind = "data_validation"
	ErrKindCache          ErrorKind = "cache"
	ErrKindCorpus         ErrorKind = "corpus"
	ErrKindSelection      ErrorKind = "selection"
	ErrKindLLM            ErrorKind = "llm"
)

// PipelineError wraps an error with its taxonomy kind and whether it aborts
// the request.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Fatal   bool
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError builds a fatal pipeline error of the given kind.
func NewPipelineError(kind ErrorKind, message string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Fatal: true, Err: err}
}
