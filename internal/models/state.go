package models

import (
	"time"

	"github.com/google/uuid"
)

// StageError records a non-fatal failure observed during one pipeline stage.
type StageError struct {
	Message   string    `json:"message"`
	Stage     string    `json:"stage"`
	Kind      ErrorKind `json:"kind,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// GenerationState is the mutable record threaded through the pipeline stages.
// It is owned exclusively by the orchestrator for the duration of one request;
// stages receive it in sequence and never retain it.
type GenerationState struct {
	RequestID string `json:"request_id"`

	// Inputs.
	LocationName    string    `json:"location_name"`
	TargetDatetime  time.Time `json:"target_datetime"`
	LLMProvider     string    `json:"llm_provider"`
	ExcludePrevious bool      `json:"exclude_previous"`

	// Intermediates.
	Location         *LocationCoordinate `json:"location,omitempty"`
	WeatherData      *Forecast           `json:"weather_data,omitempty"`
	PeriodForecasts  []Forecast          `json:"period_forecasts,omitempty"`
	PastComments     []PastComment       `json:"-"`
	SelectedPair     *CommentPair        `json:"selected_pair,omitempty"`
	GeneratedComment string              `json:"generated_comment,omitempty"`

	// Control.
	RetryCount       int               `json:"retry_count"`
	MaxRetryCount    int               `json:"max_retry_count"`
	ValidationResult *ValidationResult `json:"validation_result,omitempty"`
	ShouldRetry      bool              `json:"should_retry"`
	ExcludedPairs    map[string]bool   `json:"-"`

	// Outputs.
	Success      bool           `json:"success"`
	FinalComment string         `json:"final_comment"`
	Metadata     map[string]any `json:"metadata"`

	// Diagnostics.
	Errors   []StageError `json:"errors,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
}

// NewGenerationState builds the per-request state with a fresh request ID.
func NewGenerationState(location string, target time.Time, provider string, maxRetries int) *GenerationState {
	return &GenerationState{
		RequestID:      uuid.NewString(),
		LocationName:   location,
		TargetDatetime: target.In(JST),
		LLMProvider:    provider,
		MaxRetryCount:  maxRetries,
		ExcludedPairs:  make(map[string]bool),
		Metadata:       make(map[string]any),
	}
}

// AddError appends a stage error, stamping it with the current time.
func (s *GenerationState) AddError(stage string, kind ErrorKind, message string) {
	s.Errors = append(s.Errors, StageError{
		Message:   message,
		Stage:     stage,
		Kind:      kind,
		Timestamp: time.Now().In(JST),
	})
}

// AddWarning appends a non-fatal diagnostic.
func (s *GenerationState) AddWarning(message string) {
	s.Warnings = append(s.Warnings, message)
}

// ExcludePair marks a pair so re-selection cannot pick it again.
func (s *GenerationState) ExcludePair(p CommentPair) {
	if s.ExcludedPairs == nil {
		s.ExcludedPairs = make(map[string]bool)
	}
	s.ExcludedPairs[p.Key()] = true
}

// IsExcluded reports whether a pair was already rejected this request.
func (s *GenerationState) IsExcluded(p CommentPair) bool {
	return s.ExcludedPairs[p.Key()]
}
