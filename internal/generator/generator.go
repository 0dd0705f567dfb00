// Package generator orchestrates language-model calls that produce a
// publishable artifact, with bounded retries and an optional fallback model.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/sivabalan-sv01/tds-project/internal/models"
)

// FallbackModelName marks results produced by the static fallback artifact.
const FallbackModelName = "static-fallback"

// Error wraps a failed generation attempt. Transient errors (timeouts, rate
// limits, 5xx) may succeed on retry; everything else will not.
type Error struct {
	Model     string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generate (%s): %v", e.Model, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether resending the identical trigger may succeed.
func (e *Error) Retryable() bool { return e.Transient }

// Options tunes the orchestrator. Zero values get sane defaults from New.
type Options struct {
	Model            string
	FallbackModel    string        // tried only after the primary is exhausted
	Timeout          time.Duration // per attempt, never per pipeline
	MaxAttempts      int           // per model
	FallbackArtifact bool          // publish a static artifact on exhaustion
}

// Orchestrator drives generation attempts against a Caller.
type Orchestrator struct {
	caller Caller
	opts   Options
}

// New builds an orchestrator.
func New(caller Caller, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	return &Orchestrator{caller: caller, opts: opts}
}

// Generate produces an artifact for req. Total blocking time is bounded by
// MaxAttempts × Timeout per configured model plus backoff waits; the fallback
// model is only consulted after the primary's attempts are exhausted.
func (o *Orchestrator) Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationResult, error) {
	prompt := BuildPrompt(req)

	candidates := []string{o.opts.Model}
	if fb := o.opts.FallbackModel; fb != "" && fb != o.opts.Model {
		candidates = append(candidates, fb)
	}

	var lastErr error
	for _, model := range candidates {
		out, err := o.tryModel(ctx, model, prompt)
		if err == nil {
			return models.GenerationResult{
				Artifact:  ParseOutput(out, req),
				ModelUsed: model,
			}, nil
		}
		lastErr = err

		var ge *Error
		if errors.As(err, &ge) && !ge.Transient {
			// Auth or bad-request class; the fallback model shares the same
			// credential and prompt, so don't burn attempts on it.
			break
		}
		if ctx.Err() != nil {
			break
		}
	}

	if o.opts.FallbackArtifact && ctx.Err() == nil {
		log.Printf("generation exhausted, publishing static fallback artifact: %v", lastErr)
		return models.GenerationResult{
			Artifact:  FallbackArtifact(req),
			ModelUsed: FallbackModelName,
			Fallback:  true,
		}, nil
	}
	return models.GenerationResult{}, lastErr
}

// tryModel issues up to MaxAttempts calls against one model, with exponential
// backoff between transient failures. Each attempt gets its own timeout.
func (o *Orchestrator) tryModel(ctx context.Context, model, prompt string) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.Reset()

	var lastErr error
	for attempt := 1; attempt <= o.opts.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
		out, err := o.caller.Call(callCtx, model, prompt)
		cancel()

		if err == nil {
			return out, nil
		}
		lastErr = classify(model, err)

		var ge *Error
		if errors.As(lastErr, &ge) && !ge.Transient {
			return "", lastErr
		}
		if ctx.Err() != nil {
			// Caller deadline reached; abandon further retries.
			return "", lastErr
		}
		if attempt < o.opts.MaxAttempts {
			log.Printf("generation attempt %d/%d failed (%s), retrying: %v",
				attempt, o.opts.MaxAttempts, model, err)
			select {
			case <-time.After(bo.NextBackOff()):
			case <-ctx.Done():
				return "", lastErr
			}
		}
	}
	return "", lastErr
}

// classify converts an upstream error into the transient/fatal taxonomy.
func classify(model string, err error) error {
	transient := true

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		transient = transientStatus(apiErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		transient = transientStatus(reqErr.HTTPStatusCode)
	}
	// Timeouts and transport failures stay transient by default.

	return &Error{Model: model, Transient: transient, Err: err}
}

func transientStatus(code int) bool {
	switch {
	case code == 0: // transport-level failure, no HTTP status
		return true
	case code == 408, code == 429:
		return true
	case code >= 500:
		return true
	default: // remaining 4xx: auth, permission, malformed request
		return false
	}
}
