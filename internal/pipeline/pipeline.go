// Package pipeline composes admission, deduplication, generation, and
// publishing into one request-scoped transaction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/sivabalan-sv01/tds-project/internal/generator"
	"github.com/sivabalan-sv01/tds-project/internal/ledger"
	"github.com/sivabalan-sv01/tds-project/internal/models"
)

// Generator is the generation capability.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationResult, error)
}

// Publisher is the repository capability. Publish must be idempotent at the
// repository level: existed=true means an equivalent artifact was already
// there and the returned record references it.
type Publisher interface {
	Publish(ctx context.Context, key string, res models.GenerationResult, repo string) (rec models.PublishRecord, existed bool, err error)
	PriorReadme(ctx context.Context, repo string) (string, error)
}

// Status is the terminal state of one pipeline run.
type Status int

const (
	// StatusRecorded means a new artifact was committed.
	StatusRecorded Status = iota
	// StatusSkipped means the work was already done; the record references
	// the existing commit.
	StatusSkipped
	// StatusInProgress means another invocation recently claimed the key and
	// has not finished; the caller should retry later.
	StatusInProgress
	// StatusFailed means the run hit an unrecoverable error.
	StatusFailed
)

// Outcome is what one pipeline run reports back to the HTTP layer.
type Outcome struct {
	Status    Status
	Record    models.PublishRecord
	Err       error
	Retryable bool
}

// Controller owns the request key and ledger entry lifecycle for one
// invocation.
type Controller struct {
	ledger *ledger.Ledger
	gen    Generator
	pub    Publisher
}

// NewController wires the pipeline.
func NewController(led *ledger.Ledger, gen Generator, pub Publisher) *Controller {
	return &Controller{ledger: led, gen: gen, pub: pub}
}

// Run executes the pipeline for one admitted trigger. The ledger is advisory
// throughout: its writes are best-effort and a lookup failure only degrades
// dedup to the publisher's check-before-write.
func (c *Controller) Run(ctx context.Context, key string, req models.GenerateRequest) Outcome {
	state, entry, err := c.ledger.Lookup(ctx, key)
	if err != nil {
		log.Printf("ledger unavailable, degraded mode (publisher check is the dedup guard): %v", err)
		state = ledger.StateUnseen
	}

	switch state {
	case ledger.StateDone:
		return Outcome{
			Status: StatusSkipped,
			Record: models.PublishRecord{Key: key, Repo: entry.Repo, Path: entry.Path, Commit: entry.Commit},
		}
	case ledger.StatePending:
		return Outcome{
			Status:    StatusInProgress,
			Err:       errors.New("request is already being processed"),
			Retryable: true,
		}
	case ledger.StateFailed:
		return Outcome{
			Status:    StatusFailed,
			Err:       fmt.Errorf("recent failure, cooling down: %s", entry.Reason),
			Retryable: true,
		}
	}

	// Claim the key before any generation work so a crash mid-pipeline
	// leaves Pending evidence, not Unseen.
	if err := c.ledger.MarkPending(ctx, key); err != nil {
		log.Printf("ledger mark pending failed (continuing): %v", err)
	}

	repo := TargetRepo(req)
	genReq := c.buildGenerationRequest(ctx, req, repo)

	res, err := c.gen.Generate(ctx, genReq)
	if err != nil {
		c.markFailed(ctx, key, err)
		return Outcome{Status: StatusFailed, Err: err, Retryable: retryable(err)}
	}

	rec, existed, err := c.pub.Publish(ctx, key, res, repo)
	if err != nil {
		c.markFailed(ctx, key, err)
		return Outcome{Status: StatusFailed, Err: err, Retryable: retryable(err)}
	}

	if err := c.ledger.MarkDone(ctx, key, rec.Repo, rec.Path, rec.Commit); err != nil {
		log.Printf("ledger mark done failed (repo state remains authoritative): %v", err)
	}

	if existed {
		return Outcome{Status: StatusSkipped, Record: rec}
	}
	return Outcome{Status: StatusRecorded, Record: rec}
}

// buildGenerationRequest assembles the prompt inputs: decoded attachments and,
// for round 2, the previously published README.
func (c *Controller) buildGenerationRequest(ctx context.Context, req models.GenerateRequest, repo string) models.GenerationRequest {
	saved, err := generator.DecodeAttachments(req.Attachments)
	if err != nil {
		log.Printf("attachment decode failed (continuing without previews): %v", err)
	}

	prev := ""
	if req.Round >= 2 {
		prev, err = c.pub.PriorReadme(ctx, repo)
		if err != nil {
			log.Printf("prior readme fetch failed (continuing without it): %v", err)
			prev = ""
		}
	}

	return models.GenerationRequest{
		Brief:           req.Brief,
		Round:           req.Round,
		Checks:          req.Checks,
		AttachmentsMeta: generator.SummarizeAttachments(saved),
		PrevReadme:      prev,
	}
}

func (c *Controller) markFailed(ctx context.Context, key string, cause error) {
	if err := c.ledger.MarkFailed(ctx, key, cause.Error()); err != nil {
		log.Printf("ledger mark failed failed (continuing): %v", err)
	}
}

// retryable reports whether the caller may safely re-send the identical
// trigger. Upstream errors carry their own classification; a blown deadline
// is always retryable.
func retryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return false
}
