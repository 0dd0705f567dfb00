// Package publisher writes generated artifacts to a GitHub repository. Its
// check-before-write is the authoritative duplicate guard: the dedup ledger
// may be wiped at any time, the repository cannot.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v75/github"

	"github.com/sivabalan-sv01/tds-project/internal/models"
)

// Artifact paths inside the target repository.
const (
	IndexPath  = "index.html"
	ReadmePath = "README.md"
)

// The build key is embedded as the first line of index.html so a later
// invocation can recognize its own artifact even after the ledger is gone.
const (
	keyMarkerPrefix = "<!-- tds-build-key: "
	keyMarkerSuffix = " -->"
)

// Error wraps a failed publish step with the transient/fatal taxonomy.
// Conflict and network failures are transient; auth and permission failures
// are not.
type Error struct {
	Op        string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether resending the identical trigger may succeed.
func (e *Error) Retryable() bool { return e.Transient }

// Options tunes the publisher.
type Options struct {
	Attempts    int  // commit attempts for conflict/network causes
	EnablePages bool // request GitHub Pages after publishing
	PagesWait   time.Duration
}

// Publisher performs idempotent artifact publishes against an API.
type Publisher struct {
	api  API
	opts Options
}

// New builds a publisher.
func New(api API, opts Options) *Publisher {
	if opts.Attempts < 1 {
		opts.Attempts = 3
	}
	if opts.PagesWait <= 0 {
		opts.PagesWait = 30 * time.Second
	}
	return &Publisher{api: api, opts: opts}
}

// Publish writes the artifact for key into repo. When an artifact carrying
// the same build key already exists, it short-circuits to a no-op success
// referencing the existing commit; existed reports which case happened.
func (p *Publisher) Publish(ctx context.Context, key string, res models.GenerationResult, repo string) (models.PublishRecord, bool, error) {
	if err := p.api.EnsureRepo(ctx, repo, "Auto-generated application"); err != nil {
		return models.PublishRecord{}, false, classify("ensure repo", err)
	}

	existing, err := p.api.ReadFile(ctx, repo, IndexPath)
	if err != nil {
		return models.PublishRecord{}, false, classify("read "+IndexPath, err)
	}
	if existing != nil && extractBuildKey(existing.Content) == key {
		// Equivalent artifact already published, likely by an earlier
		// invocation whose ledger entry was lost. Return its reference.
		commit, err := p.api.LatestCommit(ctx, repo, IndexPath)
		if err != nil {
			commit = existing.SHA // blob SHA is still a stable reference
		}
		rec := models.PublishRecord{
			Key:      key,
			Repo:     repo,
			Path:     IndexPath,
			Commit:   commit,
			PagesURL: p.pagesURL(ctx, repo),
		}
		return rec, true, nil
	}

	message := fmt.Sprintf("Publish generated app (model %s)", res.ModelUsed)

	if _, err := p.commitWithRetry(ctx, repo, ReadmePath, []byte(res.Artifact.Readme), message); err != nil {
		return models.PublishRecord{}, false, err
	}

	// index.html goes last: its embedded key is the idempotence witness, so
	// it must only appear once everything else is in place.
	content := []byte(keyMarkerPrefix + key + keyMarkerSuffix + "\n" + res.Artifact.HTML)
	commit, err := p.commitWithRetry(ctx, repo, IndexPath, content, message)
	if err != nil {
		return models.PublishRecord{}, false, err
	}

	rec := models.PublishRecord{
		Key:      key,
		Repo:     repo,
		Path:     IndexPath,
		Commit:   commit,
		PagesURL: p.enablePages(ctx, repo),
	}
	return rec, false, nil
}

// PriorReadme returns the currently published README, or "" when absent.
// Round-2 briefs feed it back into the prompt.
func (p *Publisher) PriorReadme(ctx context.Context, repo string) (string, error) {
	st, err := p.api.ReadFile(ctx, repo, ReadmePath)
	if err != nil {
		return "", classify("read "+ReadmePath, err)
	}
	if st == nil {
		return "", nil
	}
	return string(st.Content), nil
}

// commitWithRetry performs one conditional commit, re-reading the current SHA
// before every attempt so a concurrent writer turns into a retry instead of a
// failure. Only transient causes are retried.
func (p *Publisher) commitWithRetry(ctx context.Context, repo, path string, content []byte, message string) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 300 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.Reset()

	var lastErr error
	for attempt := 1; attempt <= p.opts.Attempts; attempt++ {
		sha := ""
		st, err := p.api.ReadFile(ctx, repo, path)
		if err != nil {
			lastErr = classify("read "+path, err)
		} else {
			if st != nil {
				sha = st.SHA
			}
			commit, err := p.api.CommitFile(ctx, repo, path, content, message, sha)
			if err == nil {
				return commit, nil
			}
			lastErr = classify("commit "+path, err)
		}

		var pe *Error
		if errors.As(lastErr, &pe) && !pe.Transient {
			return "", lastErr
		}
		if ctx.Err() != nil {
			return "", lastErr
		}
		if attempt < p.opts.Attempts {
			select {
			case <-time.After(bo.NextBackOff()):
			case <-ctx.Done():
				return "", lastErr
			}
		}
	}
	return "", lastErr
}

// enablePages requests Pages and polls briefly for the built URL. Strictly
// best-effort: a Pages failure never fails the publish.
func (p *Publisher) enablePages(ctx context.Context, repo string) string {
	if !p.opts.EnablePages {
		return ""
	}
	if err := p.api.EnablePages(ctx, repo); err != nil {
		log.Printf("pages enable failed for %s (continuing): %v", repo, err)
		return ""
	}
	return p.pagesURL(ctx, repo)
}

// pagesURL polls for the published site URL until PagesWait elapses.
func (p *Publisher) pagesURL(ctx context.Context, repo string) string {
	if !p.opts.EnablePages {
		return ""
	}
	deadline := time.Now().Add(p.opts.PagesWait)
	for {
		url, err := p.api.PagesURL(ctx, repo)
		if err != nil {
			log.Printf("pages poll failed for %s (continuing): %v", repo, err)
			return ""
		}
		if url != "" {
			return url
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return ""
		}
		select {
		case <-time.After(3 * time.Second):
		case <-ctx.Done():
			return ""
		}
	}
}

// extractBuildKey pulls the embedded key out of a published index.html.
func extractBuildKey(content []byte) string {
	first, _, _ := strings.Cut(string(content), "\n")
	first = strings.TrimSpace(first)
	if !strings.HasPrefix(first, keyMarkerPrefix) || !strings.HasSuffix(first, keyMarkerSuffix) {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(first, keyMarkerPrefix), keyMarkerSuffix)
}

// classify maps GitHub API failures onto the transient/fatal taxonomy.
func classify(op string, err error) error {
	transient := true

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch code := ghErr.Response.StatusCode; {
		case code == 401 || code == 403:
			transient = false // credential problem; retrying cannot help
		case code == 409 || code == 422:
			transient = true // conflict with a concurrent writer
		case code >= 500:
			transient = true
		default:
			transient = false
		}
	}

	return &Error{Op: op, Transient: transient, Err: err}
}
