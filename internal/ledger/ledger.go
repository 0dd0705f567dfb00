package ledger

import (
	"context"
	"time"
)

// Status is the persisted lifecycle of a request key.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Entry is the persisted record for one request key.
type Entry struct {
	Key       string    `json:"key"`
	Status    Status    `json:"status"`
	Repo      string    `json:"repo,omitempty"`
	Path      string    `json:"path,omitempty"`
	Commit    string    `json:"commit,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State is the policy-level answer to "have we handled this key".
type State int

const (
	// StateUnseen means the key may be processed now. This covers keys never
	// seen, stale pending entries, and failed entries past their cooldown —
	// the ledger is a cache, so Unseen is never proof the work wasn't done.
	StateUnseen State = iota
	// StatePending means another invocation recently claimed the key.
	StatePending
	// StateDone means a publish record exists for the key.
	StateDone
	// StateFailed means the key failed recently and is still cooling down.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unseen"
	}
}

// Store is the raw keyed storage underneath the ledger. It is best-effort:
// the backing location may be wiped between invocations.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	DeleteExpired(ctx context.Context, cutoff time.Time) error
}

// retention bounds how long terminal entries are kept before Sweep drops
// them. Dropping a done entry is safe: the publisher re-checks the repo.
const retention = 7 * 24 * time.Hour

// Ledger applies the staleness and cooldown policy on top of a Store.
type Ledger struct {
	store          Store
	pendingTTL     time.Duration
	failedCooldown time.Duration
	now            func() time.Time
}

// New builds a ledger. A pending entry older than pendingTTL is treated as
// abandoned; a failed entry older than failedCooldown becomes retryable.
func New(store Store, pendingTTL, failedCooldown time.Duration) *Ledger {
	return &Ledger{
		store:          store,
		pendingTTL:     pendingTTL,
		failedCooldown: failedCooldown,
		now:            time.Now,
	}
}

// Lookup classifies a key. Storage errors are returned so the caller can
// decide to proceed in degraded mode.
func (l *Ledger) Lookup(ctx context.Context, key string) (State, Entry, error) {
	e, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return StateUnseen, Entry{}, err
	}
	if !ok {
		return StateUnseen, Entry{}, nil
	}

	age := l.now().Sub(e.UpdatedAt)
	switch e.Status {
	case StatusDone:
		return StateDone, e, nil
	case StatusPending:
		if age > l.pendingTTL {
			// Abandoned by a crashed or timed-out invocation; retryable.
			return StateUnseen, e, nil
		}
		return StatePending, e, nil
	case StatusFailed:
		if age > l.failedCooldown {
			return StateUnseen, e, nil
		}
		return StateFailed, e, nil
	default:
		return StateUnseen, e, nil
	}
}

// MarkPending claims the key before any generation work starts, so a crash
// mid-pipeline leaves evidence distinguishable from Unseen.
func (l *Ledger) MarkPending(ctx context.Context, key string) error {
	return l.store.Put(ctx, Entry{Key: key, Status: StatusPending, UpdatedAt: l.now()})
}

// MarkDone records the publish evidence for the key.
func (l *Ledger) MarkDone(ctx context.Context, key, repo, path, commit string) error {
	return l.store.Put(ctx, Entry{
		Key:       key,
		Status:    StatusDone,
		Repo:      repo,
		Path:      path,
		Commit:    commit,
		UpdatedAt: l.now(),
	})
}

// MarkFailed records an unrecoverable failure; the key becomes retryable
// after the cooldown.
func (l *Ledger) MarkFailed(ctx context.Context, key, reason string) error {
	return l.store.Put(ctx, Entry{Key: key, Status: StatusFailed, Reason: reason, UpdatedAt: l.now()})
}

// Sweep drops entries old enough to be useless. Safe to skip; the store may
// vanish entirely at any time anyway.
func (l *Ledger) Sweep(ctx context.Context) error {
	return l.store.DeleteExpired(ctx, l.now().Add(-retention))
}
