package models

// GenerationRequest carries everything the orchestrator needs to produce an
// artifact. Immutable once constructed.
type GenerationRequest struct {
	Brief           string
	Round           int
	Checks          []string
	AttachmentsMeta string
	PrevReadme      string
}

// Artifact is the generated application: a self-contained index.html plus its
// README.
type Artifact struct {
	HTML   string
	Readme string
}

// GenerationResult is produced by the orchestrator and consumed by the
// publisher.
type GenerationResult struct {
	Artifact  Artifact
	ModelUsed string
	Fallback  bool // true when the static fallback artifact was used
}

// PublishRecord is the durable evidence of a successful publish. The ledger
// caches it; the repository itself remains the source of truth.
type PublishRecord struct {
	Key      string
	Repo     string
	Path     string
	Commit   string
	PagesURL string
}
