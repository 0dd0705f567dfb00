package models

// Attachment is an inline file sent with the trigger payload.
// URL is a data URI: "data:<mime>;base64,<payload>".
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// GenerateRequest is the POST /api/generate payload.
// request_key is optional; best practice is to pass the X-Request-Key header
// so client retries dedupe reliably.
type GenerateRequest struct {
	Task        string       `json:"task"`
	Round       int          `json:"round,omitempty"`
	Nonce       string       `json:"nonce,omitempty"`
	Email       string       `json:"email,omitempty"`
	Brief       string       `json:"brief"`
	Checks      []string     `json:"checks,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	RepoName    string       `json:"repo_name,omitempty"`
	RequestKey  string       `json:"request_key,omitempty"`
}

// GenerateResponse is returned by POST /api/generate.
// Status "duplicate" indicates idempotent success (the artifact already existed).
type GenerateResponse struct {
	Status   string `json:"status"`
	Key      string `json:"key"`
	Repo     string `json:"repo,omitempty"`
	Path     string `json:"path,omitempty"`
	Commit   string `json:"commit,omitempty"`
	PagesURL string `json:"pages_url,omitempty"`
}
