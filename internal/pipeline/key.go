package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/sivabalan-sv01/tds-project/internal/models"
)

// DeriveKey produces the deterministic request key for a trigger. Identical
// logical triggers always map to the same key; the exact derivation is policy
// and only its stability matters. A nonce pins the identity when the caller
// provides one; otherwise the brief's hash stands in, so a changed brief is a
// new trigger.
func DeriveKey(req models.GenerateRequest) string {
	ident := req.Nonce
	if ident == "" {
		briefSum := sha256.Sum256([]byte(req.Brief))
		ident = hex.EncodeToString(briefSum[:])
	}

	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", req.Task, req.Round, ident)))
	return hex.EncodeToString(h[:])
}

// TargetRepo picks the repository for a trigger: an explicit repo_name wins,
// else the task name is slugified.
func TargetRepo(req models.GenerateRequest) string {
	if req.RepoName != "" {
		return slugify(req.RepoName)
	}
	return slugify(req.Task)
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
