package generator

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sivabalan-sv01/tds-project/internal/models"
)

// SavedAttachment describes an inline attachment decoded to local disk.
type SavedAttachment struct {
	Name string
	Path string
	Mime string
	Size int
}

// DecodeAttachments saves data-URI attachments under a fresh temp directory.
// Each invocation gets its own directory so concurrent requests never clobber
// each other's files. Attachments that are not data URIs are skipped; a
// malformed one is skipped too rather than failing the whole trigger.
func DecodeAttachments(atts []models.Attachment) ([]SavedAttachment, error) {
	if len(atts) == 0 {
		return nil, nil
	}

	dir := filepath.Join(os.TempDir(), "tds-attachments", uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("attachment dir: %w", err)
	}

	var saved []SavedAttachment
	for _, att := range atts {
		name := filepath.Base(strings.TrimSpace(att.Name))
		if name == "" || name == "." || name == string(filepath.Separator) {
			name = "attachment"
		}

		rest, ok := strings.CutPrefix(att.URL, "data:")
		if !ok {
			continue
		}
		header, b64, ok := strings.Cut(rest, ",")
		if !ok {
			continue
		}
		mime, _, _ := strings.Cut(header, ";")

		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			continue
		}

		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			continue
		}
		saved = append(saved, SavedAttachment{Name: name, Path: path, Mime: mime, Size: len(data)})
	}
	return saved, nil
}

// previewLimit bounds how much of a text attachment is quoted in the prompt.
const previewLimit = 1000

// SummarizeAttachments renders a short human-readable summary of the saved
// attachments for inclusion in the prompt. Text-like files get a content
// preview; everything else is listed by size.
func SummarizeAttachments(saved []SavedAttachment) string {
	var lines []string
	for _, s := range saved {
		if textLike(s) {
			if preview, err := previewFile(s); err == nil {
				lines = append(lines, fmt.Sprintf("- %s (%s): preview: %s", s.Name, s.Mime, preview))
				continue
			}
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %d bytes", s.Name, s.Mime, s.Size))
	}
	return strings.Join(lines, "\n")
}

func textLike(s SavedAttachment) bool {
	if strings.HasPrefix(s.Mime, "text") {
		return true
	}
	switch strings.ToLower(filepath.Ext(s.Name)) {
	case ".md", ".txt", ".json", ".csv":
		return true
	}
	return false
}

func previewFile(s SavedAttachment) (string, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return "", err
	}
	text := string(raw)

	// For CSVs the header plus a couple of rows is more useful than a blob.
	if strings.EqualFold(filepath.Ext(s.Name), ".csv") {
		rows := strings.SplitN(text, "\n", 4)
		if len(rows) > 3 {
			rows = rows[:3]
		}
		text = strings.Join(rows, "\n")
	}

	text = strings.ReplaceAll(text, "\n", "\\n")
	if len(text) > previewLimit {
		text = text[:previewLimit]
	}
	return text, nil
}
