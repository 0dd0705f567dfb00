package generator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sivabalan-sv01/tds-project/internal/models"
)

// ParseOutput splits a raw completion into the HTML artifact and its README.
// The model is told to separate the two with ReadmeSeparator; when it does
// not, the whole output is treated as HTML and a README is synthesized.
func ParseOutput(raw string, req models.GenerationRequest) models.Artifact {
	var html, readme string

	if code, rest, ok := strings.Cut(raw, ReadmeSeparator); ok {
		html = stripCodeFence(code)
		readme = stripCodeFence(rest)
	} else {
		html = stripCodeFence(raw)
	}

	if readme == "" {
		readme = FallbackReadme(req)
	}

	return models.Artifact{
		HTML:   ensureHTMLDocument(html),
		Readme: readme,
	}
}

var fenceLang = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// stripCodeFence returns the contents of the first triple-backtick block when
// one is present, dropping a leading language tag line. Text without fences
// passes through trimmed.
func stripCodeFence(text string) string {
	if !strings.Contains(text, "```") {
		return strings.TrimSpace(text)
	}
	parts := strings.Split(text, "```")
	if len(parts) < 2 {
		return strings.TrimSpace(text)
	}
	inner := strings.TrimSpace(parts[1])
	if first, rest, ok := strings.Cut(inner, "\n"); ok && fenceLang.MatchString(strings.TrimSpace(first)) {
		return strings.TrimSpace(rest)
	}
	return inner
}

// ensureHTMLDocument wraps bare fragments in a minimal document so the
// published index.html always renders standalone.
func ensureHTMLDocument(html string) string {
	trimmed := strings.TrimSpace(html)
	if strings.HasPrefix(trimmed, "<") {
		return trimmed
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Generated App</title>
</head>
<body>
%s
</body>
</html>`, trimmed)
}

// FallbackReadme synthesizes a README when the model omitted one or when the
// static fallback artifact is used.
func FallbackReadme(req models.GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Auto-generated README (Round %d)\n\n", req.Round)
	fmt.Fprintf(&b, "**Project brief:** %s\n\n", req.Brief)
	fmt.Fprintf(&b, "**Attachments:**\n%s\n\n", req.AttachmentsMeta)
	b.WriteString("**Checks to meet:**\n")
	for _, c := range req.Checks {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString(`
## Setup
1. Open ` + "`index.html`" + ` in a browser.
2. No build steps required.

## Notes
This README was generated as a fallback (the model did not return an explicit README).
`)
	return b.String()
}

// FallbackArtifact is the last-resort static artifact, published when every
// generation attempt failed and the fallback is enabled.
func FallbackArtifact(req models.GenerationRequest) models.Artifact {
	html := fmt.Sprintf(`<html>
  <head><title>Fallback App</title></head>
  <body>
    <h1>Hello (fallback)</h1>
    <p>This app was generated as a fallback because the generation API failed. Brief: %s</p>
  </body>
</html>`, req.Brief)
	return models.Artifact{HTML: html, Readme: FallbackReadme(req)}
}
