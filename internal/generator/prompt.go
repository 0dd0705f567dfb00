package generator

import (
	"fmt"
	"strings"

	"github.com/sivabalan-sv01/tds-project/internal/models"
)

// ReadmeSeparator splits the model output into index.html and README.md.
const ReadmeSeparator = "---README.md---"

const systemPrompt = "You are a helpful coding assistant that outputs runnable web apps."

// BuildPrompt renders the user prompt for one generation. Round 2 threads the
// previously published README through so the model revises instead of
// rebuilding.
func BuildPrompt(req models.GenerationRequest) string {
	var b strings.Builder

	b.WriteString("You are a professional web developer assistant.\n\n")
	fmt.Fprintf(&b, "### Round\n%d\n\n", req.Round)
	fmt.Fprintf(&b, "### Task\n%s\n\n", req.Brief)

	if req.Round >= 2 && req.PrevReadme != "" {
		fmt.Fprintf(&b, "### Previous README.md:\n%s\n\n", req.PrevReadme)
		b.WriteString("Revise and enhance this project according to the new brief above.\n\n")
	}

	b.WriteString("### Attachments (if any)\n")
	b.WriteString(req.AttachmentsMeta)
	b.WriteString("\n\n")

	b.WriteString("### Evaluation checks\n")
	for _, c := range req.Checks {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("\n")

	b.WriteString(`### Output format rules:
1. Produce a complete single-file web application that satisfies the brief requirements.
2. Output must contain exactly two parts:
   - First part: Complete index.html code (including DOCTYPE, html, head, body tags)
   - Second part: README.md content (starts after a line containing exactly: ` + ReadmeSeparator + `)
3. The index.html must be a SINGLE FILE containing all HTML structure, all CSS styles, and all JavaScript logic inline.
4. README.md must include an overview, setup instructions (just open index.html in a browser), and usage instructions. If Round 2, describe improvements made from the previous version.
5. Do not include any commentary outside the HTML code or README content.
6. The index.html must be completely self-contained - no external dependencies except CDN links if specifically requested.
7. Use the separator line "` + ReadmeSeparator + `" exactly as shown to separate the two parts.
`)

	return b.String()
}
