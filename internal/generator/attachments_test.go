package generator

import (
	"encoding/base64"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivabalan-sv01/tds-project/internal/models"
)

func dataURI(mime, content string) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString([]byte(content))
}

func TestDecodeAttachments(t *testing.T) {
	atts := []models.Attachment{
		{Name: "notes.txt", URL: dataURI("text/plain", "remember the header")},
		{Name: "logo.png", URL: dataURI("image/png", "\x89PNG....")},
		{Name: "skipme.txt", URL: "https://example.com/not-a-data-uri"},
		{Name: "broken.txt", URL: "data:text/plain;base64,!!!not-base64!!!"},
	}

	saved, err := DecodeAttachments(atts)
	require.NoError(t, err)
	require.Len(t, saved, 2, "non-data and malformed URIs are skipped, not fatal")

	assert.Equal(t, "notes.txt", saved[0].Name)
	assert.Equal(t, "text/plain", saved[0].Mime)
	content, err := os.ReadFile(saved[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "remember the header", string(content))

	assert.Equal(t, "logo.png", saved[1].Name)
	assert.Equal(t, len("\x89PNG...."), saved[1].Size)
}

func TestDecodeAttachments_SanitizesNames(t *testing.T) {
	saved, err := DecodeAttachments([]models.Attachment{
		{Name: "../../etc/passwd", URL: dataURI("text/plain", "nope")},
	})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "passwd", saved[0].Name)
}

func TestDecodeAttachments_Empty(t *testing.T) {
	saved, err := DecodeAttachments(nil)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestSummarizeAttachments(t *testing.T) {
	saved, err := DecodeAttachments([]models.Attachment{
		{Name: "readme.md", URL: dataURI("text/markdown", "# Title\nbody")},
		{Name: "data.bin", URL: dataURI("application/octet-stream", "12345")},
	})
	require.NoError(t, err)

	summary := SummarizeAttachments(saved)

	assert.Contains(t, summary, "readme.md (text/markdown): preview: # Title\\nbody")
	assert.Contains(t, summary, "data.bin (application/octet-stream): 5 bytes")
}

func TestSummarizeAttachments_CSVPreviewsFirstRows(t *testing.T) {
	csv := "a,b,c\n1,2,3\n4,5,6\n7,8,9\n10,11,12"
	saved, err := DecodeAttachments([]models.Attachment{
		{Name: "table.csv", URL: dataURI("text/csv", csv)},
	})
	require.NoError(t, err)

	summary := SummarizeAttachments(saved)

	assert.Contains(t, summary, "a,b,c")
	assert.Contains(t, summary, "4,5,6")
	assert.NotContains(t, summary, "10,11,12")
}
