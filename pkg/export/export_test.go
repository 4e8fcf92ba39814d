package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Mentorship Connections",
		Headers: []string{"ID", "Mentor", "Status"},
		Rows: []map[string]string{
			{"ID": "c-1", "Mentor": "Ada Lovelace", "Status": "active"},
			{"ID": "c-2", "Mentor": "Grace, Hopper", "Status": "pending"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Mentor,Status", lines[0])
	assert.Equal(t, `c-2,"Grace, Hopper",pending`, lines[2])
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"ID", "Notes"},
		Rows: []map[string]string{
			{"ID": "c-1", "Notes": "=HYPERLINK(\"http://x\")"},
			{"ID": "c-2", "Notes": "@SUM(A1)"},
			{"ID": "c-3", "Notes": "weekly call"},
		},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `c-1,"'=HYPERLINK(""http://x"")"`, lines[1])
	assert.Equal(t, "c-2,'@SUM(A1)", lines[2])
	assert.Equal(t, "c-3,weekly call", lines[3])
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 50))
	assert.Equal(t, "abcdefgh...", truncate(strings.Repeat("abcdefghij", 3), 20))
}
