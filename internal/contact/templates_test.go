package contact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTemplates = `
templates:
  recall:
    body: "Hi {{.FirstName}}, book here: {{.SchedulingLink}}"
  count:
    body: "{{.PlanCount}} procedures, {{.DaysSincePlan}} days"
`

func TestParseTemplates_Render(t *testing.T) {
	tmpl, err := ParseTemplates([]byte(testTemplates))
	require.NoError(t, err)

	msg, ok, err := tmpl.Render("recall", Payload{FirstName: "Ana", SchedulingLink: "https://x/?token=t"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Hi Ana, book here: https://x/?token=t", msg)

	msg, ok, err = tmpl.Render("count", Payload{PlanCount: 3, DaysSincePlan: 41})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3 procedures, 41 days", msg)

	_, ok, err = tmpl.Render("missing", Payload{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseTemplates_Errors(t *testing.T) {
	_, err := ParseTemplates([]byte("templates: [not, a, map]"))
	assert.Error(t, err)

	_, err = ParseTemplates([]byte("templates:\n  bad:\n    body: \"{{.FirstName\"\n"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), `"bad"`))
}

func TestLoadTemplates(t *testing.T) {
	dir := t.TempDir()

	empty, err := LoadTemplates(filepath.Join(dir, "absent.yml"))
	require.NoError(t, err)
	_, ok, _ := empty.Render("recall", Payload{})
	assert.False(t, ok)

	path := filepath.Join(dir, "templates.yml")
	require.NoError(t, os.WriteFile(path, []byte(testTemplates), 0o600))

	loaded, err := LoadTemplates(path)
	require.NoError(t, err)
	_, ok, _ = loaded.Render("recall", Payload{})
	assert.True(t, ok)
}

func TestRender_NilTemplates(t *testing.T) {
	var tmpl *Templates
	_, ok, err := tmpl.Render("recall", Payload{})
	assert.NoError(t, err)
	assert.False(t, ok)
}
