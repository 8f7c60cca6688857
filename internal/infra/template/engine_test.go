package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRender(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	html, text, err := e.Render("Weekly digest", "<p>Three new replies &amp; two mentions</p>")
	require.NoError(t, err)

	assert.Contains(t, html, "Weekly digest")
	assert.Contains(t, html, "<p>Three new replies")
	assert.Contains(t, text, "Three new replies & two mentions")
	assert.NotContains(t, text, "<p>")
}

func TestEngineEscapesTitle(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	html, _, err := e.Render("<script>alert(1)</script>", "body")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestStripHTML(t *testing.T) {
	got := stripHTML("<div><h1>Title</h1>\n  <p>Line one&nbsp;&amp; two</p></div>")
	assert.Equal(t, "Title Line one & two", got)
}
