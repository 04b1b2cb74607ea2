package mailer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

func TestParseTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		meta    map[string]any
		body    string
		wantErr bool
	}{
		{
			name:    "frontmatter and body",
			content: "---\nsubject: Invoice {{.Number}}\n---\n# Invoice\n\nBody.\n",
			meta:    map[string]any{"subject": "Invoice {{.Number}}"},
			body:    "# Invoice\n\nBody.\n",
		},
		{
			name:    "no frontmatter",
			content: "# Just markdown",
			meta:    map[string]any{},
			body:    "# Just markdown",
		},
		{
			name:    "empty frontmatter",
			content: "---\n---\nBody",
			meta:    map[string]any{},
			body:    "Body",
		},
		{
			name:    "windows line endings",
			content: "---\r\nsubject: Hi\r\n---\r\nBody\r\n",
			meta:    map[string]any{"subject": "Hi"},
			body:    "Body\r\n",
		},
		{
			name:    "numeric values",
			content: "---\npriority: 2\n---\n",
			meta:    map[string]any{"priority": 2},
			body:    "",
		},
		{name: "missing closing delimiter", content: "---\nsubject: Hi\nBody", wantErr: true},
		{name: "nothing after opening", content: "---\n", wantErr: true},
		{name: "invalid yaml", content: "---\nsubject: [unclosed\n---\nBody", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpl, err := mailer.ParseTemplate([]byte(tt.content))
			if tt.wantErr {
				require.ErrorIs(t, err, mailer.ErrInvalidFrontmatter)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.meta, tmpl.Metadata)
			require.Equal(t, tt.body, tmpl.Body)
		})
	}
}

func TestTemplate_String(t *testing.T) {
	t.Parallel()

	tmpl, err := mailer.ParseTemplate([]byte("---\nsubject: Hello\ncount: 3\n---\n"))
	require.NoError(t, err)
	require.Equal(t, "Hello", tmpl.String("subject"))
	require.Empty(t, tmpl.String("count"))
	require.Empty(t, tmpl.String("missing"))
}
