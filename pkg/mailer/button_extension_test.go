package mailer_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"

	"github.com/dmitrymomot/mailroom/pkg/mailer"
)

func convert(t *testing.T, src string) string {
	t.Helper()

	md := goldmark.New(goldmark.WithExtensions(mailer.NewButtonExtension()))
	var buf bytes.Buffer
	require.NoError(t, md.Convert([]byte(src), &buf))
	return buf.String()
}

func TestButtonExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		contains []string
		excludes []string
	}{
		{
			name:     "primary button",
			src:      `[!button|Pay Now](https://app.example.com/portal/invoice/abc123)`,
			contains: []string{`<a href="https://app.example.com/portal/invoice/abc123" class="btn">Pay Now</a>`},
		},
		{
			name:     "variant button",
			src:      `[!button-secondary|Accept Estimate](https://app.example.com/portal/estimate/t1?action=accept)`,
			contains: []string{`<a href="https://app.example.com/portal/estimate/t1?action=accept" class="btn btn-secondary">Accept Estimate</a>`},
		},
		{
			name:     "query ampersand is escaped",
			src:      `[!button|Go](https://example.com/?a=1&b=2)`,
			contains: []string{`href="https://example.com/?a=1&amp;b=2"`},
		},
		{
			name:     "label is escaped",
			src:      `[!button|<script>x</script>](https://example.com)`,
			contains: []string{"&lt;script&gt;"},
			excludes: []string{"<script>"},
		},
		{
			name:     "surrounding markdown still renders",
			src:      "# Invoice INV-1\n\n[!button|View Invoice](https://example.com/i)\n\nThanks!",
			contains: []string{"<h1>Invoice INV-1</h1>", `class="btn">View Invoice</a>`, "Thanks!"},
		},
		{
			name:     "regular links untouched",
			src:      `[docs](https://example.com/docs)`,
			contains: []string{`<a href="https://example.com/docs">docs</a>`},
			excludes: []string{"btn"},
		},
		{
			name:     "missing url is plain text",
			src:      `[!button|Broken]`,
			excludes: []string{"<a "},
		},
		{
			name:     "empty variant rejected",
			src:      `[!button-|Broken](https://example.com)`,
			excludes: []string{"class=\"btn"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := convert(t, tt.src)
			for _, s := range tt.contains {
				require.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				require.NotContains(t, out, s)
			}
		})
	}
}

func TestButtonExtension_TwoButtonsOnOneLine(t *testing.T) {
	t.Parallel()

	out := convert(t, `[!button|View](https://example.com/v) [!button-secondary|Pay](https://example.com/p)`)
	require.Contains(t, out, `<a href="https://example.com/v" class="btn">View</a>`)
	require.Contains(t, out, `<a href="https://example.com/p" class="btn btn-secondary">Pay</a>`)
}
