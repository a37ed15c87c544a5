package output

import (
	"bytes"
	"fmt"
	"strings"
)

// MarkdownFormatter formats output as GitHub-flavored Markdown tables.
type MarkdownFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *MarkdownFormatter) Format(w *bytes.Buffer, r *Result) error {
	if len(r.Builds) > 0 {
		w.WriteString("| EXTENSION | TYPE | FILES | SIZE | OUTPUT |\n")
		w.WriteString("|-----------|------|-------|------|--------|\n")
		for _, b := range r.Builds {
			fmt.Fprintf(w, "| %s | %s | %d | %s | %s |\n",
				escapeMarkdownPipe(b.Extension), b.Type, len(b.Files), b.HumanSize(), escapeMarkdownPipe(b.Output))
			for _, m := range b.Messages {
				fmt.Fprintf(w, "\n- **%s**: %s", m.Severity, escapeMarkdownPipe(m.Text))
			}
			if len(b.Messages) > 0 {
				w.WriteString("\n\n")
			}
		}
	}
	if r.Extensions != nil {
		w.WriteString("| TYPE | NAME | CLIENT | VERSION |\n")
		w.WriteString("|------|------|--------|---------|\n")
		for _, e := range r.Extensions.Extensions {
			fmt.Fprintf(w, "| %s | %s | %s | %s |\n", e.Type, escapeMarkdownPipe(e.Name), e.Client, dash(e.Version))
		}
	}
	if r.Installations != nil {
		w.WriteString("| NAME | VERSION | WEB ROOT |\n")
		w.WriteString("|------|---------|----------|\n")
		for _, i := range r.Installations.Installations {
			fmt.Fprintf(w, "| %s | %s | %s |\n", escapeMarkdownPipe(i.Name), dash(i.Version), escapeMarkdownPipe(i.WebRoot))
		}
	}
	return nil
}

// escapeMarkdownPipe escapes pipe characters in a string for Markdown tables.
func escapeMarkdownPipe(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func init() {
	Register("markdown", func() Formatter {
		return &MarkdownFormatter{}
	})
}

// Ensure MarkdownFormatter implements Formatter.
var _ Formatter = (*MarkdownFormatter)(nil)
