package output

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
)

// PrettyFormatter formats output with colors and styling using lipgloss
// for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, b := range r.Builds {
		w.WriteString(f.formatBuild(b))
	}
	if r.Extensions != nil {
		w.WriteString(f.formatExtensions(r.Extensions))
	}
	if r.Installations != nil {
		w.WriteString(f.formatInstallations(r.Installations))
	}
	return nil
}

func (f *PrettyFormatter) formatBuild(b types.BuildReport) string {
	var lines []string

	state := SuccessStyle.Render("built")
	if !b.Success {
		state = ErrorStyle.Bold(true).Render("failed")
	}
	lines = append(lines, fmt.Sprintf("%s %s %s",
		TitleStyle.Render(b.Extension), MutedStyle.Render("("+b.Type+")"), state))

	if b.Output != "" {
		lines = append(lines, fmt.Sprintf("%s %s", LabelStyle.Render("Output:"), ValueStyle.Render(b.Output)))
	}
	lines = append(lines, fmt.Sprintf("%s %s  %s %s  %s %s",
		LabelStyle.Render("Files:"), ValueStyle.Render(fmt.Sprintf("%d", len(b.Files))),
		LabelStyle.Render("Size:"), SizeStyle.Render(b.HumanSize()),
		LabelStyle.Render("Time:"), ValueStyle.Render(formatDuration(b.Elapsed))))
	for _, child := range b.Packages {
		lines = append(lines, fmt.Sprintf("  %s %s %s",
			MutedStyle.Render("package"), ValueStyle.Render(child.Extension), status(child.Success)))
	}

	var sb strings.Builder
	sb.WriteString(HeaderBox.Render(strings.Join(lines, "\n")))
	sb.WriteString("\n")
	sb.WriteString(f.formatMessages(b.Messages))
	return sb.String()
}

func (f *PrettyFormatter) formatMessages(msgs []types.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		style := WarningStyle
		if m.Severity == "error" {
			style = ErrorStyle
		}
		sb.WriteString(style.Render("  " + m.Severity + ": " + m.Text))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *PrettyFormatter) formatExtensions(r *types.ExtensionReport) string {
	var sb strings.Builder
	sb.WriteString(HeaderBox.Render(fmt.Sprintf("%s %s\n%s %s",
		LabelStyle.Render("Installation:"), ValueStyle.Render(r.Installation),
		LabelStyle.Render("Web root:"), ValueStyle.Render(r.WebRoot))))
	sb.WriteString("\n")

	if len(r.Extensions) == 0 {
		sb.WriteString(MutedStyle.Render("  No extensions found"))
		sb.WriteString("\n")
		return sb.String()
	}

	width := 4
	for _, e := range r.Extensions {
		if len(e.Name) > width {
			width = len(e.Name)
		}
	}
	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
		TableHeaderStyle.Render(padRight("TYPE", 9)),
		TableHeaderStyle.Render(padRight("NAME", width)),
		TableHeaderStyle.Render("VERSION")))
	for _, e := range r.Extensions {
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			MutedStyle.Render(padRight(e.Type, 9)),
			ValueStyle.Render(padRight(e.Name, width)),
			SizeStyle.Render(dash(e.Version))))
		for _, loc := range sortedKeys(e.Languages) {
			for _, file := range e.Languages[loc] {
				sb.WriteString("    " + MutedStyle.Render(loc+": "+file) + "\n")
			}
		}
	}
	return sb.String()
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *PrettyFormatter) formatInstallations(r *types.InstallationReport) string {
	var sb strings.Builder
	summary := fmt.Sprintf("%s %s  %s %s  %s %s",
		LabelStyle.Render("Found:"), ValueStyle.Render(fmt.Sprintf("%d", len(r.Installations))),
		LabelStyle.Render("Folders:"), ValueStyle.Render(fmt.Sprintf("%d", r.Folders)),
		LabelStyle.Render("Time:"), ValueStyle.Render(formatDuration(r.Elapsed)))
	if r.CachedRoots > 0 {
		summary += "  " + MutedStyle.Render(fmt.Sprintf("(%d cached)", r.CachedRoots))
	}
	sb.WriteString(HeaderBox.Render(summary))
	sb.WriteString("\n")

	for _, i := range r.Installations {
		sb.WriteString("  " + TitleStyle.Render(i.Name) + "\n")
		sb.WriteString("    " + MutedStyle.Render(i.WebRoot) + "\n")
	}
	for _, e := range r.Errors {
		sb.WriteString(WarningStyle.Render("  "+e) + "\n")
	}
	return sb.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// formatDuration formats a duration in a human-friendly way.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	minutes := int(sec) / 60
	seconds := int(sec) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
