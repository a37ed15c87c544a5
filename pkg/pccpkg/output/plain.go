package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
)

// PlainFormatter formats output as aligned columns without styling,
// suitable for scripting and piping.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if len(r.Builds) > 0 {
		fmt.Fprintln(tw, "STATUS\tTYPE\tEXTENSION\tFILES\tSIZE\tOUTPUT")
		for _, b := range r.Builds {
			writeBuildRow(tw, b, "")
		}
	}
	if r.Extensions != nil {
		fmt.Fprintln(tw, "TYPE\tNAME\tCLIENT\tVERSION\tMANIFEST")
		for _, e := range r.Extensions.Extensions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Type, e.Name, e.Client, dash(e.Version), e.Manifest)
		}
	}
	if r.Installations != nil {
		fmt.Fprintln(tw, "NAME\tVERSION\tWEB ROOT")
		for _, i := range r.Installations.Installations {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", i.Name, dash(i.Version), i.WebRoot)
		}
	}

	return tw.Flush()
}

func writeBuildRow(tw *tabwriter.Writer, b types.BuildReport, indent string) {
	fmt.Fprintf(tw, "%s\t%s\t%s%s\t%d\t%s\t%s\n",
		status(b.Success), b.Type, indent, b.Extension, len(b.Files), b.HumanSize(), dash(b.Output))
	for _, child := range b.Packages {
		writeBuildRow(tw, child, indent+"  ")
	}
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
