package output

import (
	"bytes"
)

// PathsFormatter writes one path per line: archive paths for builds,
// manifest paths for extensions and web roots for installations.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	for _, b := range r.Builds {
		if b.Output != "" {
			w.WriteString(b.Output)
			w.WriteByte('\n')
		}
	}
	if r.Extensions != nil {
		for _, e := range r.Extensions.Extensions {
			w.WriteString(e.Manifest)
			w.WriteByte('\n')
		}
	}
	if r.Installations != nil {
		for _, i := range r.Installations.Installations {
			w.WriteString(i.WebRoot)
			w.WriteByte('\n')
		}
	}
	return nil
}

func init() {
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

// Ensure PathsFormatter implements Formatter.
var _ Formatter = (*PathsFormatter)(nil)
