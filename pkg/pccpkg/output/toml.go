package output

import (
	"bytes"

	"github.com/pelletier/go-toml/v2"
)

// TOMLFormatter formats output as a TOML document. Each populated part of
// the result becomes a top-level table.
type TOMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TOMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(r.sections())
}

func init() {
	Register("toml", func() Formatter {
		return &TOMLFormatter{}
	})
}

// Ensure TOMLFormatter implements Formatter.
var _ Formatter = (*TOMLFormatter)(nil)
