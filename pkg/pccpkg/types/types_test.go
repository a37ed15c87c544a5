package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr error
	}{
		{name: "plain bytes", input: "1024", want: 1024},
		{name: "bytes with B suffix", input: "512B", want: 512},
		{name: "kilobytes", input: "100k", want: 100 * KiB},
		{name: "kilobytes with iB", input: "100KiB", want: 100 * KiB},
		{name: "megabytes with B", input: "50MB", want: 50 * MiB},
		{name: "gigabytes", input: "2G", want: 2 * GiB},
		{name: "whitespace", input: "  100M  ", want: 100 * MiB},
		{name: "decimal values truncated", input: "1.5G", want: 1610612736},
		{name: "empty string", input: "", wantErr: ErrInvalidSize},
		{name: "invalid suffix", input: "100X", wantErr: ErrInvalidSize},
		{name: "terabytes unsupported", input: "1T", wantErr: ErrInvalidSize},
		{name: "negative value", input: "-100M", wantErr: ErrNegativeSize},
		{name: "suffix only", input: "M", wantErr: ErrInvalidSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(0))
	assert.Equal(t, "0 B", FormatSize(-5))
	assert.Equal(t, "1.0 KiB", FormatSize(1024))
	assert.Equal(t, "1.5 MiB", FormatSize(1536*1024))
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "never", FormatAge(time.Time{}))
	assert.Equal(t, "3 hours ago", FormatAge(time.Now().Add(-3*time.Hour)))
}

func TestBuildReport(t *testing.T) {
	r := BuildReport{
		Size: 2048,
		Messages: []Message{
			{Severity: "warning", Text: "a"},
			{Severity: "error", Text: "b"},
			{Severity: "warning", Text: "c"},
		},
	}
	assert.Equal(t, "2.0 KiB", r.HumanSize())
	assert.Equal(t, 2, r.Count("warning"))
	assert.Equal(t, 1, r.Count("error"))
}
