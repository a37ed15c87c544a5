package diag

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/logging"
)

func TestMessageString(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "file and source",
			msg:  Message{Text: "media section is empty", File: "/a/b/pccevents.xml", Source: "com_pccevents"},
			want: "In XML package manifest file pccevents.xml (com_pccevents): media section is empty",
		},
		{
			name: "file only",
			msg:  Message{Text: "x", File: "pkg_x.xml"},
			want: "In XML package manifest file pkg_x.xml: x",
		},
		{
			name: "no context",
			msg:  Message{Text: "plain"},
			want: "plain",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.String())
		})
	}
}

func TestSink(t *testing.T) {
	s := NewSink()
	ctx := Context{File: "mod_x.xml", Source: "mod_x"}

	s.Warnf(ctx, "multiple '%s' elements", "files")
	s.Errorf(ctx, "Source folder not found: %s", "/www/modules/mod_x")
	s.Warnf(Context{}, "no context")

	require.Equal(t, 3, s.Len())
	assert.True(t, s.HasErrors())
	assert.Len(t, s.Warnings(), 2)
	require.Len(t, s.Errors(), 1)
	assert.Equal(t, "In XML package manifest file mod_x.xml (mod_x): Source folder not found: /www/modules/mod_x", s.Errors()[0].String())

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.HasErrors())
}

func TestSinkMerge(t *testing.T) {
	child := NewSink()
	child.Errorf(Context{Source: "mod_a"}, "broken")
	child.Warnf(Context{Source: "mod_a"}, "odd")

	parent := NewSink()
	parent.Merge(child)
	assert.Len(t, parent.Errors(), 1)

	demoted := NewSink()
	demoted.MergeAs(child, Warning)
	assert.False(t, demoted.HasErrors())
	assert.Equal(t, []string{"In XML package manifest (mod_a): broken", "In XML package manifest (mod_a): odd"}, demoted.Strings())
}

func TestSinkMirrorsToLoggerOnce(t *testing.T) {
	var console bytes.Buffer
	require.NoError(t, logging.Init(logging.Config{
		Level:        "debug",
		Path:         filepath.Join(t.TempDir(), "pccpkg.log"),
		ConsoleLevel: "warn",
		Console:      &console,
	}))
	t.Cleanup(func() { _ = logging.Close() })

	logger := logging.Get("diag")
	child := NewSink(WithLogger(logger))
	child.Errorf(Context{Source: "mod_a"}, "language file missing")

	parent := NewSink(WithLogger(logger))
	parent.Merge(child)
	assert.Len(t, parent.Errors(), 1)
	assert.Equal(t, 1, strings.Count(console.String(), "language file missing"))

	scratch := NewSink()
	scratch.Errorf(Context{Source: "mod_a"}, "media folder missing")
	assert.NotContains(t, console.String(), "media folder missing")

	parent.MergeAs(scratch, Warning)
	assert.Equal(t, 1, strings.Count(console.String(), "media folder missing"))
	assert.Len(t, parent.Warnings(), 1)
}
