package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
)

func buildResult() *Result {
	return &Result{Builds: []types.BuildReport{{
		Extension: "pkg_pccevents",
		Type:      "package",
		Output:    "/out/pccevents.zip",
		Success:   true,
		Size:      2048,
		Elapsed:   1500 * time.Millisecond,
		Files: []types.FileEntry{
			{Source: "/www/administrator/manifests/packages/pkg_pccevents.xml", Destination: "pkg_pccevents.xml"},
		},
		Messages: []types.Message{{Severity: "warning", Text: "media folder missing | skipped"}},
		Packages: []types.BuildReport{{Extension: "com_pccevents", Type: "component", Success: true}},
	}}}
}

func extensionResult() *Result {
	return &Result{Extensions: &types.ExtensionReport{
		Installation: "Pro Computer",
		WebRoot:      "/www",
		Extensions: []types.ExtensionInfo{
			{Type: "component", Name: "com_pccevents", Client: "administrator", Version: "1.2.0", Manifest: "/www/a.xml"},
			{Type: "module", Name: "mod_pccstats", Client: "site", Manifest: "/www/b.xml",
				Languages: map[string][]string{"site": {"en-GB.mod_pccstats.ini"}}},
		},
	}}
}

func installationResult() *Result {
	return &Result{Installations: &types.InstallationReport{
		Roots:         []string{"/srv"},
		Installations: []types.InstallationInfo{{Name: "Pro Computer - v4.4.2 - source folder: pcc", Element: "pcc", WebRoot: "/srv/pcc", Version: "4.4.2"}},
		Folders:       12,
		CachedRoots:   1,
	}}
}

func format(t *testing.T, name string, r *Result) string {
	t.Helper()
	f, err := Get(name)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, r))
	return buf.String()
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"json", "markdown", "paths", "plain", "pretty", "toml", "yaml"}, Available())

	_, err := Get("xml")
	assert.Error(t, err)

	reg := NewRegistry()
	reg.Register("custom", func() Formatter { return &PathsFormatter{} })
	f, err := reg.Get("custom")
	require.NoError(t, err)
	assert.IsType(t, &PathsFormatter{}, f)
	assert.Equal(t, []string{"custom"}, reg.Available())
}

func TestJSONFormatter(t *testing.T) {
	out := format(t, "json", buildResult())

	var got Result
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Builds, 1)
	assert.Equal(t, "pkg_pccevents", got.Builds[0].Extension)
	assert.Nil(t, got.Extensions)
	assert.NotContains(t, out, `"installations"`)
}

func TestYAMLFormatter(t *testing.T) {
	out := format(t, "yaml", extensionResult())

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Contains(t, got, "extensions")
	assert.NotContains(t, got, "builds")
	assert.Contains(t, out, "name: com_pccevents")
}

func TestTOMLFormatter(t *testing.T) {
	out := format(t, "toml", installationResult())

	var got map[string]any
	require.NoError(t, toml.Unmarshal([]byte(out), &got))
	inst, ok := got["installations"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 12, inst["folders"])
}

func TestPlainFormatter(t *testing.T) {
	t.Run("builds", func(t *testing.T) {
		out := format(t, "plain", buildResult())
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "STATUS"))
		assert.Contains(t, lines[1], "pkg_pccevents")
		assert.Contains(t, lines[1], "2.0 KiB")
		assert.Contains(t, lines[2], "  com_pccevents")
	})

	t.Run("extensions", func(t *testing.T) {
		out := format(t, "plain", extensionResult())
		assert.Contains(t, out, "MANIFEST")
		assert.Regexp(t, `mod_pccstats\s+site\s+-\s+/www/b.xml`, out)
	})
}

func TestPathsFormatter(t *testing.T) {
	assert.Equal(t, "/out/pccevents.zip\n", format(t, "paths", buildResult()))
	assert.Equal(t, "/www/a.xml\n/www/b.xml\n", format(t, "paths", extensionResult()))
	assert.Equal(t, "/srv/pcc\n", format(t, "paths", installationResult()))
}

func TestMarkdownFormatter(t *testing.T) {
	out := format(t, "markdown", buildResult())
	assert.Contains(t, out, "| EXTENSION | TYPE |")
	assert.Contains(t, out, `media folder missing \| skipped`)

	out = format(t, "markdown", installationResult())
	assert.Contains(t, out, "| Pro Computer - v4.4.2 - source folder: pcc | 4.4.2 | /srv/pcc |")
}

func TestPrettyFormatter(t *testing.T) {
	out := format(t, "pretty", buildResult())
	assert.Contains(t, out, "pkg_pccevents")
	assert.Contains(t, out, "/out/pccevents.zip")
	assert.Contains(t, out, "media folder missing")
	assert.Contains(t, out, "com_pccevents")

	out = format(t, "pretty", extensionResult())
	assert.Contains(t, out, "com_pccevents")
	assert.Contains(t, out, "1.2.0")
	assert.Contains(t, out, "site: en-GB.mod_pccstats.ini")

	empty := format(t, "pretty", &Result{Extensions: &types.ExtensionReport{WebRoot: "/www"}})
	assert.Contains(t, empty, "No extensions found")

	out = format(t, "pretty", installationResult())
	assert.Contains(t, out, "(1 cached)")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m 5s", formatDuration(125*time.Second))
}
