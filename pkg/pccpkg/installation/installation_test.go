package installation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/builder"
	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/fileaccess"
)

const configPHP = `<?php
class JConfig {
	public $offline = false;
	public $offline_message = 'This site is down for maintenance.<br>Please check back again soon.';
	public $sitename = 'Pro Computer';
	public $editor = "tinymce";
	public $dbtype = 'mysqli';
	public $host = 'localhost';
	public $user = 'joomla';
	public $password = '';
	public $db = 'pcc';
	public $dbprefix = 'pcc_';
	public $list_limit = 20;
	public $caching = 0;
	public $secret = 'it\'s a;secret';
	public $log_path = 'C:\\inetpub\\logs';
}
`

const versionPHP = `<?php
namespace Joomla\CMS;

final class Version
{
    public const MAJOR_VERSION = 4;
    public const MINOR_VERSION = 4;
    public const PATCH_VERSION = 2;
    public const EXTRA_VERSION = '';
}
`

func TestParseConfig(t *testing.T) {
	cfg := ParseConfig(configPHP)

	assert.Equal(t, "Pro Computer", cfg.Get("sitename"))
	assert.Equal(t, "tinymce", cfg.Get("editor"))
	assert.Equal(t, "This site is down for maintenance.<br>Please check back again soon.", cfg.Get("offline_message"))
	assert.Equal(t, "it's a;secret", cfg.Get("secret"))
	assert.Equal(t, `C:\inetpub\logs`, cfg.Get("log_path"))
	assert.True(t, cfg.Has("password"))
	assert.Equal(t, "", cfg.Get("password"))
	assert.Equal(t, 20, cfg.Int("list_limit"))
	assert.False(t, cfg.Bool("offline"))
	assert.True(t, cfg.Valid())
	assert.Empty(t, cfg.Missing())
	assert.Contains(t, cfg.Keys(), "dbprefix")

	t.Run("missing keys", func(t *testing.T) {
		cfg := ParseConfig("<?php class JConfig { public $host = 'x'; public $db = 'y'; }")
		assert.False(t, cfg.Valid())
		assert.Equal(t, []string{"dbtype", "user", "password", "dbprefix"}, cfg.Missing())
	})

	t.Run("not php", func(t *testing.T) {
		assert.Empty(t, ParseConfig("sitename = 'x'"))
	})
}

func TestParseVersion(t *testing.T) {
	v, ok := ParseVersion(versionPHP)
	require.True(t, ok)
	assert.Equal(t, "4.4.2", v)

	v, ok = ParseVersion("const MAJOR_VERSION = 3;\nconst MINOR_VERSION = 10;")
	require.True(t, ok)
	assert.Equal(t, "3.10.0", v)

	_, ok = ParseVersion("const MAJOR_VERSION = 5;")
	assert.False(t, ok)
}

func TestSplitRoots(t *testing.T) {
	assert.Equal(t, []string{"/var/www", "/srv/sites", `C:\inetpub`},
		SplitRoots(" /var/www;/srv/sites\n\r C:\\inetpub ;;"))
	assert.Equal(t, []string{"/a", "/b"}, SplitRoots("/a", "", "/b;"))
	assert.Empty(t, SplitRoots(" ; \n"))
}

func TestArchiveName(t *testing.T) {
	tests := map[string]string{
		"com_pccevents":   "pccevents.zip",
		"MOD_pccproducts": "pccproducts.zip",
		"plg_search":      "search.zip",
		"pkg_pccevents":   "pccevents.zip",
		"custom":          "custom.zip",
		"com_":            DefaultArchiveName,
		"":                DefaultArchiveName,
	}
	for in, want := range tests {
		assert.Equal(t, want, ArchiveName(in), in)
	}
}

func memSite(t *testing.T) *fileaccess.FS {
	t.Helper()
	fa := fileaccess.NewMem()
	files := map[string]string{
		"/www/site/configuration.php":                                    configPHP,
		"/www/site/libraries/src/Version.php":                            versionPHP,
		"/www/site/administrator/components/com_pccevents/pccevents.xml": `<extension type="component"><version>1.2.0</version></extension>`,
		"/www/site/administrator/components/com_broken/broken.xml":       `<extension`,
		"/www/site/administrator/components/com_nomanifest/readme.txt":   "x",
		"/www/site/modules/mod_pccproducts/mod_pccproducts.xml":          `<extension type="module" client="site"><version>1.0.0</version></extension>`,
		"/www/site/administrator/modules/mod_pccstats/mod_pccstats.xml":  `<extension type="module" client="administrator"/>`,
		"/www/site/administrator/manifests/packages/pkg_pccevents.xml":   `<extension type="package"><version>2.0</version></extension>`,
		"/www/site/administrator/manifests/packages/readme.txt":          "x",
	}
	for p, content := range files {
		require.NoError(t, fa.WriteFile(p, []byte(content)))
	}
	return fa
}

func TestLoad(t *testing.T) {
	fa := memSite(t)

	inst, err := Load(fa, "/www/site")
	require.NoError(t, err)
	assert.Equal(t, "Pro Computer - v4.4.2 - source folder: site", inst.Name)
	assert.Equal(t, "site", inst.Element)
	assert.Equal(t, "4.4.2", inst.Version)
	assert.Equal(t, "pcc_", inst.Config.Get("dbprefix"))

	site := inst.Site(nil)
	assert.Equal(t, "/www/site", site.WebRoot)
	assert.True(t, site.Files.IsFile("/www/site/configuration.php"))
	assert.Nil(t, site.Exporter)

	t.Run("no configuration", func(t *testing.T) {
		_, err := Load(fa, "/www/other")
		var nerr *builder.SourceNotFoundError
		require.ErrorAs(t, err, &nerr)
	})

	t.Run("incomplete configuration", func(t *testing.T) {
		require.NoError(t, fa.WriteFile("/www/partial/configuration.php", []byte("<?php public $host = 'x';")))
		_, err := Load(fa, "/www/partial")
		var cerr *ConfigError
		require.ErrorAs(t, err, &cerr)
		assert.Contains(t, cerr.Missing, "dbprefix")
	})
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Site - v4.0.0 - source folder: www", displayName("Site", "4.0.0", "www"))
	assert.Equal(t, "Site", displayName(" Site ", "", "www"))
	assert.Equal(t, "v4.0.0", displayName("", "4.0.0", "www"))
	assert.Equal(t, "www", displayName("", "", "www"))
}

func TestExtensions(t *testing.T) {
	inst, err := Load(memSite(t), "/www/site")
	require.NoError(t, err)

	exts, err := inst.Extensions()
	require.NoError(t, err)
	assert.Equal(t, []Extension{
		{Type: "component", Name: "com_broken", Client: ClientAdministrator,
			Manifest: "/www/site/administrator/components/com_broken/broken.xml"},
		{Type: "component", Name: "com_pccevents", Client: ClientAdministrator,
			Manifest: "/www/site/administrator/components/com_pccevents/pccevents.xml", Version: "1.2.0"},
		{Type: "module", Name: "mod_pccproducts", Client: ClientSite,
			Manifest: "/www/site/modules/mod_pccproducts/mod_pccproducts.xml", Version: "1.0.0"},
		{Type: "module", Name: "mod_pccstats", Client: ClientAdministrator,
			Manifest: "/www/site/administrator/modules/mod_pccstats/mod_pccstats.xml"},
		{Type: "package", Name: "pkg_pccevents", Client: ClientSite,
			Manifest: "/www/site/administrator/manifests/packages/pkg_pccevents.xml", Version: "2.0"},
	}, exts)

	t.Run("lookup", func(t *testing.T) {
		ext, err := inst.Extension("COM_PCCEVENTS")
		require.NoError(t, err)
		assert.Equal(t, "com_pccevents", ext.Name)

		ext, err = inst.Extension("pccproducts")
		require.NoError(t, err)
		assert.Equal(t, "mod_pccproducts", ext.Name)

		_, err = inst.Extension("com_missing")
		assert.ErrorIs(t, err, ErrExtensionNotFound)
		_, err = inst.Extension(" ")
		assert.ErrorIs(t, err, ErrExtensionNotFound)
	})

	t.Run("builder", func(t *testing.T) {
		b, err := inst.Builder("pkg_pccevents", nil)
		require.NoError(t, err)
		assert.Equal(t, builder.TypePackage, b.Type())

		_, err = inst.Builder("mod_missing", nil)
		assert.ErrorIs(t, err, ErrExtensionNotFound)
	})

	t.Run("missing web root", func(t *testing.T) {
		gone := &Installation{WebRoot: "/www/gone", files: fileaccess.NewMem()}
		_, err := gone.Extensions()
		assert.Error(t, err)
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()

	// Installation at the folder itself.
	writeFile(t, filepath.Join(root, "alpha", ConfigFile), configPHP)
	writeFile(t, filepath.Join(root, "alpha", VersionFile), versionPHP)

	// Installation nested below the folder.
	writeFile(t, filepath.Join(root, "beta", "public_html", ConfigFile),
		"<?php class JConfig { public $sitename = 'Beta'; public $dbtype = 'mysqli'; public $host = 'h';"+
			" public $user = 'u'; public $password = 'p'; public $db = 'd'; public $dbprefix = 'b_'; }")

	// Not an installation: incomplete configuration.
	writeFile(t, filepath.Join(root, "gamma", ConfigFile), "<?php public $host = 'x';")

	// Hidden and too deep folders are not searched.
	writeFile(t, filepath.Join(root, "delta", ".git", ConfigFile), configPHP)
	writeFile(t, filepath.Join(root, "epsilon", "a", "b", "c", "d", ConfigFile), configPHP)

	// A second root with an installation of the same name is dropped.
	writeFile(t, filepath.Join(other, "alpha", ConfigFile), configPHP)
	writeFile(t, filepath.Join(other, "alpha", VersionFile), versionPHP)

	var searched []string
	res, err := Discover(context.Background(), DiscoverOptions{
		Roots:    []string{root + ";" + other},
		OnFolder: func(p string) { searched = append(searched, filepath.Base(p)) },
	})
	require.NoError(t, err)

	names := make([]string, 0, len(res.Installations))
	for _, inst := range res.Installations {
		names = append(names, inst.Name)
	}
	assert.Equal(t, []string{"Pro Computer - v4.4.2 - source folder: alpha", "Beta"}, names)
	assert.Equal(t, []string{"alpha", "beta", "delta", "epsilon", "gamma", "alpha"}, searched)
	assert.Empty(t, res.Errors)

	beta, ok := res.Find("public_html")
	require.True(t, ok)
	assert.Equal(t, "b_", beta.Config.Get("dbprefix"))
	assert.Equal(t, "public_html", filepath.Base(beta.WebRoot))

	_, ok = res.Find("nope")
	assert.False(t, ok)
}

func TestDiscoverSymlinkVisitedOnce(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "site", ConfigFile), configPHP)
	if err := os.Symlink(filepath.Join(root, "site"), filepath.Join(root, "zlink")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	var searched []string
	res, err := Discover(context.Background(), DiscoverOptions{
		Roots:    []string{root},
		OnFolder: func(p string) { searched = append(searched, filepath.Base(p)) },
	})
	require.NoError(t, err)
	assert.Len(t, res.Installations, 1)
	assert.Equal(t, []string{"site"}, searched)
}

func TestDiscoverErrors(t *testing.T) {
	_, err := Discover(context.Background(), DiscoverOptions{Roots: []string{" ; "}})
	assert.ErrorIs(t, err, ErrNoRoots)

	_, err = Discover(context.Background(), DiscoverOptions{Roots: []string{filepath.Join(t.TempDir(), "missing")}})
	assert.Error(t, err)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "site", ConfigFile), configPHP)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Discover(ctx, DiscoverOptions{Roots: []string{root}})
	assert.ErrorIs(t, err, context.Canceled)
}

type memCache struct {
	roots   map[string][]string
	updates int
}

func (c *memCache) WebRoots(root string) ([]string, bool, error) {
	wr, ok := c.roots[root]
	return wr, ok, nil
}

func (c *memCache) Update(root string, webRoots []string, _ string) error {
	c.roots[root] = webRoots
	c.updates++
	return nil
}

func TestDiscoverCache(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "site", ConfigFile), configPHP)
	writeFile(t, filepath.Join(root, "other", ConfigFile), "<?php public $host = 'x';")

	c := &memCache{roots: make(map[string][]string)}
	var searched int
	opts := DiscoverOptions{
		Roots:    []string{root},
		Cache:    c,
		OnFolder: func(string) { searched++ },
	}

	first, err := Discover(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, first.Installations, 1)
	assert.Equal(t, 0, first.CachedRoots)
	assert.Equal(t, 2, searched)
	assert.Equal(t, 1, c.updates)
	require.Len(t, c.roots[root], 1)

	second, err := Discover(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, second.Installations, 1)
	assert.Equal(t, 1, second.CachedRoots)
	assert.Equal(t, 2, searched, "cached root is not walked")
	assert.Equal(t, first.Installations[0].WebRoot, second.Installations[0].WebRoot)

	t.Run("unreadable cached root walks again", func(t *testing.T) {
		c.roots[root] = []string{filepath.Join(root, "gone")}
		res, err := Discover(context.Background(), opts)
		require.NoError(t, err)
		assert.Len(t, res.Installations, 1)
		assert.Equal(t, 0, res.CachedRoots)
		assert.Equal(t, 4, searched)
	})
}
