package fileaccess

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSMem(t *testing.T) {
	p := NewMem()
	require.NoError(t, p.WriteFile("/site/components/com_x/controller.php", []byte("<?php")))

	assert.True(t, p.FileExists("/site/components/com_x/controller.php"))
	assert.True(t, p.FileExists("/site/components/com_x"))
	assert.True(t, p.IsDir("/site/components/com_x"))
	assert.False(t, p.IsDir("/site/components/com_x/controller.php"))
	assert.True(t, p.IsFile("/site/components/com_x/controller.php"))
	assert.False(t, p.IsFile("/site/missing.php"))

	resolved, ok := p.Realpath("/site/components/com_x/../com_x/controller.php")
	assert.True(t, ok)
	assert.Equal(t, "/site/components/com_x/controller.php", resolved)

	_, ok = p.Realpath("/nope")
	assert.False(t, ok)

	data, err := p.ReadFile("/site/components/com_x/controller.php")
	require.NoError(t, err)
	assert.Equal(t, "<?php", string(data))

	_, err = p.ReadFile("/nope")
	assert.True(t, IsNotExist(err))
}

func TestCopyTree(t *testing.T) {
	p := NewMem()
	require.NoError(t, p.WriteFile("/src/views/a/default.php", []byte("a")))
	require.NoError(t, p.WriteFile("/src/views/b.php", []byte("b")))

	require.NoError(t, Copy(p.Fs(), p.Fs(), "/src/views", "/dst/views"))

	data, err := afero.ReadFile(p.Fs(), "/dst/views/a/default.php")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
	assert.True(t, p.IsFile("/dst/views/b.php"))
}

func TestFSTempDir(t *testing.T) {
	p := NewMem()
	a, err := p.TempDir("pccpkg-")
	require.NoError(t, err)
	b, err := p.TempDir("pccpkg-")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, p.IsDir(a))
	assert.Contains(t, filepath.Base(a), "pccpkg-")
}

func TestCopyAcrossFilesystems(t *testing.T) {
	src := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(src, "/www/media/com_x/css/site.css", []byte("body{}"), 0o644))
	dst := afero.NewMemMapFs()

	require.NoError(t, Copy(src, dst, "/www/media/com_x", "/out/media"))
	data, err := afero.ReadFile(dst, "/out/media/css/site.css")
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(data))

	exists, err := afero.Exists(src, "/out/media")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Error(t, Copy(src, dst, "/www/missing", "/out/missing"))
}

func TestFSLocalRealpath(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.php")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	link := filepath.Join(dir, "link.php")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	p := NewOS()
	got, ok := p.Realpath(link)
	require.True(t, ok)

	want, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReconnecting(t *testing.T) {
	calls := 0
	r := NewReconnecting(NewMem(), func() error {
		calls++
		if calls == 2 {
			return errors.New("session refused")
		}
		return nil
	})

	require.NoError(t, r.Reopen())
	err := r.Reopen()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session refused")
	assert.Equal(t, int64(2), r.Reopens())

	var _ Provider = r
}
