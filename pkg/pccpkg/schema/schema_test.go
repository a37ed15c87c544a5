package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/fileaccess"
)

const widgetsSQL = "-- widgets\n" +
	"CREATE TABLE IF NOT EXISTS `#__widgets` (\n" +
	"  `id` int NOT NULL,\n" +
	"  `title` varchar(255) NOT NULL DEFAULT ';'\n" +
	");\n" +
	"INSERT INTO `#__widgets` (`id`, `title`) VALUES (1, 'a;b');\n" +
	"CREATE TABLE `#__gadgets` (`id` int);\n"

func TestIsNoData(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want bool
	}{
		{"plain", "# __no_data__\n", true},
		{"leading blank lines", "\n\n   #__NO_DATA__ whatever follows\nCREATE TABLE `x` (id int);", true},
		{"tab after hash", "#\t__no_data__", true},
		{"not first line", "CREATE TABLE `x` (id int);\n# __no_data__", false},
		{"other comment", "# nothing here", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNoData(tt.sql))
		})
	}
}

func TestCreateTables(t *testing.T) {
	t.Run("quoted with if not exists", func(t *testing.T) {
		got := CreateTables("CREATE TABLE IF NOT EXISTS `#__widgets` (`id` int);")
		assert.Equal(t, []string{"#__widgets"}, got)
	})

	t.Run("distinct in first appearance order", func(t *testing.T) {
		sql := "CREATE TABLE `b` (id int);\ncreate table `a` (id int);\nCREATE TABLE `b` (id int);"
		assert.Equal(t, []string{"b", "a"}, CreateTables(sql))
	})

	t.Run("bare names only when nothing is quoted", func(t *testing.T) {
		sql := "CREATE TABLE IF NOT EXISTS #__plain (id int);\nCREATE TABLE other(id int);"
		assert.Equal(t, []string{"#__plain", "other"}, CreateTables(sql))
	})

	t.Run("none", func(t *testing.T) {
		assert.Nil(t, CreateTables("INSERT INTO x VALUES (1);"))
	})
}

func TestDropTables(t *testing.T) {
	sql := "DROP TABLE IF EXISTS `#__widgets`;\nDROP TABLE `#__gadgets`;"
	assert.Equal(t, []string{"#__widgets", "#__gadgets"}, DropTables(sql))
	assert.Nil(t, DropTables("# nothing"))
}

func TestParseCreateTables(t *testing.T) {
	tables, err := ParseCreateTables("install.sql", widgetsSQL)
	require.NoError(t, err)
	assert.Equal(t, []string{"#__widgets", "#__gadgets"}, tables)

	_, err = ParseCreateTables("install.sql", "SELECT 1;")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "install.sql", perr.File)
	assert.Contains(t, err.Error(), "CREATE TABLE statements found in file: install.sql")

	_, err = ParseCreateTables("install.sql", "  \n\t")
	assert.ErrorIs(t, err, ErrEmptyScript)
}

func TestSplitStatements(t *testing.T) {
	stmts := SplitStatements(widgetsSQL)
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "DEFAULT ';'")
	assert.Equal(t, "INSERT INTO `#__widgets` (`id`, `title`) VALUES (1, 'a;b')", stmts[1])
	assert.Equal(t, "CREATE TABLE `#__gadgets` (`id` int)", stmts[2])

	t.Run("comments dropped", func(t *testing.T) {
		got := SplitStatements("/* header; */\n# note; here\nDROP TABLE #__x;")
		assert.Equal(t, []string{"DROP TABLE #__x"}, got)
	})

	t.Run("table prefix at line start", func(t *testing.T) {
		got := SplitStatements("CREATE TABLE IF NOT EXISTS\n#__widgets (\n  id int\n);")
		require.Len(t, got, 1)
		assert.Equal(t, []string{"#__widgets"}, CreateTables(got[0]))
	})
}

func TestNewBundle(t *testing.T) {
	st := &Statements{
		Drop:   []string{"DROP 1;", "DROP 2;"},
		Create: []string{"CREATE 1;"},
	}
	b := NewBundle("/site/administrator/components/com_x/sql/install.mysql.utf8.sql", []string{"t"}, st)

	assert.Equal(t, "/site/administrator/components/com_x/sql/uninstall.mysql.utf8.sql", b.Drop.Path)
	assert.Equal(t, "DROP 1;"+Separator+"DROP 2;", b.Drop.Content)
	assert.Equal(t, "/site/administrator/components/com_x/sql/install.mysql.utf8.sql", b.Create.Path)
	assert.Equal(t, "/site/administrator/components/com_x/sql/sampledata.mysql.utf8.sql", b.Insert.Path)
	assert.Empty(t, b.Insert.Content)

	files := b.Files()
	require.Len(t, files, 3)
	assert.Equal(t, b.Drop, files[0])
	assert.Equal(t, b.Insert, files[2])
}

func TestScriptExporter(t *testing.T) {
	st, err := ScriptExporter{}.Export(context.Background(), Request{
		Tables: []string{"#__widgets", "#__gadgets"},
		Script: widgetsSQL,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"DROP TABLE IF EXISTS `#__widgets`;", "DROP TABLE IF EXISTS `#__gadgets`;"}, st.Drop)
	require.Len(t, st.Create, 2)
	assert.Contains(t, st.Create[0], "`#__widgets`")
	assert.Equal(t, "CREATE TABLE `#__gadgets` (`id` int);", st.Create[1])
	assert.Equal(t, []string{"INSERT INTO `#__widgets` (`id`, `title`) VALUES (1, 'a;b');"}, st.Insert)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ScriptExporter{}.Export(ctx, Request{Tables: []string{"x"}})
	assert.ErrorIs(t, err, context.Canceled)

	t.Run("prefix on its own line", func(t *testing.T) {
		script := "CREATE TABLE IF NOT EXISTS\n#__widgets (\n  id int\n);"
		st, err := ScriptExporter{}.Export(context.Background(), Request{
			Tables: CreateTables(script),
			Script: script,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"CREATE TABLE IF NOT EXISTS\n#__widgets (\n  id int\n);"}, st.Create)
	})

	t.Run("table without create statement", func(t *testing.T) {
		_, err := ScriptExporter{}.Export(context.Background(), Request{
			Tables:     []string{"#__widgets", "#__missing"},
			ScriptPath: "/sql/install.mysql.utf8.sql",
			Script:     widgetsSQL,
		})
		require.ErrorIs(t, err, ErrCreateNotFound)
		assert.Contains(t, err.Error(), "'#__missing' in install.mysql.utf8.sql")
	})
}

type failingExporter struct{}

func (failingExporter) Export(context.Context, Request) (*Statements, error) {
	return nil, errors.New("connection refused")
}

func TestExporter(t *testing.T) {
	files := fileaccess.NewMem()
	require.NoError(t, files.WriteFile("/sql/install.sql", []byte(widgetsSQL)))
	require.NoError(t, files.WriteFile("/sql/nodata.sql", []byte("# __no_data__\n")))
	require.NoError(t, files.WriteFile("/sql/uninstall.sql", []byte("DROP TABLE IF EXISTS `#__widgets`;")))
	ctx := context.Background()

	t.Run("install", func(t *testing.T) {
		b, err := NewExporter(files, nil).Install(ctx, "/sql/install.sql")
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, []string{"#__widgets", "#__gadgets"}, b.Tables)
		assert.Equal(t, "/sql/uninstall.mysql.utf8.sql", b.Drop.Path)
	})

	t.Run("no data", func(t *testing.T) {
		b, err := NewExporter(files, nil).Install(ctx, "/sql/nodata.sql")
		require.NoError(t, err)
		assert.Nil(t, b)
	})

	t.Run("missing script", func(t *testing.T) {
		_, err := NewExporter(files, nil).Install(ctx, "/sql/missing.sql")
		assert.ErrorIs(t, err, ErrScriptNotFound)
	})

	t.Run("collaborator failure", func(t *testing.T) {
		_, err := NewExporter(files, failingExporter{}).Install(ctx, "/sql/install.sql")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("uninstall", func(t *testing.T) {
		dropped, err := NewExporter(files, nil).Uninstall("/sql/uninstall.sql")
		require.NoError(t, err)
		assert.Equal(t, []string{"#__widgets"}, dropped)
	})
}

func TestWriteFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	b := NewBundle("/out/sql/install.mysql.utf8.sql", nil, &Statements{Create: []string{"CREATE TABLE `t` (id int);"}})
	require.NoError(t, WriteFiles(fsys, b.Files()))

	data, err := afero.ReadFile(fsys, "/out/sql/install.mysql.utf8.sql")
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE `t` (id int);", string(data))

	exists, err := afero.Exists(fsys, "/out/sql/sampledata.mysql.utf8.sql")
	require.NoError(t, err)
	assert.True(t, exists)
}
