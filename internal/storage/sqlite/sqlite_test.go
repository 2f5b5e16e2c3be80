package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtualmission/vlm/internal/database"
	"github.com/virtualmission/vlm/internal/model"
	"github.com/virtualmission/vlm/pkg/core"
)

func conversion(id string) *core.Conversion {
	return &core.Conversion{
		ID:          id,
		MissionName: "Harbor",
		CreatedAt:   time.Now(),
		KML:         []byte("<kml/>"),
	}
}

func TestInMemory_SaveAndList(t *testing.T) {
	b, err := New(Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.SaveConversion(conversion("m1")))
	list, err := b.ListConversions(10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Harbor", list[0].MissionName)
}

func TestFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")

	b, err := New(Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.SaveConversion(conversion("f1")))
	require.NoError(t, b.Close())

	reopened, err := New(Config{Path: path}, nil)
	require.NoError(t, err)
	require.NoError(t, reopened.Init())
	defer reopened.Close()

	c, err := reopened.GetConversion("f1")
	require.NoError(t, err)
	assert.Equal(t, "<kml/>", string(c.KML))
}

func TestCloseWritesFinalDump(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump.db")

	b, err := New(Config{DumpPath: dump, DumpInterval: time.Hour}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.SaveConversion(conversion("d1")))
	require.NoError(t, b.Close())

	_, err = os.Stat(dump)
	require.NoError(t, err)

	disk, err := database.GetSqliteDB(dump)
	require.NoError(t, err)
	var row model.Conversion
	require.NoError(t, disk.First(&row, "id = ?", "d1").Error)
}

func TestDumpLoop(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "periodic.db")

	b, err := New(Config{DumpPath: dump, DumpInterval: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.SaveConversion(conversion("p1")))
	assert.Eventually(t, func() bool {
		_, err := os.Stat(dump)
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNoDumpForFileDatabase(t *testing.T) {
	b, err := New(Config{Path: filepath.Join(t.TempDir(), "a.db"), DumpPath: "x.db", DumpInterval: time.Second}, nil)
	require.NoError(t, err)
	assert.False(t, b.dumping())
}
