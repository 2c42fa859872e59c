package storage

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagingAreaStageReadDelete(t *testing.T) {
	area, err := NewStagingArea(t.TempDir(), 0)
	require.NoError(t, err)

	name, err := area.Stage("photo employee/1", strings.NewReader("bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "photo_employee_1-"))

	data, err := area.Read(name)
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))

	require.NoError(t, area.Delete(name))
	_, err = os.Stat(area.Path(name))
	assert.True(t, os.IsNotExist(err))
}

func TestStagingAreaRejectsOversized(t *testing.T) {
	dir := t.TempDir()
	area, err := NewStagingArea(dir, 4)
	require.NoError(t, err)

	_, err = area.Stage("big", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStagingAreaRejectsNestedNames(t *testing.T) {
	area, err := NewStagingArea(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = area.Read("../config.go")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestStagingAreaCleanupOlderThan(t *testing.T) {
	area, err := NewStagingArea(t.TempDir(), 0)
	require.NoError(t, err)

	old, err := area.Stage("old", strings.NewReader("a"))
	require.NoError(t, err)
	fresh, err := area.Stage("fresh", strings.NewReader("b"))
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(area.Path(old), past, past))

	deleted, err := area.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{old}, deleted)

	_, err = os.Stat(area.Path(fresh))
	assert.NoError(t, err)
}
