package store

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService_PerformBackup(t *testing.T) {
	logger := zerolog.New(io.Discard)
	dir := t.TempDir()

	dbPath := filepath.Join(dir, "slots.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("database contents"), 0o644))

	backupDir := filepath.Join(dir, "backups")
	svc := NewBackupService(dbPath, BackupConfig{
		Enabled:     true,
		StoragePath: backupDir,
	}, &logger)

	require.NoError(t, svc.PerformBackup())

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(backupDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, []byte("database contents"), data)
}

func TestBackupService_CleanupOldBackups(t *testing.T) {
	logger := zerolog.New(io.Discard)
	backupDir := t.TempDir()

	oldFile := filepath.Join(backupDir, "slots_20200101_000000.db")
	require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(oldFile, past, past))

	freshFile := filepath.Join(backupDir, "slots_fresh.db")
	require.NoError(t, os.WriteFile(freshFile, []byte("fresh"), 0o644))

	svc := NewBackupService("unused.db", BackupConfig{
		Enabled:       true,
		StoragePath:   backupDir,
		RetentionDays: 14,
	}, &logger)
	svc.CleanupOldBackups()

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "slots_fresh.db", entries[0].Name())
}
