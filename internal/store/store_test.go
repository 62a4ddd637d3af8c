package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scafiti/exfatrescue/internal/entity"
	"github.com/scafiti/exfatrescue/internal/exfat"
	"github.com/scafiti/exfatrescue/internal/store"
)

func TestRecordTreeWritesOrphansAndDescendants(t *testing.T) {
	root := entity.NewRoot()

	fde := exfat.NewEntry(exfat.TypeFileDirectory)
	fde.SetAttributes(exfat.AttrDirectory)
	stream := exfat.NewEntry(exfat.TypeStreamExtension)
	dir := entity.NewDirectory(512, fde, stream, "ORPHANED")
	root.AddChild(dir)

	fileFDE := exfat.NewEntry(exfat.TypeFileDirectory)
	fileStream := exfat.NewEntry(exfat.TypeStreamExtension)
	file := entity.NewFile(1024, fileFDE, fileStream, "CHILD.TXT")
	dir.AddChild(file)

	dir2 := filepath.Join(t.TempDir(), "run.log")
	repo := store.NewCSVRepository(dir2)

	require.NoError(t, store.RecordTree(root, repo))
	require.NoError(t, repo.MarkCopied(1024))
	require.NoError(t, repo.Close())

	orphans, err := repo.IterOrphanDirs()
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	require.Equal(t, uint64(512), orphans[0].Offset)

	_, err = os.Stat(dir2 + ".entities.csv")
	require.NoError(t, err)
	_, err = os.Stat(dir2 + ".relocations.csv")
	require.NoError(t, err)
}

func TestMarkCopiedUnknownOffsetErrors(t *testing.T) {
	repo := store.NewCSVRepository(filepath.Join(t.TempDir(), "run.log"))
	require.Error(t, repo.MarkCopied(999))
}
