package engine_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cablehead/stacks/contentmeta"
	"github.com/cablehead/stacks/engine"
	"github.com/cablehead/stacks/packetlog"
	"github.com/cablehead/stacks/store"
)

func openTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := engine.Open(store.Paths{
		CASDir:       filepath.Join(dir, "cas"),
		IndexDir:     filepath.Join(dir, "index"),
		PacketsFile:  filepath.Join(dir, "packets.db"),
		MetaFile:     filepath.Join(dir, "meta.db"),
		SettingsFile: filepath.Join(dir, "settings.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestAddStackThenAddChild(t *testing.T) {
	e := openTestEngine(t)
	stackPacket, err := e.AddStack("clipboard", packetlog.Unlocked)
	require.NoError(t, err)

	_, err = e.Add([]byte("hello"), contentmeta.TextPlain, &stackPacket.ID)
	require.NoError(t, err)

	roots := e.GetRoot()
	require.Len(t, roots, 1)
	require.Equal(t, stackPacket.ID, roots[0].ID)
}

func TestDeleteThenUndoRestoresItem(t *testing.T) {
	e := openTestEngine(t)
	stackPacket, err := e.AddStack("s", packetlog.Unlocked)
	require.NoError(t, err)
	addPacket, err := e.Add([]byte("item"), contentmeta.TextPlain, &stackPacket.ID)
	require.NoError(t, err)

	_, err = e.Delete(addPacket.ID)
	require.NoError(t, err)

	view := e.Snapshot()
	_, exists := view.Items[addPacket.ID]
	require.False(t, exists)

	restoredID, err := e.Undo()
	require.NoError(t, err)
	require.Equal(t, addPacket.ID, restoredID)

	view = e.Snapshot()
	_, exists = view.Items[addPacket.ID]
	require.True(t, exists)
}

func TestUndoWithNothingToUndoErrors(t *testing.T) {
	e := openTestEngine(t)
	_, err := e.Undo()
	require.Error(t, err)
}

func TestRebuildOnReopenReplaysLog(t *testing.T) {
	dir := t.TempDir()
	paths := store.Paths{
		CASDir:       filepath.Join(dir, "cas"),
		IndexDir:     filepath.Join(dir, "index"),
		PacketsFile:  filepath.Join(dir, "packets.db"),
		MetaFile:     filepath.Join(dir, "meta.db"),
		SettingsFile: filepath.Join(dir, "settings.db"),
	}

	e1, err := engine.Open(paths)
	require.NoError(t, err)
	stackPacket, err := e1.AddStack("persisted stack", packetlog.Unlocked)
	require.NoError(t, err)
	require.NoError(t, e1.Close())

	e2, err := engine.Open(paths)
	require.NoError(t, err)
	defer e2.Close()

	roots := e2.GetRoot()
	require.Len(t, roots, 1)
	require.Equal(t, stackPacket.ID, roots[0].ID)
}

func TestUpdateContentTypeReflectsInMeta(t *testing.T) {
	e := openTestEngine(t)
	addPacket, err := e.Add([]byte("def f(): pass"), contentmeta.TextPlain, nil)
	require.NoError(t, err)

	_, err = e.UpdateContentType(*addPacket.Hash, "Python")
	require.NoError(t, err)

	cm, ok := e.GetContentMeta(*addPacket.Hash)
	require.True(t, ok)
	require.Equal(t, "Python", cm.ContentType)
}
