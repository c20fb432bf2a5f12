package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cablehead/stacks/contentmeta"
	"github.com/cablehead/stacks/packetlog"
)

func TestCurrentStackCreatesNewStackWhenNoneExist(t *testing.T) {
	e := openTestEngine(t)
	id, err := e.CurrentStack(time.Now())
	require.NoError(t, err)

	roots := e.GetRoot()
	require.Len(t, roots, 1)
	require.Equal(t, roots[0].ID, id)
}

func TestCurrentStackReusesRecentStack(t *testing.T) {
	e := openTestEngine(t)
	first, err := e.CurrentStack(time.Now())
	require.NoError(t, err)

	second, err := e.CurrentStack(time.Now())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCurrentStackStartsFreshStackPastWindow(t *testing.T) {
	e := openTestEngine(t)
	first, err := e.CurrentStack(time.Now())
	require.NoError(t, err)

	later := time.Now().Add(2 * time.Hour)
	second, err := e.CurrentStack(later)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	roots := e.GetRoot()
	require.Len(t, roots, 2)
}

func TestCurrentStackIgnoresNonRootItems(t *testing.T) {
	e := openTestEngine(t)
	stackPacket, err := e.AddStack("unrelated", packetlog.Unlocked)
	require.NoError(t, err)
	_, err = e.Add([]byte("child"), contentmeta.TextPlain, &stackPacket.ID)
	require.NoError(t, err)

	id, err := e.CurrentStack(time.Now())
	require.NoError(t, err)
	require.Equal(t, stackPacket.ID, id, "the most recently touched root stack should be reused")
}
