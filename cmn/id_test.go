package cmn_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cablehead/stacks/cmn"
)

func TestNewIDMonotonic(t *testing.T) {
	prev := cmn.NewID()
	for i := 0; i < 1000; i++ {
		id := cmn.NewID()
		require.True(t, prev.Less(id), "ids must be strictly increasing")
		prev = id
	}
}

func TestIDStringRoundTrip(t *testing.T) {
	id := cmn.NewID()
	parsed, err := cmn.ParseID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestIDTimeRecoversTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Millisecond)
	id := cmn.NewID()
	after := time.Now().Add(time.Millisecond)

	got := id.Time()
	require.False(t, got.Before(before))
	require.False(t, got.After(after))
}

func TestNilID(t *testing.T) {
	var id cmn.ID
	require.True(t, id.NilID())
	require.False(t, cmn.NewID().NilID())
}
