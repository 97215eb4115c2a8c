package chainactions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemoryExecutorGeneratesDistinctHashes(t *testing.T) {
	e := InMemoryExecutor{}
	ctx := context.Background()

	h1, err := e.Announce(ctx, AnnouncementData{Multiaddress: "/ip4/127.0.0.1/tcp/1"})
	require.NoError(t, err)
	h2, err := e.Announce(ctx, AnnouncementData{Multiaddress: "/ip4/127.0.0.1/tcp/2"})
	require.NoError(t, err)

	require.NotEqual(t, Hash{}, h1)
	require.NotEqual(t, h1, h2)
}
