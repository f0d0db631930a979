package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProviderResolve(t *testing.T) {
	p := NewStaticProvider(DefaultPlayers())

	got, err := p.Resolve("virat-kohli")
	require.NoError(t, err)
	assert.Equal(t, "Virat Kohli", got.Name)
	assert.Equal(t, int64(15), got.Cost)

	_, err = p.Resolve("nobody")
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestStaticProviderListIsACopy(t *testing.T) {
	p := NewStaticProvider(DefaultPlayers())

	players, err := p.ListPlayers(context.Background(), "match-1")
	require.NoError(t, err)
	require.Len(t, players, 12)

	players[0].Cost = 999

	again, err := p.ListPlayers(context.Background(), "match-1")
	require.NoError(t, err)
	assert.NotEqual(t, int64(999), again[0].Cost, "callers must not mutate the snapshot")
}
