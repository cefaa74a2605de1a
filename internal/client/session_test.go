package client

import (
	"context"
	"testing"

	"ordersync/internal/infra/localstate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_FavoritesPersistAcrossRestart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	state := localstate.NewMemStore()

	session := NewSession(ctx, SessionParams{Logger: newDiscardLogger(), State: state})
	defer session.Close()

	session.AddFavorite(ctx, "r-2")
	session.AddFavorite(ctx, "r-1")
	session.AddFavorite(ctx, "r-1")

	assert.Equal(t, []string{"r-1", "r-2"}, session.Favorites())

	restored := NewSession(ctx, SessionParams{Logger: newDiscardLogger(), State: state})
	defer restored.Close()

	assert.Equal(t, []string{"r-1", "r-2"}, restored.Favorites())

	restored.RemoveFavorite(ctx, "r-1")
	restored.RemoveFavorite(ctx, "missing")
	assert.Equal(t, []string{"r-2"}, restored.Favorites())
}

func TestSession_RestoreAuth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	state := localstate.NewMemStore()

	session := NewSession(ctx, SessionParams{Logger: newDiscardLogger(), State: state})
	defer session.Close()

	_, ok := session.RestoreAuth(ctx)
	assert.False(t, ok, "fresh state has no auth")

	require.NoError(t, session.Connect(ctx, "ws://127.0.0.1:1/ws/orders", AuthState{
		Token:       "token-1",
		PrincipalID: "u-1",
		Roles:       []string{"customer"},
	}))

	auth, ok := session.RestoreAuth(ctx)
	require.True(t, ok)
	assert.Equal(t, "token-1", auth.Token)
	assert.Equal(t, "u-1", auth.PrincipalID)
	assert.False(t, auth.SavedAt.IsZero())
}

func TestSession_LogoutClearsAuthKeepsCart(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	state := localstate.NewMemStore()

	session := NewSession(ctx, SessionParams{Logger: newDiscardLogger(), State: state})
	session.Cart.AddItem(ctx, dumplings(1))
	require.NoError(t, session.Connect(ctx, "ws://127.0.0.1:1/ws/orders", AuthState{Token: "token-1"}))

	session.Logout(ctx)

	restored := NewSession(ctx, SessionParams{Logger: newDiscardLogger(), State: state})
	defer restored.Close()

	_, ok := restored.RestoreAuth(ctx)
	assert.False(t, ok)
	assert.Len(t, restored.Cart.Items(), 1)
}
