package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinpoint-server/models"
	"pinpoint-server/utils/errors"
	"pinpoint-server/utils/logger"
)

func newTestWorkspaces(store MarkerStore, max int) *WorkspaceService {
	factory := func() *Shell {
		session := newTestSession(&fakeTokens{})
		return NewShell(session, store, &fakeResolver{name: "X"}, DefaultShellConfig(), WithControllerLogger(logger.Discard()))
	}
	return NewWorkspaceService(factory, max)
}

func TestWorkspaces_CreateGetClose(t *testing.T) {
	ws := newTestWorkspaces(newFakeStore(), 0)

	id, sh, err := ws.Create(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Len(t, sh.Controller().Markers(), 10)

	got, ok := ws.Get(id)
	require.True(t, ok)
	assert.Same(t, sh, got)
	assert.Equal(t, 1, ws.Len())

	assert.True(t, ws.Close(id))
	assert.False(t, ws.Close(id))
	_, ok = ws.Get(id)
	assert.False(t, ok)
}

func TestWorkspaces_AreIsolated(t *testing.T) {
	store := newFakeStore()
	store.seed("uid-alice", models.Marker{ID: "a1", Name: "Home"})
	ws := newTestWorkspaces(store, 0)

	_, one, err := ws.Create(context.Background())
	require.NoError(t, err)
	_, two, err := ws.Create(context.Background())
	require.NoError(t, err)

	signInAlice(t, one.Session())
	assert.Equal(t, []string{"a1"}, ids(one.Controller().Markers()))
	assert.Len(t, two.Controller().Markers(), 10)
	assert.Nil(t, two.Session().Identity())
}

func TestWorkspaces_Limit(t *testing.T) {
	ws := newTestWorkspaces(newFakeStore(), 2)
	for i := 0; i < 2; i++ {
		_, _, err := ws.Create(context.Background())
		require.NoError(t, err)
	}
	_, _, err := ws.Create(context.Background())
	assert.True(t, errors.Is(err, errors.ErrUnavailable))

	ws.CloseAll()
	assert.Zero(t, ws.Len())
	_, _, err = ws.Create(context.Background())
	assert.NoError(t, err)
}
