package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendswall/friendswall-go/internal/errors"
)

func TestPendingFriendRequestsOrderAndProjection(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)
	ctx := t.Context()

	me := createUser(t, store, "me@example.com")
	alice := createUser(t, store, "alice@example.com")
	bob := createUser(t, store, "bob@example.com")
	carol := createUser(t, store, "carol@example.com")

	requests, err := store.PendingFriendRequests(ctx, me.ID)
	require.NoError(t, err)
	assert.NotNil(t, requests, "empty result is an empty slice")
	assert.Empty(t, requests)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, from := range []*User{alice, bob, carol} {
		f, err := store.SendFriendRequest(ctx, from.ID, me.ID)
		require.NoError(t, err)
		require.NoError(t, store.DB.Model(f).Update("time", base.Add(time.Duration(i)*time.Hour)).Error)
	}

	// Accepted requests and requests to other users are excluded.
	require.NoError(t, store.AcceptFriendRequest(ctx, bob.ID, me.ID))
	_, err = store.SendFriendRequest(ctx, alice.ID, carol.ID)
	require.NoError(t, err)

	requests, err = store.PendingFriendRequests(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, requests, 2)

	assert.Equal(t, carol.ID, requests[0].ID, "most recent first")
	assert.Equal(t, alice.ID, requests[1].ID)
	assert.Equal(t, FriendRequest{
		ID:        carol.ID,
		Username:  "carol",
		FirstName: carol.FirstName,
		LastName:  carol.LastName,
		Media:     carol.Media,
		DP:        carol.DP,
	}, requests[0])
}

func TestSendFriendRequestRules(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)
	ctx := t.Context()

	a := createUser(t, store, "a-user@example.com")
	b := createUser(t, store, "b-user@example.com")

	_, err := store.SendFriendRequest(ctx, a.ID, a.ID)
	assert.True(t, errors.IsValidation(err))

	_, err = store.SendFriendRequest(ctx, a.ID, 4242)
	assert.True(t, errors.IsNotFound(err))

	_, err = store.SendFriendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)

	_, err = store.SendFriendRequest(ctx, a.ID, b.ID)
	assert.True(t, errors.IsConflict(err))

	_, err = store.SendFriendRequest(ctx, b.ID, a.ID)
	assert.True(t, errors.IsConflict(err), "reverse direction is also a duplicate")

	require.NoError(t, store.AcceptFriendRequest(ctx, a.ID, b.ID))
	err = store.AcceptFriendRequest(ctx, a.ID, b.ID)
	assert.True(t, errors.IsNotFound(err), "only pending requests can be accepted")
}

func TestPendingFriendRequestsHonoursContext(t *testing.T) {
	t.Parallel()
	store := createDatabase(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := store.PendingFriendRequests(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
