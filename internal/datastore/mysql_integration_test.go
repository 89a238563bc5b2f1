//go:build integration

package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/friendswall/friendswall-go/internal/conf"
	"github.com/friendswall/friendswall-go/internal/errors"
)

// TestMySQLStore runs the friend-request flow against a real MySQL server.
// Run with: go test -tags=integration ./internal/datastore/...
func TestMySQLStore(t *testing.T) {
	ctx := t.Context()

	container, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("friendswall"),
		tcmysql.WithUsername("friendswall"),
		tcmysql.WithPassword("friendswall"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	settings := &conf.Settings{}
	settings.Database.MySQL = conf.MySQLSettings{
		Enabled:  true,
		Username: "friendswall",
		Password: "friendswall",
		Database: "friendswall",
		Host:     host,
		Port:     port.Port(),
	}

	store := New(settings, testLogger())
	require.NoError(t, store.Open())
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	me := createUser(t, store, "me@example.com")
	friend := createUser(t, store, "friend@example.com")

	_, err = store.CreateUser(ctx, NewUser{
		Email: "me@example.com", FirstName: "Someone", LastName: "Elsewhere",
		Gender: "female", DOB: "1990-01-01", Password: "password123",
	})
	assert.True(t, errors.IsConflict(err), "duplicate email is translated on MySQL too")

	_, err = store.SendFriendRequest(ctx, friend.ID, me.ID)
	require.NoError(t, err)

	requests, err := store.PendingFriendRequests(ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, friend.ID, requests[0].ID)
	assert.Equal(t, "friend", requests[0].Username)
}
