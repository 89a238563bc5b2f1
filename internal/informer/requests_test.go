package informer

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendswall/friendswall-go/internal/datastore"
	"github.com/friendswall/friendswall-go/internal/logger"
)

// scriptedSource returns one scripted response per call; the last one repeats.
type scriptedSource struct {
	mu        sync.Mutex
	responses []sourceResponse
	calls     int
	lastToID  uint
}

type sourceResponse struct {
	rows []datastore.FriendRequest
	err  error
}

func (s *scriptedSource) PendingFriendRequests(_ context.Context, toID uint) ([]datastore.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastToID = toID
	i := min(s.calls, len(s.responses)-1)
	s.calls++
	r := s.responses[i]
	return cloneRows(r.rows), r.err
}

func cloneRows(rows []datastore.FriendRequest) []datastore.FriendRequest {
	if rows == nil {
		return nil
	}
	return append([]datastore.FriendRequest{}, rows...)
}

func ok(rows ...datastore.FriendRequest) sourceResponse {
	if rows == nil {
		rows = []datastore.FriendRequest{}
	}
	return sourceResponse{rows: rows}
}

func fail() sourceResponse {
	return sourceResponse{err: assert.AnError}
}

func req(id uint) datastore.FriendRequest {
	return datastore.FriendRequest{ID: id, Username: "user", FirstName: "First", LastName: "Last", Media: "abcdefgh"}
}

func quietLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func newRequestInformer(src RequestSource) *FriendRequestInformer {
	f := NewFriendRequestInformer(src, quietLogger())
	f.SetUser(UserSnapshot{ID: 42})
	return f
}

func idsOf(t *testing.T, payload string) []int64 {
	t.Helper()
	v, err := jason.NewValueFromBytes([]byte(payload))
	require.NoError(t, err)
	arr, err := v.Array()
	require.NoError(t, err, "payload %s is not an array", payload)

	ids := make([]int64, 0, len(arr))
	for _, item := range arr {
		obj, err := item.Object()
		require.NoError(t, err)
		id, err := obj.GetInt64("id")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestFriendRequestInformerScenario(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{responses: []sourceResponse{
		ok(req(5)),
		ok(req(5)),
		ok(req(7), req(5)),
	}}
	f := newRequestInformer(src)
	ctx := t.Context()

	require.True(t, f.Check(ctx), "tick 1 emits")
	assert.Equal(t, []int64{5}, idsOf(t, f.Update()))
	assert.Equal(t, uint(42), src.lastToID)

	assert.False(t, f.Check(ctx), "tick 2 has identical data")

	require.True(t, f.Check(ctx), "tick 3 emits the new list")
	assert.Equal(t, []int64{7, 5}, idsOf(t, f.Update()))
}

func TestFriendRequestInformerStableDataEmitsOnce(t *testing.T) {
	t.Parallel()

	f := newRequestInformer(&scriptedSource{responses: []sourceResponse{ok(req(1), req(2))}})

	fired := 0
	for range 20 {
		if f.Check(t.Context()) {
			fired++
			f.Update()
		}
	}
	assert.Equal(t, 1, fired)
}

func TestFriendRequestInformerOrderMatters(t *testing.T) {
	t.Parallel()

	f := newRequestInformer(&scriptedSource{responses: []sourceResponse{
		ok(req(1), req(2)),
		ok(req(2), req(1)),
	}})

	require.True(t, f.Check(t.Context()))
	f.Update()
	require.True(t, f.Check(t.Context()), "reordering is a change")
	assert.Equal(t, []int64{2, 1}, idsOf(t, f.Update()))
}

func TestFriendRequestInformerFieldChangeIsDetected(t *testing.T) {
	t.Parallel()

	changed := req(1)
	changed.DP = "newpic01"
	f := newRequestInformer(&scriptedSource{responses: []sourceResponse{ok(req(1)), ok(changed)}})

	require.True(t, f.Check(t.Context()))
	f.Update()
	assert.True(t, f.Check(t.Context()))
}

func TestFriendRequestInformerEmptyFirstPopulation(t *testing.T) {
	t.Parallel()

	f := newRequestInformer(&scriptedSource{responses: []sourceResponse{ok()}})

	require.True(t, f.Check(t.Context()), "first population emits even when empty")
	assert.Equal(t, "[]", f.Update())
	assert.False(t, f.Check(t.Context()))
}

func TestFriendRequestInformerErrorKeepsCache(t *testing.T) {
	t.Parallel()

	f := newRequestInformer(&scriptedSource{responses: []sourceResponse{
		ok(req(5)),
		fail(),
		fail(),
		ok(req(5)),
		ok(req(9), req(5)),
	}})
	ctx := t.Context()

	require.True(t, f.Check(ctx))
	f.Update()

	for range 2 {
		require.True(t, f.Check(ctx), "failure is reported on every failing tick")
		assert.Equal(t, `{"error":"internal error occurd"}`, f.Update())
	}

	assert.False(t, f.Check(ctx), "recovery with unchanged data sends nothing")

	require.True(t, f.Check(ctx))
	assert.Equal(t, []int64{9, 5}, idsOf(t, f.Update()), "error flag is cleared after recovery")
}

func TestFriendRequestInformerWithoutUser(t *testing.T) {
	t.Parallel()

	src := &scriptedSource{responses: []sourceResponse{ok(req(1))}}
	f := NewFriendRequestInformer(src, quietLogger())

	for range 3 {
		require.True(t, f.Check(t.Context()))
		assert.Equal(t, `{"error":"internal error occurd"}`, f.Update())
	}
	assert.Zero(t, src.calls, "no query without a user")
}

func TestFriendRequestInformerCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	f := newRequestInformer(&scriptedSource{responses: []sourceResponse{{err: context.Canceled}}})
	assert.False(t, f.Check(ctx), "a closed stream is not reported as a failure")
}
