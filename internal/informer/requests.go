package informer

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/friendswall/friendswall-go/internal/datastore"
	"github.com/friendswall/friendswall-go/internal/logger"
)

// RequestSource returns the pending friend requests sent to a user, most recent first.
type RequestSource interface {
	PendingFriendRequests(ctx context.Context, toID uint) ([]datastore.FriendRequest, error)
}

// FriendRequestInformer streams the list of pending incoming friend requests
// every time it changes. It never finishes on its own.
//
// A failed query emits the generic error for that tick and leaves the cached
// list untouched, so recovery with unchanged data sends nothing.
type FriendRequestInformer struct {
	source    RequestSource
	logger    logger.Logger
	user      *UserSnapshot
	errMsg    string
	cache     []datastore.FriendRequest
	populated bool
}

// NewFriendRequestInformer returns an informer reading from source.
func NewFriendRequestInformer(source RequestSource, log logger.Logger) *FriendRequestInformer {
	if log == nil {
		log = logger.NewConsoleLogger("informer", logger.LogLevelInfo)
	}
	return &FriendRequestInformer{source: source, logger: log}
}

// SetUser sets the recipient whose requests are streamed.
func (f *FriendRequestInformer) SetUser(user UserSnapshot) {
	f.user = &user
}

// Check queries the source and reports whether the list differs from the
// last one sent. Without a user it reports the generic error on every tick.
func (f *FriendRequestInformer) Check(ctx context.Context) bool {
	if f.user == nil {
		f.errMsg = GenericError
		return true
	}

	rows, err := f.source.PendingFriendRequests(ctx, f.user.ID)
	if err != nil {
		// A closed stream is not a data-source failure.
		if ctx.Err() != nil {
			return false
		}
		f.logger.Warn("pending friend request query failed",
			logger.Uint64("user_id", uint64(f.user.ID)),
			logger.Error(err))
		f.errMsg = GenericError
		return true
	}
	f.errMsg = ""

	if f.populated && slices.Equal(rows, f.cache) {
		return false
	}
	f.cache = rows
	f.populated = true
	return true
}

// Update returns the error payload or the cached list as a JSON array.
func (f *FriendRequestInformer) Update() string {
	if f.errMsg != "" {
		return ErrorPayload(f.errMsg)
	}
	rows := f.cache
	if rows == nil {
		rows = []datastore.FriendRequest{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return ErrorPayload(GenericError)
	}
	return string(data)
}
