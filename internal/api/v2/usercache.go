package api

import (
	"context"
	"strconv"

	"github.com/patrickmn/go-cache"

	"github.com/friendswall/friendswall-go/internal/datastore"
	"github.com/friendswall/friendswall-go/internal/informer"
)

func userCacheKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func snapshotOf(u *datastore.User) informer.UserSnapshot {
	return informer.UserSnapshot{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// userSnapshot resolves the profile shown on the event stream, caching it for UserCacheTTL.
func (c *Controller) userSnapshot(ctx context.Context, id uint) (informer.UserSnapshot, error) {
	key := userCacheKey(id)
	if v, ok := c.userCache.Get(key); ok {
		if snap, ok := v.(informer.UserSnapshot); ok {
			return snap, nil
		}
	}

	user, err := c.DS.GetUser(ctx, id)
	if err != nil {
		return informer.UserSnapshot{}, err
	}

	snap := snapshotOf(user)
	c.userCache.Set(key, snap, cache.DefaultExpiration)
	return snap, nil
}

// forgetUser drops the cached snapshot after a profile change.
func (c *Controller) forgetUser(id uint) {
	c.userCache.Delete(userCacheKey(id))
}
