package datastore

import (
	"context"

	"gorm.io/gorm"

	"github.com/friendswall/friendswall-go/internal/errors"
)

// SendFriendRequest records a pending request from fromID to toID.
// A request is rejected when any edge already links the two users.
func (ds *DataStore) SendFriendRequest(ctx context.Context, fromID, toID uint) (*Friend, error) {
	if fromID == toID {
		return nil, validationError("You cannot send a friend request to yourself", "to", toID)
	}

	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&User{}).Where("id = ?", toID).Count(&count).Error; err != nil {
		return nil, dbError(err, "send_friend_request")
	}
	if count == 0 {
		return nil, notFoundError("User with given id doesnot exist", "send_friend_request")
	}

	if err := db.Model(&Friend{}).
		Where("(fromid = ? AND toid = ?) OR (fromid = ? AND toid = ?)", fromID, toID, toID, fromID).
		Count(&count).Error; err != nil {
		return nil, dbError(err, "send_friend_request")
	}
	if count > 0 {
		return nil, conflictError("Friend request already exists", "send_friend_request")
	}

	friend := &Friend{FromID: fromID, ToID: toID, Accepted: RequestPending}
	if err := db.Create(friend).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictError("Friend request already exists", "send_friend_request")
		}
		return nil, dbError(err, "send_friend_request")
	}
	return friend, nil
}

// AcceptFriendRequest accepts the pending request sent by fromID to toID.
func (ds *DataStore) AcceptFriendRequest(ctx context.Context, fromID, toID uint) error {
	db, err := ds.db(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&Friend{}).
		Where("fromid = ? AND toid = ? AND accepted = ?", fromID, toID, RequestPending).
		Update("accepted", RequestAccepted)
	if result.Error != nil {
		return dbError(result.Error, "accept_friend_request")
	}
	if result.RowsAffected == 0 {
		return notFoundError("Friend request does not exist", "accept_friend_request")
	}
	return nil
}

// PendingFriendRequests returns the requesters of all pending requests sent
// to toID, most recent first.
func (ds *DataStore) PendingFriendRequests(ctx context.Context, toID uint) ([]FriendRequest, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}

	requests := []FriendRequest{}
	err = db.Table("users").
		Select("users.id, users.username, users.first_name, users.last_name, users.media, users.dp").
		Joins("INNER JOIN friends ON friends.fromid = users.id").
		Where("friends.toid = ? AND friends.accepted = ?", toID, RequestPending).
		Order("friends.time DESC").
		Order("friends.id DESC").
		Scan(&requests).Error
	if err != nil {
		return nil, dbError(err, "pending_friend_requests", "to_id", toID)
	}
	return requests, nil
}
