package datastore

import "context"

// CreatePost stores a post for an existing user.
func (ds *DataStore) CreatePost(ctx context.Context, uid uint, text, media string) (*Post, error) {
	if err := validatePostText(text); err != nil {
		return nil, err
	}
	if err := validatePostMedia(media); err != nil {
		return nil, err
	}

	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&User{}).Where("id = ?", uid).Count(&count).Error; err != nil {
		return nil, dbError(err, "create_post")
	}
	if count == 0 {
		return nil, validationError("User with given id does not exist", "uid", uid)
	}

	post := &Post{UID: uid, Text: text, Media: media}
	if err := db.Create(post).Error; err != nil {
		return nil, dbError(err, "create_post")
	}
	return post, nil
}

// GetPost returns a post that has not been deleted.
func (ds *DataStore) GetPost(ctx context.Context, id uint) (*Post, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}

	var post Post
	if err := db.Where("id = ? AND isdeleted = ?", id, false).First(&post).Error; err != nil {
		return nil, lookupError(err, "Post with given id doesnot exist", "get_post")
	}
	return &post, nil
}

// DeletePost marks a post deleted; the row is kept.
func (ds *DataStore) DeletePost(ctx context.Context, id uint) error {
	db, err := ds.db(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&Post{}).Where("id = ? AND isdeleted = ?", id, false).Update("isdeleted", true)
	if result.Error != nil {
		return dbError(result.Error, "delete_post")
	}
	if result.RowsAffected == 0 {
		return notFoundError("Post with given id doesnot exist", "delete_post")
	}
	return nil
}
