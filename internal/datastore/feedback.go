package datastore

import (
	"context"
	"strings"
)

// InsertFeedback stores a help form submission. All fields are required.
func (ds *DataStore) InsertFeedback(ctx context.Context, name, email, description string) (*Feedback, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(description) == "" {
		return nil, validationError("Data incomplete.", "feedback", name)
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}

	fb := &Feedback{Name: name, Email: email, Description: description}
	if err := db.Create(fb).Error; err != nil {
		return nil, dbError(err, "insert_feedback")
	}
	return fb, nil
}

// ListFeedback returns one page of feedback in insertion order. Pages start at 1;
// smaller values are treated as 1.
func (ds *DataStore) ListFeedback(ctx context.Context, page int) ([]Feedback, error) {
	if page < 1 {
		page = 1
	}

	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}

	rows := []Feedback{}
	if err := db.Order("id ASC").
		Offset((page - 1) * ds.pageSize).
		Limit(ds.pageSize).
		Find(&rows).Error; err != nil {
		return nil, dbError(err, "list_feedback", "page", page)
	}
	return rows, nil
}

// DeleteFeedback removes a feedback row.
func (ds *DataStore) DeleteFeedback(ctx context.Context, id uint) error {
	db, err := ds.db(ctx)
	if err != nil {
		return err
	}

	result := db.Delete(&Feedback{}, id)
	if result.Error != nil {
		return dbError(result.Error, "delete_feedback")
	}
	if result.RowsAffected == 0 {
		return notFoundError("Feedback with given id does not exist", "delete_feedback")
	}
	return nil
}
