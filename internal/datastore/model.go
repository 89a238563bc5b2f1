// model.go this file defines the data model for the relational store
package datastore

import "time"

// User is a registered account.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	Username  string    `gorm:"column:username;size:255;index" json:"username"`
	FirstName string    `gorm:"column:first_name;size:255;not null" json:"first_name"`
	LastName  string    `gorm:"column:last_name;size:255;not null" json:"last_name"`
	Gender    string    `gorm:"column:gender;size:6;not null" json:"gender"`
	DOB       string    `gorm:"column:dob;size:10;not null" json:"dob"` // YYYY-MM-DD
	Password  string    `gorm:"column:password;size:60;not null" json:"-"` // bcrypt hash
	RegTime   time.Time `gorm:"column:regtime;autoCreateTime" json:"regtime"`
	Media     string    `gorm:"column:media;size:8" json:"media"` // per-user media directory
	DP        string    `gorm:"column:dp;size:8" json:"dp"`       // display picture name
}

// Post is a wall post. Deleted posts are kept with IsDeleted set.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UID       uint      `gorm:"column:uid;not null;index" json:"uid"`
	Text      string    `gorm:"column:text;size:2000" json:"text"`
	Media     string    `gorm:"column:media;size:12" json:"media"`
	Time      time.Time `gorm:"column:time;autoCreateTime;index" json:"time"`
	IsDeleted bool      `gorm:"column:isdeleted;not null;default:false" json:"-"`
}

// Friend is a friendship edge. Accepted is 0 while the request is pending and 1 once accepted.
type Friend struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	FromID   uint      `gorm:"column:fromid;not null;uniqueIndex:idx_friends_pair" json:"from_id"`
	ToID     uint      `gorm:"column:toid;not null;uniqueIndex:idx_friends_pair;index:idx_friends_inbox,priority:1" json:"to_id"`
	Accepted int       `gorm:"column:accepted;not null;default:0;index:idx_friends_inbox,priority:2" json:"accepted"`
	Time     time.Time `gorm:"column:time;autoCreateTime" json:"time"`
}

// Friend request states.
const (
	RequestPending  = 0
	RequestAccepted = 1
)

// Feedback is a message submitted through the help form.
type Feedback struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"column:name;size:255;not null" json:"name"`
	Email       string `gorm:"column:email;size:255;not null" json:"email"`
	Description string `gorm:"column:description;type:text;not null" json:"description"`
}

// TableName keeps the singular table name used by existing deployments.
func (Feedback) TableName() string { return "feedback" }

// FriendRequest is a pending incoming request projected onto the requester's
// public fields. ID is the requester's user id.
type FriendRequest struct {
	ID        uint   `gorm:"column:id" json:"id"`
	Username  string `gorm:"column:username" json:"username"`
	FirstName string `gorm:"column:first_name" json:"first_name"`
	LastName  string `gorm:"column:last_name" json:"last_name"`
	Media     string `gorm:"column:media" json:"media"`
	DP        string `gorm:"column:dp" json:"dp"`
}

// NewUser carries the registration form.
type NewUser struct {
	Email     string
	FirstName string
	LastName  string
	Gender    string
	DOB       string
	Password  string
}

// UserUpdate carries profile changes; empty fields are left unchanged.
type UserUpdate struct {
	FirstName string
	LastName  string
	Gender    string
	DOB       string
	Password  string
}
