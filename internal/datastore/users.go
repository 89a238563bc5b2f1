package datastore

import (
	"context"
	"crypto/rand"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/friendswall/friendswall-go/internal/errors"
	"github.com/friendswall/friendswall-go/internal/logger"
)

const mediaAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrEmailExists is the message returned when registering an address twice.
const ErrEmailExists = "email address already exists. Please login to your account."

// randomMediaName returns n random alphanumerics.
func randomMediaName(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = mediaAlphabet[int(b)%len(mediaAlphabet)]
	}
	return string(buf), nil
}

// usernameFromEmail derives the public handle from the local part of an address.
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return strings.ToLower(local)
}

// CreateUser validates and stores a new account with a bcrypt password hash.
func (ds *DataStore) CreateUser(ctx context.Context, nu NewUser) (*User, error) {
	if err := nu.validate(ds.now()); err != nil {
		return nil, err
	}

	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategorySystem).
			Context("operation", "hash_password").
			Build()
	}

	media, err := randomMediaName(dpLength)
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategorySystem).
			Context("operation", "generate_media_name").
			Build()
	}

	user := &User{
		Email:     nu.Email,
		Username:  usernameFromEmail(nu.Email),
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Gender:    nu.Gender,
		DOB:       nu.DOB,
		Password:  string(hash),
		Media:     media,
	}

	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictError(ErrEmailExists, "create_user")
		}
		return nil, dbError(err, "create_user")
	}

	ds.logger.Debug("user created", logger.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

// GetUser returns the user with the given id.
func (ds *DataStore) GetUser(ctx context.Context, id uint) (*User, error) {
	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}

	var user User
	if err := db.First(&user, id).Error; err != nil {
		return nil, lookupError(err, "User with given id doesnot exist", "get_user")
	}
	return &user, nil
}

// GetUserByEmail returns the user registered with email.
func (ds *DataStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	db, err := ds.db(ctx)
	if err != nil {
		return nil, err
	}

	var user User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, lookupError(err, "User with given email doesnot exist", "get_user_by_email")
	}
	return &user, nil
}

// UpdateUser applies the non-empty fields of upd to the user.
func (ds *DataStore) UpdateUser(ctx context.Context, id uint, upd UserUpdate) (*User, error) {
	updates := map[string]any{}

	if upd.FirstName != "" {
		if err := validateFirstName(upd.FirstName); err != nil {
			return nil, err
		}
		updates["first_name"] = upd.FirstName
	}
	if upd.LastName != "" {
		if err := validateLastName(upd.LastName); err != nil {
			return nil, err
		}
		updates["last_name"] = upd.LastName
	}
	if upd.Gender != "" {
		if err := validateGender(upd.Gender); err != nil {
			return nil, err
		}
		updates["gender"] = upd.Gender
	}
	if upd.DOB != "" {
		if err := validateDOB(upd.DOB, ds.now()); err != nil {
			return nil, err
		}
		updates["dob"] = upd.DOB
	}
	if upd.Password != "" {
		if err := validatePassword(upd.Password); err != nil {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, dbError(err, "hash_password")
		}
		updates["password"] = string(hash)
	}

	if len(updates) > 0 {
		if err := ds.updateUserColumns(ctx, id, updates, "update_user"); err != nil {
			return nil, err
		}
	}

	return ds.GetUser(ctx, id)
}

// SetUserDP sets the display picture name.
func (ds *DataStore) SetUserDP(ctx context.Context, id uint, dp string) error {
	if err := validateDP(dp); err != nil {
		return err
	}
	return ds.updateUserColumns(ctx, id, map[string]any{"dp": dp}, "set_user_dp")
}

func (ds *DataStore) updateUserColumns(ctx context.Context, id uint, updates map[string]any, operation string) error {
	db, err := ds.db(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return dbError(result.Error, operation)
	}
	if result.RowsAffected == 0 {
		// MySQL reports 0 affected rows for no-op updates, so confirm the row exists.
		var count int64
		if err := db.Model(&User{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return dbError(err, operation)
		}
		if count == 0 {
			return notFoundError("User with given id doesnot exist", operation)
		}
	}
	return nil
}

// Authenticate returns the user when email and password match.
func (ds *DataStore) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := ds.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) || errors.IsValidation(err) {
			return nil, authError("authenticate")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, authError("authenticate")
	}
	return user, nil
}
