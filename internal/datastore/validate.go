package datastore

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	minimumAge        = 13
	maxPostText       = 2000
	postMediaLength   = 12
	dpLength          = 8
	dobLayout         = "2006-01-02"
)

var (
	namePattern = regexp.MustCompile(`^[a-zA-Z0-9'-]{5,255}$`)
	dobPattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dpPattern   = regexp.MustCompile(`^[a-zA-Z0-9]{8}$`)
)

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validationError("Invalid email", "email", email)
	}
	return nil
}

func validateFirstName(name string) error {
	if !namePattern.MatchString(name) {
		return validationError("First Name invalid", "first_name", name)
	}
	return nil
}

func validateLastName(name string) error {
	if !namePattern.MatchString(name) {
		return validationError("Last Name invalid", "last_name", name)
	}
	return nil
}

func validateGender(gender string) error {
	if gender != "male" && gender != "female" {
		return validationError("Gender invalid", "gender", gender)
	}
	return nil
}

// validateDOB checks the date format and that the user is at least 13 years old at now.
func validateDOB(dob string, now time.Time) error {
	if !dobPattern.MatchString(dob) {
		return validationError("Invalid Birth date", "dob", dob)
	}
	born, err := time.ParseInLocation(dobLayout, dob, now.Location())
	if err != nil {
		return validationError("Invalid Birth date", "dob", dob)
	}
	if born.AddDate(minimumAge, 0, 0).After(now) {
		return validationError("User must be atleast 13 years old to create an account", "dob", dob)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return validationError("Password must contain atleast 8 caracters", "password", "[REDACTED]")
	}
	return nil
}

func validateDP(dp string) error {
	if !dpPattern.MatchString(dp) {
		return validationError("DP Name invalid", "dp", dp)
	}
	return nil
}

func validatePostText(text string) error {
	if utf8.RuneCountInString(text) > maxPostText {
		return validationError("Text should be less than 2000 characters", "text", len(text))
	}
	return nil
}

// validatePostMedia accepts an empty name or a 12 character .jpg/.mp4 file name.
func validatePostMedia(media string) error {
	if media == "" {
		return nil
	}
	if len(media) != postMediaLength || (!strings.HasSuffix(media, ".jpg") && !strings.HasSuffix(media, ".mp4")) {
		return validationError("Invalid media name", "media", media)
	}
	return nil
}

func (nu *NewUser) validate(now time.Time) error {
	checks := []func() error{
		func() error { return validateEmail(nu.Email) },
		func() error { return validateFirstName(nu.FirstName) },
		func() error { return validateLastName(nu.LastName) },
		func() error { return validateGender(nu.Gender) },
		func() error { return validateDOB(nu.DOB, now) },
		func() error { return validatePassword(nu.Password) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
