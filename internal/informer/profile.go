package informer

import (
	"context"
	"encoding/json"
)

type profilePayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// ProfileInformer sends the user's own profile once per session.
//
// It waits until SetUser or SetError is called, emits exactly one event and
// then reports Done. An error set before or instead of a user wins.
type ProfileInformer struct {
	user   *UserSnapshot
	errMsg string
	hasErr bool
	sent   bool
}

// NewProfileInformer returns an informer waiting for a user or an error.
func NewProfileInformer() *ProfileInformer {
	return &ProfileInformer{}
}

// SetUser sets the profile to send.
func (p *ProfileInformer) SetUser(user UserSnapshot) {
	p.user = &user
}

// SetError makes the informer send msg instead of a profile.
func (p *ProfileInformer) SetError(msg string) {
	p.errMsg = msg
	p.hasErr = true
}

// Check reports true once, as soon as a user or an error is available.
func (p *ProfileInformer) Check(_ context.Context) bool {
	if p.sent {
		return false
	}
	return p.hasErr || p.user != nil
}

// Update returns the error or profile payload and marks the informer sent.
func (p *ProfileInformer) Update() string {
	switch {
	case p.hasErr:
		p.sent = true
		return ErrorPayload(p.errMsg)
	case p.user != nil:
		p.sent = true
		data, err := json.Marshal(profilePayload{
			FirstName: p.user.FirstName,
			LastName:  p.user.LastName,
			Email:     p.user.Email,
		})
		if err != nil {
			return ErrorPayload(GenericError)
		}
		return string(data)
	default:
		return "{}"
	}
}

// Done reports whether the profile has been sent.
func (p *ProfileInformer) Done() bool {
	return p.sent
}
