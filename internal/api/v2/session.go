package api

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/friendswall/friendswall-go/internal/conf"
	"github.com/friendswall/friendswall-go/internal/errors"
)

const (
	sessionUserIDKey = "user_id"
	contextUserIDKey = "user_id"

	msgNotLoggedIn = "No user logged in. Please login to continue"
)

// SessionStore maps the session cookie to a user id.
type SessionStore struct {
	store *sessions.CookieStore
	name  string
}

// NewSessionStore builds a signed cookie store from the security settings.
func NewSessionStore(s *conf.SecuritySettings) (*SessionStore, error) {
	if len(s.SessionSecret) < 32 {
		return nil, errors.Newf("session secret must be at least 32 characters").
			Component("api").
			Category(errors.CategoryConfiguration).
			Context("setting", "security.sessionsecret").
			Build()
	}

	store := sessions.NewCookieStore([]byte(s.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	}
	// MaxAge also bounds the signed timestamp accepted by the codecs.
	store.MaxAge(int(s.SessionMaxAge.Seconds()))

	name := s.CookieName
	if name == "" {
		name = "friendswall_session"
	}
	return &SessionStore{store: store, name: name}, nil
}

// UserID returns the user bound to the request's session.
func (s *SessionStore) UserID(r *http.Request) (uint, bool) {
	sess, err := s.store.Get(r, s.name)
	if err != nil {
		return 0, false
	}
	id, ok := sess.Values[sessionUserIDKey].(uint)
	return id, ok && id != 0
}

// Login binds userID to a fresh session cookie.
func (s *SessionStore) Login(c echo.Context, userID uint) error {
	// A tampered or stale cookie yields a new session together with an error.
	sess, _ := s.store.Get(c.Request(), s.name)
	sess.Values[sessionUserIDKey] = userID
	return sess.Save(c.Request(), c.Response())
}

// Logout expires the session cookie.
func (s *SessionStore) Logout(c echo.Context) error {
	sess, _ := s.store.Get(c.Request(), s.name)
	delete(sess.Values, sessionUserIDKey)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// RequireUser rejects requests without a logged-in user and stores the id in the context.
func (c *Controller) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, ok := c.sessions.UserID(ctx.Request())
		if !ok {
			return c.HandleError(ctx, nil, msgNotLoggedIn, http.StatusUnauthorized)
		}
		ctx.Set(contextUserIDKey, id)
		return next(ctx)
	}
}

// currentUserID returns the id stored by RequireUser.
func currentUserID(ctx echo.Context) uint {
	id, _ := ctx.Get(contextUserIDKey).(uint)
	return id
}
