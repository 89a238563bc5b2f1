package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/friendswall/friendswall-go/internal/datastore"
	"github.com/friendswall/friendswall-go/internal/logger"
)

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Email     string `json:"email" form:"email"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Gender    string `json:"gender" form:"gender"`
	DOB       string `json:"dob" form:"dob"` // YYYY-MM-DD
	Password  string `json:"password" form:"password"`
}

// UpdateUserRequest carries profile changes; empty fields are left unchanged.
type UpdateUserRequest struct {
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Gender    string `json:"gender" form:"gender"`
	DOB       string `json:"dob" form:"dob"`
	Password  string `json:"password" form:"password"`
	DP        string `json:"dp" form:"dp"`
}

// AuthRequest represents the login request structure
type AuthRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// AuthResponse represents the login response structure
type AuthResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	User      *datastore.User `json:"user,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// AuthStatus represents the current authentication status
type AuthStatus struct {
	Authenticated bool `json:"authenticated"`
	UserID        uint `json:"user_id,omitempty"`
}

// initAuthRoutes registers all authentication-related API endpoints
func (c *Controller) initAuthRoutes() {
	authGroup := c.Group.Group("/auth")
	authGroup.POST("/login", c.Login)
	authGroup.POST("/logout", c.Logout)
	authGroup.GET("/status", c.GetAuthStatus)
}

// initUserRoutes registers registration and profile endpoints
func (c *Controller) initUserRoutes() {
	c.Group.POST("/users", c.Register)

	me := c.Group.Group("/users/me", c.RequireUser)
	me.GET("", c.GetMe)
	me.PUT("", c.UpdateMe)
}

// Register handles POST /api/v2/users
func (c *Controller) Register(ctx echo.Context) error {
	var req RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	user, err := c.DS.CreateUser(ctx.Request().Context(), datastore.NewUser{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
		DOB:       req.DOB,
		Password:  req.Password,
	})
	if err != nil {
		return c.HandleStoreError(ctx, err, "Registration failed")
	}

	if err := c.sessions.Login(ctx, user.ID); err != nil {
		return c.HandleError(ctx, err, "Failed to start session", http.StatusInternalServerError)
	}

	c.logger.Info("user registered", logger.Uint64("user_id", uint64(user.ID)))
	return ctx.JSON(http.StatusCreated, user)
}

// Login handles POST /api/v2/auth/login
func (c *Controller) Login(ctx echo.Context) error {
	var req AuthRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	user, err := c.DS.Authenticate(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		return c.HandleStoreError(ctx, err, "Login failed")
	}

	if err := c.sessions.Login(ctx, user.ID); err != nil {
		return c.HandleError(ctx, err, "Failed to start session", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, AuthResponse{
		Success:   true,
		Message:   "Login successful",
		User:      user,
		Timestamp: time.Now(),
	})
}

// Logout handles POST /api/v2/auth/logout
func (c *Controller) Logout(ctx echo.Context) error {
	if err := c.sessions.Logout(ctx); err != nil {
		return c.HandleError(ctx, err, "Failed to end session", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, AuthResponse{
		Success:   true,
		Message:   "Logged out",
		Timestamp: time.Now(),
	})
}

// GetAuthStatus handles GET /api/v2/auth/status
func (c *Controller) GetAuthStatus(ctx echo.Context) error {
	id, ok := c.sessions.UserID(ctx.Request())
	return ctx.JSON(http.StatusOK, AuthStatus{Authenticated: ok, UserID: id})
}

// GetMe handles GET /api/v2/users/me
func (c *Controller) GetMe(ctx echo.Context) error {
	user, err := c.DS.GetUser(ctx.Request().Context(), currentUserID(ctx))
	if err != nil {
		return c.HandleStoreError(ctx, err, "Failed to load profile")
	}
	return ctx.JSON(http.StatusOK, user)
}

// UpdateMe handles PUT /api/v2/users/me
func (c *Controller) UpdateMe(ctx echo.Context) error {
	var req UpdateUserRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	id := currentUserID(ctx)
	reqCtx := ctx.Request().Context()

	if req.DP != "" {
		if err := c.DS.SetUserDP(reqCtx, id, req.DP); err != nil {
			return c.HandleStoreError(ctx, err, "Failed to update profile picture")
		}
	}

	user, err := c.DS.UpdateUser(reqCtx, id, datastore.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
		DOB:       req.DOB,
		Password:  req.Password,
	})
	if err != nil {
		return c.HandleStoreError(ctx, err, "Failed to update profile")
	}

	c.forgetUser(id)
	return ctx.JSON(http.StatusOK, user)
}
