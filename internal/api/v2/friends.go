package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/friendswall/friendswall-go/internal/datastore"
	"github.com/friendswall/friendswall-go/internal/logger"
)

const publishTimeout = 5 * time.Second

// FriendRequestBody names the recipient of a new request.
type FriendRequestBody struct {
	To uint `json:"to" form:"to"`
}

// initFriendRoutes registers friend-request endpoints
func (c *Controller) initFriendRoutes() {
	friends := c.Group.Group("/friends/requests", c.RequireUser)
	friends.GET("", c.ListFriendRequests)
	friends.POST("", c.SendFriendRequest)
	friends.POST("/:from/accept", c.AcceptFriendRequest)
}

// SendFriendRequest handles POST /api/v2/friends/requests
func (c *Controller) SendFriendRequest(ctx echo.Context) error {
	var body FriendRequestBody
	if err := ctx.Bind(&body); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	fromID := currentUserID(ctx)
	edge, err := c.DS.SendFriendRequest(ctx.Request().Context(), fromID, body.To)
	if err != nil {
		return c.HandleStoreError(ctx, err, "Failed to send friend request")
	}

	// Open streams of the recipient pick the request up on their next tick; wake them now.
	c.registry.WakeUser(body.To)
	c.publishFriendRequest(ctx.Request().Context(), fromID, body.To)

	return ctx.JSON(http.StatusCreated, edge)
}

// publishFriendRequest fans the request out over MQTT on a background goroutine.
func (c *Controller) publishFriendRequest(reqCtx context.Context, fromID, toID uint) {
	if c.publisher == nil {
		return
	}

	sender, err := c.DS.GetUser(reqCtx, fromID)
	if err != nil {
		c.logger.Warn("friend request not published, sender lookup failed", logger.Error(err))
		return
	}
	req := datastore.FriendRequest{
		ID:        sender.ID,
		Username:  sender.Username,
		FirstName: sender.FirstName,
		LastName:  sender.LastName,
		Media:     sender.Media,
		DP:        sender.DP,
	}

	c.wg.Go(func() {
		ctx, cancel := context.WithTimeout(c.ctx, publishTimeout)
		defer cancel()
		// Failures are logged by the publisher and never reach the client.
		_ = c.publisher.PublishFriendRequest(ctx, toID, req)
	})
}

// AcceptFriendRequest handles POST /api/v2/friends/requests/:from/accept
func (c *Controller) AcceptFriendRequest(ctx echo.Context) error {
	fromID, err := parseID(ctx.Param("from"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid user id", http.StatusBadRequest)
	}

	toID := currentUserID(ctx)
	if err := c.DS.AcceptFriendRequest(ctx.Request().Context(), fromID, toID); err != nil {
		return c.HandleStoreError(ctx, err, "Failed to accept friend request")
	}

	c.registry.WakeUser(toID)
	return ctx.NoContent(http.StatusNoContent)
}

// ListFriendRequests handles GET /api/v2/friends/requests, returning the same
// projection the requestInfo channel streams.
func (c *Controller) ListFriendRequests(ctx echo.Context) error {
	reqs, err := c.DS.PendingFriendRequests(ctx.Request().Context(), currentUserID(ctx))
	if err != nil {
		return c.HandleStoreError(ctx, err, "Failed to load friend requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}
