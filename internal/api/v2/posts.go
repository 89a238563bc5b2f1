package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const msgPostNotFound = "Post with given id doesnot exist"

// CreatePostRequest is the new-post form.
type CreatePostRequest struct {
	Text  string `json:"text" form:"text"`
	Media string `json:"media" form:"media"`
}

// initPostRoutes registers post endpoints
func (c *Controller) initPostRoutes() {
	posts := c.Group.Group("/posts")
	posts.GET("/:id", c.GetPost)
	posts.POST("", c.CreatePost, c.RequireUser)
	posts.DELETE("/:id", c.DeletePost, c.RequireUser)
}

// CreatePost handles POST /api/v2/posts
func (c *Controller) CreatePost(ctx echo.Context) error {
	var req CreatePostRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	post, err := c.DS.CreatePost(ctx.Request().Context(), currentUserID(ctx), req.Text, req.Media)
	if err != nil {
		return c.HandleStoreError(ctx, err, "Failed to create post")
	}
	return ctx.JSON(http.StatusCreated, post)
}

// GetPost handles GET /api/v2/posts/:id
func (c *Controller) GetPost(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, msgPostNotFound, http.StatusNotFound)
	}

	post, err := c.DS.GetPost(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleStoreError(ctx, err, msgPostNotFound)
	}
	return ctx.JSON(http.StatusOK, post)
}

// DeletePost handles DELETE /api/v2/posts/:id. Only the author may delete a post.
func (c *Controller) DeletePost(ctx echo.Context) error {
	id, err := parseID(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, msgPostNotFound, http.StatusNotFound)
	}

	reqCtx := ctx.Request().Context()
	post, err := c.DS.GetPost(reqCtx, id)
	if err != nil {
		return c.HandleStoreError(ctx, err, msgPostNotFound)
	}
	if post.UID != currentUserID(ctx) {
		return c.HandleError(ctx, nil, "You can only delete your own posts", http.StatusForbidden)
	}

	if err := c.DS.DeletePost(reqCtx, id); err != nil {
		return c.HandleStoreError(ctx, err, "Failed to delete post")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// parseID parses a positive numeric path parameter.
func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, strconv.ErrRange
	}
	return uint(id), nil
}
