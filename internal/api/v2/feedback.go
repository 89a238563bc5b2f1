package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/friendswall/friendswall-go/internal/errors"
	"github.com/friendswall/friendswall-go/internal/informer"
	"github.com/friendswall/friendswall-go/internal/logger"
)

const msgDataIncomplete = "Data incomplete."

// FeedbackRequest is the help form.
type FeedbackRequest struct {
	Name        string `json:"name" form:"name"`
	Email       string `json:"email" form:"email"`
	Description string `json:"description" form:"description"`
}

// FeedbackResponse keeps the {"success","error"} shape the help form expects.
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// initFeedbackRoutes registers the help form endpoint
func (c *Controller) initFeedbackRoutes() {
	c.Group.POST("/help/feedback", c.SubmitFeedback)
}

// SubmitFeedback handles POST /api/v2/help/feedback
func (c *Controller) SubmitFeedback(ctx echo.Context) error {
	var req FeedbackRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, FeedbackResponse{Error: msgDataIncomplete})
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Description) == "" {
		return ctx.JSON(http.StatusBadRequest, FeedbackResponse{Error: msgDataIncomplete})
	}

	fb, err := c.DS.InsertFeedback(ctx.Request().Context(), req.Name, req.Email, req.Description)
	if err != nil {
		// The form never learns why an insert failed.
		if errors.IsValidation(err) {
			c.logger.Debug("feedback rejected", logger.Error(err))
			return ctx.JSON(http.StatusBadRequest, FeedbackResponse{Error: informer.GenericError})
		}
		c.logger.Error("failed to store feedback", logger.Error(err))
		return ctx.JSON(http.StatusInternalServerError, FeedbackResponse{Error: informer.GenericError})
	}

	if c.notifier != nil {
		c.notifier.NotifyFeedback(fb)
	}
	return ctx.JSON(http.StatusOK, FeedbackResponse{Success: true})
}
