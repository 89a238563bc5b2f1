package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/friendswall/friendswall-go/internal/errors"
	"github.com/friendswall/friendswall-go/internal/logger"
)

// sseWriteTimeout bounds a single write so a stalled client cannot pin the stream.
const sseWriteTimeout = 10 * time.Second

// sseWriter writes the text/event-stream format to an echo response.
type sseWriter struct {
	res    *echo.Response
	rc     *http.ResponseController
	logger logger.Logger
}

func newSSEWriter(res *echo.Response, log logger.Logger) *sseWriter {
	return &sseWriter{
		res:    res,
		rc:     http.NewResponseController(res),
		logger: log,
	}
}

// WriteEvent writes one named event. Multi-line data is split over several data fields.
func (w *sseWriter) WriteEvent(name, data string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", name)
	for line := range strings.SplitSeq(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	return w.write(b.String())
}

// WriteComment writes a comment line, ignored by EventSource clients.
func (w *sseWriter) WriteComment(text string) error {
	return w.write(": " + text + "\n\n")
}

// WriteRetry advertises the reconnect delay.
func (w *sseWriter) WriteRetry(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return w.write(fmt.Sprintf("retry: %d\n\n", d.Milliseconds()))
}

func (w *sseWriter) write(msg string) error {
	if err := w.rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		w.logger.Debug("failed to set write deadline for event stream", logger.Error(err))
	}

	if _, err := w.res.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	return nil
}
