// Package informer implements the server-push core of the event stream.
//
// A Session owns an ordered set of named channels, each backed by an Informer.
// On every tick the session asks each informer whether it has something to
// say (Check) and, if so, what (Update), and hands the payload to the
// transport as a named event. Informers that implement Terminal and report
// Done after an update are deregistered by the session.
package informer

import (
	"context"
	"encoding/json"
)

// Channel names delivered to clients.
const (
	ChannelUserInfo    = "userInfo"
	ChannelRequestInfo = "requestInfo"
)

// GenericError is the user-safe message sent for any internal failure.
// The spelling is part of the wire format consumed by existing clients.
const GenericError = "internal error occurd"

// Informer decides once per tick whether new data should be pushed.
//
// Check reports whether an event must be sent this tick, including error
// conditions. Update is only called after Check returned true and returns
// the serialized payload.
type Informer interface {
	Check(ctx context.Context) bool
	Update() string
}

// Terminal is implemented by informers that stop after emitting.
// The session deregisters the informer once Done reports true after Update.
type Terminal interface {
	Done() bool
}

// UserSnapshot is the authenticated user handed to informers.
type UserSnapshot struct {
	ID        uint
	FirstName string
	LastName  string
	Email     string
}

type errorPayload struct {
	Error string `json:"error"`
}

// ErrorPayload renders msg as {"error":"<msg>"}.
func ErrorPayload(msg string) string {
	data, err := json.Marshal(errorPayload{Error: msg})
	if err != nil {
		return `{"error":"` + GenericError + `"}`
	}
	return string(data)
}
