package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/realtime"
)

const defaultKeepAlive = 25 * time.Second

// Subscriber is the subscription side of a realtime broker.
type Subscriber interface {
	Subscribe(collections ...realtime.Collection) (<-chan realtime.Event, func())
}

// EventsHandler streams change events as server-sent events.
type EventsHandler struct {
	broker    Subscriber
	keepAlive time.Duration
}

// NewEventsHandler constructs an EventsHandler.
func NewEventsHandler(broker Subscriber) *EventsHandler {
	return &EventsHandler{broker: broker, keepAlive: defaultKeepAlive}
}

// clientCollections are the streams a client may watch; events are limited to its own rows.
var clientCollections = []realtime.Collection{
	realtime.CollectionAppeals,
	realtime.CollectionTransactions,
	realtime.CollectionUsers,
}

// Stream writes "change" events until the client disconnects. Staff receive every
// collection; clients receive only events about their own records.
func (h *EventsHandler) Stream(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		RespondError(c, apperr.Unauthorized("sign in required"))
		return
	}
	if h.broker == nil {
		RespondError(c, apperr.New(apperr.KindPersistence, "change stream unavailable"))
		return
	}

	var events <-chan realtime.Event
	var cancel func()
	if user.Role.IsStaff() {
		events, cancel = h.broker.Subscribe()
	} else {
		events, cancel = h.broker.Subscribe(clientCollections...)
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent("ready", gin.H{"user_id": user.ID})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	done := c.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			c.Writer.Flush()
		case evt, ok := <-events:
			if !ok {
				return
			}
			if !visibleTo(user, evt) {
				continue
			}
			c.SSEvent("change", evt)
			c.Writer.Flush()
		}
	}
}

func visibleTo(user *models.User, evt realtime.Event) bool {
	if user.Role.IsStaff() {
		return true
	}
	return evt.UserID != "" && evt.UserID == user.ID
}
