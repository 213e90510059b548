package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/classbeacon/classbeacon-backend/internal/middleware"
	"github.com/classbeacon/classbeacon-backend/internal/service"
	ws "github.com/classbeacon/classbeacon-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// RosterWSHandler streams live check-in events to teacher roster views.
type RosterWSHandler struct {
	classService  *service.ClassService
	rosterService *service.RosterService
	log           zerolog.Logger
	upgrader      websocket.Upgrader
}

// NewRosterWSHandler creates a new RosterWSHandler.
func NewRosterWSHandler(
	classService *service.ClassService,
	rosterService *service.RosterService,
	log zerolog.Logger,
	allowedOrigins []string,
) *RosterWSHandler {
	return &RosterWSHandler{
		classService:  classService,
		rosterService: rosterService,
		log:           log.With().Str("component", "roster_ws_handler").Logger(),
		upgrader:      buildUpgrader(allowedOrigins),
	}
}

// RosterStream godoc
// WS /ws/v1/teacher/classes/:id/roster
// Upgrades to WebSocket and forwards check-in events for the class as
// they happen. Events published before the connection opened are not
// replayed; clients fetch current state over REST first.
func (h *RosterWSHandler) RosterStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	classID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid class ID"})
		return
	}

	// Ownership check before the upgrade so an HTTP status can still be
	// returned.
	if _, err := h.classService.GetOwned(c.Request.Context(), claims.UserID, classID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the teacher of this class"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("teacher_id", claims.UserID.String()).
		Str("class_id", classID.String()).
		Logger()

	wsLog.Info().Msg("Roster stream connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub := h.rosterService.Subscribe(ctx, classID)
	defer sub.Close()

	// Bridge pubsub payloads into the stream loop. The payload is already
	// a marshaled CheckinEvent; it goes out verbatim.
	events := make(chan []byte, 16)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				select {
				case events <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	streamRoster(ctx, conn, events, wsLog)
}

// streamRoster runs a connection's read loop and pumps check-in payloads
// and control replies to it. The connection permits one concurrent
// writer, so every outgoing frame funnels through the outbound channel
// and a single writer goroutine.
func streamRoster(ctx context.Context, conn *websocket.Conn, events <-chan []byte, log zerolog.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outbound := make(chan interface{}, 16)

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-outbound:
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				var err error
				switch m := msg.(type) {
				case []byte:
					err = conn.WriteMessage(websocket.TextMessage, m)
				default:
					err = conn.WriteJSON(m)
				}
				if err != nil {
					log.Debug().Err(err).Msg("Roster write failed")
					return
				}
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-events:
				if !ok {
					return
				}
				select {
				case outbound <- payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	enqueue := func(v interface{}) {
		select {
		case outbound <- v:
		case <-ctx.Done():
		}
	}

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			} else {
				log.Debug().Msg("Roster stream closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			enqueue(ws.PongResponse{Event: ws.EventPong})
		default:
			enqueue(ws.ErrorResponse{Event: ws.EventError, Error: "unknown action"})
		}
	}
}
