package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stemsi/classroom-backend/internal/response"
	"github.com/stemsi/classroom-backend/internal/service"
	ws "github.com/stemsi/classroom-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
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

// RosterFeed delivers roster events of one class until ctx is done.
type RosterFeed interface {
	Listen(ctx context.Context, classID int) (<-chan model.RosterEvent, error)
}

// WSHandler streams roster changes to teachers over WebSocket.
type WSHandler struct {
	classService *service.ClassService
	feed         RosterFeed
	log          zerolog.Logger
	upgrader     websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(classService *service.ClassService, feed RosterFeed, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		classService: classService,
		feed:         feed,
		log:          log.With().Str("component", "ws_handler").Logger(),
		upgrader:     buildUpgrader(allowedOrigins),
	}
}

// RosterStream godoc
// WS /ws/v1/classes/:id/roster?token=...
// Sends a roster snapshot, then every enroll and remove event of the class.
func (h *WSHandler) RosterStream(c *gin.Context) {
	teacherID, ok := actorID(c)
	if !ok {
		return
	}
	classID, ok := classIDParam(c)
	if !ok {
		return
	}

	// Authorize before upgrading so failures are plain HTTP errors.
	if _, err := h.classService.GetClassByID(c.Request.Context(), classID, teacherID); err != nil {
		failFromErr(c, h.log, err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, err := h.feed.Listen(ctx, classID)
	if err != nil {
		h.log.Error().Err(err).Int("class_id", classID).Msg("Roster subscribe failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrNetwork)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("class_id", classID).
		Str("teacher_id", teacherID.String()).
		Logger()
	wsLog.Info().Msg("Teacher attached to roster stream")

	if err := h.sendSnapshot(ctx, conn, classID, teacherID); err != nil {
		wsLog.Debug().Err(err).Msg("Snapshot write failed")
		return
	}

	ws.KeepAlive(conn)
	actions := make(chan ws.Action)
	go h.readLoop(ctx, cancel, conn, actions, wsLog)

	pingTicker := time.NewTicker(ws.PingPeriod)
	defer pingTicker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			wsLog.Info().Msg("Teacher detached from roster stream")
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			err = ws.WriteTyped(conn, ws.NewRosterResponse(ev))

		case action := <-actions:
			switch action {
			case ws.ActionPing:
				err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			case ws.ActionSnapshot:
				err = h.sendSnapshot(ctx, conn, classID, teacherID)
			default:
				err = ws.WriteError(conn, "unknown action: "+string(action))
			}

		case <-pingTicker.C:
			err = ws.WritePing(conn)
		}

		if err != nil {
			wsLog.Debug().Err(err).Msg("Roster stream write failed")
			return
		}
	}
}

// readLoop forwards client actions to the writer loop. All writes happen on
// the writer side because a connection supports one concurrent writer.
func (h *WSHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, actions chan<- ws.Action, log zerolog.Logger) {
	defer cancel()
	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}
		select {
		case actions <- msg.Action:
		case <-ctx.Done():
			return
		}
	}
}

func (h *WSHandler) sendSnapshot(ctx context.Context, conn *websocket.Conn, classID int, teacherID uuid.UUID) error {
	class, err := h.classService.GetClassByID(ctx, classID, teacherID)
	if err != nil {
		code := service.Code(err)
		if code == "" {
			code = string(response.ErrInternal)
		}
		return ws.WriteError(conn, code)
	}
	return ws.WriteTyped(conn, ws.SnapshotResponse{
		Event:        ws.EventSnapshot,
		ClassID:      classID,
		StudentCount: class.StudentCount,
		MaxStudents:  class.MaxStudents,
	})
}
