package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/voicerelay-server/internal/auth"
	"github.com/vovakirdan/voicerelay-server/internal/config"
	"github.com/vovakirdan/voicerelay-server/internal/core"
	"github.com/vovakirdan/voicerelay-server/internal/metrics"
	"github.com/vovakirdan/voicerelay-server/internal/proto"
)

// WSHandler upgrades HTTP connections and runs one signaling session per
// connection.
type WSHandler struct {
	registry *core.Registry
	auth     *auth.Service
	cfg      config.Config
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(registry *core.Registry, authService *auth.Service, cfg config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		registry: registry,
		auth:     authService,
		cfg:      cfg,
		log:      logger,
	}
}

// Handle is the gin route for /ws.
func (h *WSHandler) Handle(c *gin.Context) {
	h.serve(c.Writer, c.Request)
}

func (h *WSHandler) serve(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	sess := &session{
		h:    h,
		conn: conn,
		send: &wsConn{conn: conn, timeout: h.cfg.WriteTimeout},
	}
	sess.run(r.Context())

	conn.Close(websocket.StatusNormalClosure, "closing")
}

// wsConn adapts a websocket connection to core.Conn. Each send carries its
// own deadline so a stuck peer fails fast instead of stalling fan-out.
type wsConn struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func (c *wsConn) Send(ctx context.Context, frame any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, frame)
}

// session is the per-connection control loop: Connecting until a join is
// accepted, Joined until the transport closes or the client asks to leave.
type session struct {
	h    *WSHandler
	conn *websocket.Conn
	send *wsConn

	// set on successful join
	roomID string
	client *core.Client
}

func (s *session) run(ctx context.Context) {
	defer s.cleanup()

	limiter := newRateLimiter(s.h.cfg.MessageRateLimit)
	stop := make(chan struct{})
	defer close(stop)
	limiter.startReset(stop)

	for {
		_, raw, err := s.conn.Read(ctx)
		if err != nil {
			// Transport closure is the cancellation signal; cleanup runs
			// via the deferred call.
			return
		}
		if !limiter.allow() {
			s.h.log.Debug().Msg("rate limit exceeded, dropping frame")
			continue
		}

		msg, err := proto.Decode(raw)
		if err != nil {
			// Malformed frames are dropped, not fatal: a buggy sender
			// should not lose its call.
			s.h.log.Debug().Err(err).Msg("ignoring malformed frame")
			continue
		}
		if msg == nil {
			continue
		}

		if !s.dispatch(ctx, msg) {
			return
		}
	}
}

// dispatch routes one decoded frame and reports whether the session should
// keep running. Data frames arriving before a successful join are ignored:
// there is no room context to route them into yet.
func (s *session) dispatch(ctx context.Context, msg proto.Msg) bool {
	switch m := msg.(type) {
	case *proto.Join:
		return s.handleJoin(ctx, m)

	case *proto.Leave:
		return false

	case *proto.Chat:
		if s.client == nil {
			return true
		}
		metrics.FramesRouted.WithLabelValues(proto.TypeChat).Inc()
		s.h.registry.Broadcast(ctx, s.roomID, proto.ChatEvent{
			Type:         proto.TypeChat,
			FromClientID: s.client.ID,
			FromName:     s.client.Name,
			Message:      m.Message,
		}, "")

	case *proto.Offer:
		if s.client == nil {
			return true
		}
		metrics.FramesRouted.WithLabelValues(proto.TypeOffer).Inc()
		s.h.registry.SendTo(ctx, s.roomID, m.To, proto.SessionDescription{
			Type: proto.TypeOffer,
			From: s.client.ID,
			SDP:  m.SDP,
		})

	case *proto.Answer:
		if s.client == nil {
			return true
		}
		metrics.FramesRouted.WithLabelValues(proto.TypeAnswer).Inc()
		s.h.registry.SendTo(ctx, s.roomID, m.To, proto.SessionDescription{
			Type: proto.TypeAnswer,
			From: s.client.ID,
			SDP:  m.SDP,
		})

	case *proto.ICE:
		if s.client == nil {
			return true
		}
		metrics.FramesRouted.WithLabelValues(proto.TypeICE).Inc()
		s.h.registry.SendTo(ctx, s.roomID, m.To, proto.Candidate{
			Type:      proto.TypeICE,
			From:      s.client.ID,
			Candidate: m.Candidate,
		})

	case *proto.Mute:
		if s.client == nil {
			return true
		}
		metrics.FramesRouted.WithLabelValues(proto.TypeMute).Inc()
		s.h.registry.Broadcast(ctx, s.roomID, proto.MuteEvent{
			Type:     proto.TypeMute,
			ClientID: s.client.ID,
			Muted:    m.Muted,
		}, s.client.ID)

	case *proto.MediaState:
		if s.client == nil {
			return true
		}
		metrics.FramesRouted.WithLabelValues(proto.TypeMediaState).Inc()
		s.h.registry.Broadcast(ctx, s.roomID, proto.MediaStateEvent{
			Type:     proto.TypeMediaState,
			ClientID: s.client.ID,
			HasAudio: m.HasAudio,
			HasVideo: m.HasVideo,
		}, s.client.ID)

	case *proto.Pitch:
		if s.client == nil {
			return true
		}
		metrics.FramesRouted.WithLabelValues(proto.TypePitch).Inc()
		s.h.registry.Broadcast(ctx, s.roomID, proto.PitchEvent{
			Type:     proto.TypePitch,
			ClientID: s.client.ID,
			Hz:       m.Hz,
		}, s.client.ID)
	}
	return true
}

func (s *session) handleJoin(ctx context.Context, m *proto.Join) bool {
	if s.client != nil {
		// Already joined; re-joins are a precondition violation and ignored.
		return true
	}
	if m.RoomID == "" {
		_ = s.send.Send(ctx, proto.ErrorFrame{
			Type:    proto.TypeError,
			Error:   "bad_request",
			Message: "roomId required",
		})
		return true
	}

	if s.h.cfg.Auth.Required {
		actx, cancel := context.WithTimeout(ctx, s.h.cfg.Auth.Timeout)
		granted := s.h.auth.CheckAccess(actx, m.Token, m.RoomID)
		cancel()
		if !granted {
			metrics.JoinsDenied.Inc()
			_ = s.send.Send(ctx, proto.ErrorFrame{Type: proto.TypeError, Error: "unauthorized"})
			s.conn.Close(websocket.StatusPolicyViolation, "unauthorized")
			return false
		}
	}

	name := m.Name
	if name == "" {
		name = "Guest"
	}

	s.roomID = m.RoomID
	s.client = s.h.registry.Join(m.RoomID, s.send, name)
	metrics.FramesRouted.WithLabelValues(proto.TypeJoin).Inc()

	if err := s.send.Send(ctx, proto.Joined{
		Type:     proto.TypeJoined,
		ClientID: s.client.ID,
		Peers:    s.h.registry.ListPeers(s.roomID, s.client.ID),
	}); err != nil {
		return false
	}

	s.h.registry.Broadcast(ctx, s.roomID, proto.PeerJoined{
		Type:     proto.TypePeerJoined,
		ClientID: s.client.ID,
		Name:     name,
	}, s.client.ID)
	return true
}

// cleanup runs exactly once per session regardless of exit path. The
// registry's idempotent Leave keeps a client already evicted by a failed
// delivery from producing a second departure notification.
func (s *session) cleanup() {
	if s.client == nil {
		return
	}

	name, removed := s.h.registry.Leave(s.roomID, s.client.ID)
	if !removed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.h.cfg.WriteTimeout)
	defer cancel()
	s.h.registry.Broadcast(ctx, s.roomID, proto.PeerLeft{
		Type:     proto.TypePeerLeft,
		ClientID: s.client.ID,
		Name:     name,
	}, s.client.ID)
}
