package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/townsquare-server/internal/auth"
	"github.com/vovakirdan/townsquare-server/internal/proto"
	"github.com/vovakirdan/townsquare-server/internal/service/towns"
	"github.com/vovakirdan/townsquare-server/internal/town"
)

// WSHandler upgrades HTTP connections and bridges them to a town session.
// The client names its town and username as connection metadata (query
// params); the only failure signal is a close before the initialize frame.
type WSHandler struct {
	towns    *towns.Service
	sessions *auth.Service
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(svc *towns.Service, sessions *auth.Service, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{towns: svc, sessions: sessions, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	query := r.URL.Query()
	townID := query.Get("town")
	username := query.Get("username")

	// A session token lets a dropped client rejoin with its prior identity.
	if tokenString := query.Get("token"); tokenString != "" && h.sessions != nil {
		claims, err := h.sessions.ValidateToken(tokenString)
		if err != nil {
			h.log.Debug().Err(err).Msg("rejected session token on handshake")
			conn.Close(websocket.StatusPolicyViolation, "invalid session token")
			return
		}
		townID = claims.TownID
		username = claims.Username
	}

	t, ok := h.towns.Get(townID)
	if !ok {
		conn.Close(websocket.StatusPolicyViolation, "town not found")
		return
	}

	client, snapshot, err := t.AddPlayer(username)
	if err != nil {
		h.log.Debug().Err(err).Str("town", townID).Msg("join rejected")
		conn.Close(websocket.StatusPolicyViolation, err.Error())
		return
	}
	defer t.RemovePlayer(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventTownInitialize,
		Data:  snapshotToProto(snapshot),
	}); err != nil {
		h.log.Warn().Err(err).Str("player", client.Player.ID).Msg("write initialize")
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, t, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, t *town.Town, client *town.Client) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		protoErr, err := applyInbound(t, client, inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("player", client.Player.ID).Msg("failed to decode inbound")
			return err
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *town.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				// Session ended: removed from town or town closed.
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
