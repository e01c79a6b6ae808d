package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/townsquare-server/internal/proto"
)

func startWSTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	server, svc, _ := newTestServer(t)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	tn, _, err := svc.CreateTown(context.Background(), "WS Town", true)
	if err != nil {
		t.Fatalf("create town: %v", err)
	}
	return ts, tn.ID()
}

func dialTown(t *testing.T, ctx context.Context, ts *httptest.Server, townID, username, token string) (*websocket.Conn, proto.TownInitialize) {
	t.Helper()

	q := url.Values{}
	q.Set("town", townID)
	q.Set("username", username)
	if token != "" {
		q.Set("token", token)
	}
	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?" + q.Encode()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", username, err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })

	var env proto.Envelope
	if err := wsjson.Read(ctx, conn, &env); err != nil {
		t.Fatalf("read initialize for %s: %v", username, err)
	}
	if env.Type != proto.OutboundTypeEvent || env.Event != proto.EventTownInitialize {
		t.Fatalf("first frame = %+v, want town_initialize", env)
	}
	var init proto.TownInitialize
	if err := json.Unmarshal(env.Data, &init); err != nil {
		t.Fatalf("unmarshal initialize: %v", err)
	}
	return conn, init
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) proto.Envelope {
	t.Helper()

	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			t.Fatalf("read waiting for %s: %v", event, err)
		}
		if env.Event == event {
			return env
		}
	}
}

func TestWebSocketJoinAndMove(t *testing.T) {
	ts, townID := startWSTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA, initA := dialTown(t, ctx, ts, townID, "alice", "")
	if initA.TownID != townID || len(initA.Players) != 1 {
		t.Fatalf("alice initialize: %+v", initA)
	}
	if initA.SessionToken == "" {
		t.Fatal("alice has no session token")
	}

	_, initB := dialTown(t, ctx, ts, townID, "bob", "")
	if len(initB.Players) != 2 || initB.Players[0].UserName != "bob" {
		t.Fatalf("bob initialize should list self first: %+v", initB.Players)
	}

	joined := readEvent(t, ctx, connA, proto.EventPlayerJoined)
	var joinedPlayer proto.Player
	if err := json.Unmarshal(joined.Data, &joinedPlayer); err != nil {
		t.Fatalf("unmarshal joined: %v", err)
	}
	if joinedPlayer.UserName != "bob" {
		t.Fatalf("joined = %+v", joinedPlayer)
	}

	payload, _ := json.Marshal(proto.Location{X: 42, Y: 24, Rotation: "right", Moving: true})
	if err := wsjson.Write(ctx, connA, proto.Inbound{Type: proto.InboundTypePlayerMovement, Data: payload}); err != nil {
		t.Fatalf("send movement: %v", err)
	}

	moved := readEvent(t, ctx, connA, proto.EventPlayerMoved)
	var movedPlayer proto.Player
	if err := json.Unmarshal(moved.Data, &movedPlayer); err != nil {
		t.Fatalf("unmarshal moved: %v", err)
	}
	if movedPlayer.ID != initA.PlayerID || movedPlayer.Location.X != 42 {
		t.Fatalf("moved = %+v", movedPlayer)
	}
}

func TestWebSocketProtocolError(t *testing.T) {
	ts, townID := startWSTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _ := dialTown(t, ctx, ts, townID, "alice", "")

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: "warp", Data: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("send unknown type: %v", err)
	}

	var env proto.Envelope
	if err := wsjson.Read(ctx, conn, &env); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if env.Type != proto.OutboundTypeError || env.Error == nil || env.Error.Code != "invalid_message" {
		t.Fatalf("unexpected frame: %+v", env)
	}
}

func TestWebSocketRejectsUnknownTown(t *testing.T) {
	ts, _ := startWSTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?town=NOPE&username=alice"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		// The upgrade may already fail; either way no initialize arrives.
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var env proto.Envelope
	if err := wsjson.Read(ctx, conn, &env); err == nil {
		t.Fatalf("expected close before initialize, got %+v", env)
	}
}

func TestWebSocketReconnectWithToken(t *testing.T) {
	ts, townID := startWSTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA, initA := dialTown(t, ctx, ts, townID, "alice", "")
	_ = connA.Close(websocket.StatusNormalClosure, "dropping")

	// The token alone names the town and username.
	_, initB := dialTown(t, ctx, ts, "", "", initA.SessionToken)
	if initB.TownID != townID {
		t.Fatalf("reconnect town = %q, want %q", initB.TownID, townID)
	}
	if len(initB.Players) == 0 || initB.Players[0].UserName != "alice" {
		t.Fatalf("reconnect identity: %+v", initB.Players)
	}

	// Garbage tokens are rejected before any initialize frame.
	q := url.Values{}
	q.Set("token", "garbage")
	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?" + q.Encode()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
	var env proto.Envelope
	if err := wsjson.Read(ctx, conn, &env); err == nil {
		t.Fatalf("expected close before initialize, got %+v", env)
	}
}
