package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/townsquare-server/internal/mirror"
	"github.com/vovakirdan/townsquare-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("townclient: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	town := flag.String("town", "", "town id to join")
	user := flag.String("user", "cli-user", "username")
	token := flag.String("token", "", "session token for reconnect")
	flag.Parse()

	if *town == "" {
		return errors.New("-town is required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	q := url.Values{}
	q.Set("town", *town)
	q.Set("username", *user)
	if *token != "" {
		q.Set("token", *token)
	}

	conn, _, err := websocket.Dial(ctx, *addr+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	ctrl := mirror.NewController()
	ctrl.AddListener(&printer{ctrl: ctrl})

	fmt.Printf("Connected to %s as %s (town %s)\n", *addr, *user, *town)
	fmt.Println("Type text to chat. Commands: /move x y, /friend id, /unfriend id,")
	fmt.Println("  /accept id, /decline id, /invite id[,id...], /go id, /players. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn, ctrl)
	}()

	writeLoop(ctx, conn, ctrl)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

// printer turns mirror notifications into terminal lines.
type printer struct {
	mirror.NopListener
	ctrl *mirror.Controller
}

func (p *printer) PlayersChanged(players []proto.Player) {
	names := make([]string, 0, len(players))
	for _, pl := range players {
		names = append(names, pl.UserName)
	}
	fmt.Printf("* players: %s\n", strings.Join(names, ", "))
}

func (p *printer) AreaTopicChanged(areaID, topic string) {
	if topic == "" {
		fmt.Printf("* area %s is now inactive\n", areaID)
		return
	}
	fmt.Printf("* area %s topic: %s\n", areaID, topic)
}

func (p *printer) FriendsChanged(friends []string) {
	fmt.Printf("* friends: %s\n", strings.Join(friends, ", "))
}

func (p *printer) FriendRequestsChanged(requests []proto.FriendRequest) {
	for _, r := range requests {
		if r.Affected == p.ctrl.OurID() {
			fmt.Printf("* friend request from %s (/accept or /decline)\n", r.Actor)
		}
	}
}

func (p *printer) ConversationAreaInvitesChanged(invites []proto.TeleportInvite) {
	for _, inv := range invites {
		fmt.Printf("* invite from %s to join their conversation (/go %s)\n", inv.RequesterID, inv.RequesterID)
	}
}

func (p *printer) ChatMessageReceived(msg proto.ChatMessage) {
	fmt.Printf("%s: %s\n", msg.Author, msg.Body)
}

func (p *printer) MiniMessageReceived(msg proto.MiniMessage) {
	fmt.Printf("(whisper) %s: %s\n", msg.SenderID, msg.Body)
}

func (p *printer) TownSettingsChanged(friendlyName string, isPublic bool) {
	fmt.Printf("* town is now %q (public=%v)\n", friendlyName, isPublic)
}

func (p *printer) Disconnected() {
	fmt.Println("* town is closing")
}

func readLoop(ctx context.Context, conn *websocket.Conn, ctrl *mirror.Controller) {
	for {
		var env proto.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if env.Type == proto.OutboundTypeError && env.Error != nil {
			fmt.Printf("! server error %s: %s\n", env.Error.Code, env.Error.Msg)
			continue
		}
		if err := ctrl.Apply(env); err != nil {
			log.Printf("apply %s: %v", env.Event, err)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, ctrl *mirror.Controller) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	send := func(typ string, payload any) {
		raw, err := json.Marshal(payload)
		if err != nil {
			log.Printf("marshal %s: %v", typ, err)
			return
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: raw}); err != nil {
			log.Printf("send error: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if !strings.HasPrefix(text, "/") {
				send(proto.InboundTypeChatMessage, proto.ChatMessage{Body: text})
				continue
			}
			handleCommand(text, ctrl, send)
		}
	}
}

func handleCommand(text string, ctrl *mirror.Controller, send func(string, any)) {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/move":
		if len(fields) != 3 {
			fmt.Println("usage: /move x y")
			return
		}
		x, errX := strconv.ParseFloat(fields[1], 64)
		y, errY := strconv.ParseFloat(fields[2], 64)
		if errX != nil || errY != nil {
			fmt.Println("usage: /move x y")
			return
		}
		loc := ctrl.OurLocation()
		loc.X, loc.Y = x, y
		loc.Moving = false
		ctrl.SetOurLocation(loc)
		send(proto.InboundTypePlayerMovement, loc)
	case "/friend":
		if len(fields) != 2 {
			fmt.Println("usage: /friend playerID")
			return
		}
		send(proto.InboundTypeSendFriendRequest, proto.FriendRequest{Actor: ctrl.OurID(), Affected: fields[1]})
	case "/unfriend":
		if len(fields) != 2 {
			fmt.Println("usage: /unfriend playerID")
			return
		}
		send(proto.InboundTypeRemoveFriend, proto.FriendRequest{Actor: ctrl.OurID(), Affected: fields[1]})
	case "/accept":
		if len(fields) != 2 {
			fmt.Println("usage: /accept playerID")
			return
		}
		send(proto.InboundTypeAcceptFriendReq, proto.FriendRequest{Actor: fields[1], Affected: ctrl.OurID()})
	case "/decline":
		if len(fields) != 2 {
			fmt.Println("usage: /decline playerID")
			return
		}
		send(proto.InboundTypeDeclineFriendReq, proto.FriendRequest{Actor: fields[1], Affected: ctrl.OurID()})
	case "/invite":
		if len(fields) != 2 {
			fmt.Println("usage: /invite id[,id...]")
			return
		}
		send(proto.InboundTypeInviteToConvArea, proto.GroupInvite{
			RequesterID:       ctrl.OurID(),
			RequestedIDs:      strings.Split(fields[1], ","),
			RequesterLocation: ctrl.OurLocation(),
		})
	case "/go":
		if len(fields) != 2 {
			fmt.Println("usage: /go requesterID")
			return
		}
		for _, inv := range ctrl.ConversationAreaInvites() {
			if inv.RequesterID == fields[1] {
				send(proto.InboundTypeAcceptConvInvite, inv)
				return
			}
		}
		fmt.Printf("no invite from %s\n", fields[1])
	case "/players":
		for _, p := range ctrl.Players() {
			loc := p.Location
			fmt.Printf("  %s (%s) at %.0f,%.0f area=%s\n", p.UserName, p.ID, loc.X, loc.Y, loc.InteractableID)
		}
	default:
		fmt.Printf("unknown command %s\n", fields[0])
	}
}
