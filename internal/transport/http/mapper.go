package http

import (
	"encoding/json"

	"github.com/vovakirdan/townsquare-server/internal/proto"
	"github.com/vovakirdan/townsquare-server/internal/town"
)

func toProtoLocation(l town.Location) proto.Location {
	return proto.Location{
		X:              l.X,
		Y:              l.Y,
		Rotation:       string(l.Rotation),
		Moving:         l.Moving,
		InteractableID: l.InteractableID,
	}
}

func fromProtoLocation(l proto.Location) town.Location {
	return town.Location{
		X:              l.X,
		Y:              l.Y,
		Rotation:       town.Direction(l.Rotation),
		Moving:         l.Moving,
		InteractableID: l.InteractableID,
	}
}

func toProtoPlayer(m town.PlayerModel) proto.Player {
	return proto.Player{
		ID:       m.ID,
		UserName: m.Username,
		Location: toProtoLocation(m.Location),
	}
}

func toProtoInteractable(m town.InteractableModel) proto.Interactable {
	return proto.Interactable{
		ID:             m.ID,
		Kind:           string(m.Kind),
		Topic:          m.Topic,
		OccupantsByID:  m.OccupantsByID,
		Video:          m.Video,
		ElapsedTimeSec: m.ElapsedTimeSec,
		IsPlaying:      m.IsPlaying,
	}
}

func fromProtoInteractable(m proto.Interactable) town.InteractableModel {
	return town.InteractableModel{
		ID:             m.ID,
		Kind:           town.InteractableKind(m.Kind),
		Topic:          m.Topic,
		OccupantsByID:  m.OccupantsByID,
		Video:          m.Video,
		ElapsedTimeSec: m.ElapsedTimeSec,
		IsPlaying:      m.IsPlaying,
	}
}

func toProtoFriendRequest(r town.FriendRequest) proto.FriendRequest {
	return proto.FriendRequest{Actor: r.Actor, Affected: r.Affected}
}

func fromProtoFriendRequest(r proto.FriendRequest) town.FriendRequest {
	return town.FriendRequest{Actor: r.Actor, Affected: r.Affected}
}

func toProtoInvite(i town.TeleportInvite) proto.TeleportInvite {
	return proto.TeleportInvite{
		RequesterID:       i.RequesterID,
		RequestedID:       i.RequestedID,
		RequesterLocation: toProtoLocation(i.RequesterLocation),
	}
}

func fromProtoInvite(i proto.TeleportInvite) town.TeleportInvite {
	return town.TeleportInvite{
		RequesterID:       i.RequesterID,
		RequestedID:       i.RequestedID,
		RequesterLocation: fromProtoLocation(i.RequesterLocation),
	}
}

func snapshotToProto(s *town.Snapshot) proto.TownInitialize {
	init := proto.TownInitialize{
		PlayerID:         s.PlayerID,
		SessionToken:     s.SessionToken,
		VideoToken:       s.VideoToken,
		TownID:           s.TownID,
		FriendlyName:     s.FriendlyName,
		IsPubliclyListed: s.IsPublic,
	}
	for _, p := range s.Players {
		init.Players = append(init.Players, toProtoPlayer(p))
	}
	for _, m := range s.Interactables {
		init.Interactables = append(init.Interactables, toProtoInteractable(m))
	}
	return init
}

// applyInbound decodes a client action and applies it to the town on behalf
// of the connected player. Malformed payloads produce a protocol error; bad
// but well-formed actions fail silently inside the town.
func applyInbound(t *town.Town, c *town.Client, inbound proto.Inbound) (*proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeChatMessage:
		var msg struct {
			Body string `json:"body"`
		}
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, err
		}
		if msg.Body == "" {
			return &proto.Error{Code: town.ErrCodeBadRequest, Msg: "body is required"}, nil
		}
		t.SendChatMessage(c.Player, msg.Body)

	case proto.InboundTypePlayerMovement:
		var loc proto.Location
		if err := json.Unmarshal(inbound.Data, &loc); err != nil {
			return nil, err
		}
		t.UpdatePlayerLocation(c.Player, fromProtoLocation(loc))

	case proto.InboundTypeInteractableUpdate:
		var m proto.Interactable
		if err := json.Unmarshal(inbound.Data, &m); err != nil {
			return nil, err
		}
		if m.ID == "" {
			return &proto.Error{Code: town.ErrCodeBadRequest, Msg: "id is required"}, nil
		}
		t.UpdateInteractable(fromProtoInteractable(m))

	// The connection-owned side of each pair is never trusted from the
	// payload: the sender, canceler and remover act, the accepter and
	// decliner are acted upon.
	case proto.InboundTypeSendFriendRequest:
		req, perr, err := decodeFriendRequest(inbound.Data)
		if perr != nil || err != nil {
			return perr, err
		}
		req.Actor = c.Player.ID
		t.InviteFriend(req)

	case proto.InboundTypeCancelFriendReq:
		req, perr, err := decodeFriendRequest(inbound.Data)
		if perr != nil || err != nil {
			return perr, err
		}
		req.Actor = c.Player.ID
		t.CancelFriendRequest(req)

	case proto.InboundTypeAcceptFriendReq:
		req, perr, err := decodeFriendRequest(inbound.Data)
		if perr != nil || err != nil {
			return perr, err
		}
		req.Affected = c.Player.ID
		t.AcceptFriendRequest(req)

	case proto.InboundTypeDeclineFriendReq:
		req, perr, err := decodeFriendRequest(inbound.Data)
		if perr != nil || err != nil {
			return perr, err
		}
		req.Affected = c.Player.ID
		t.DeclineFriendRequest(req)

	case proto.InboundTypeRemoveFriend:
		req, perr, err := decodeFriendRequest(inbound.Data)
		if perr != nil || err != nil {
			return perr, err
		}
		req.Actor = c.Player.ID
		t.RemoveFriend(req)

	case proto.InboundTypeInviteToConvArea:
		var invite proto.GroupInvite
		if err := json.Unmarshal(inbound.Data, &invite); err != nil {
			return nil, err
		}
		t.InviteToConversationArea(town.GroupInvite{
			RequesterID:       c.Player.ID,
			RequestedIDs:      invite.RequestedIDs,
			RequesterLocation: fromProtoLocation(invite.RequesterLocation),
		})

	case proto.InboundTypeAcceptConvInvite:
		var invite proto.TeleportInvite
		if err := json.Unmarshal(inbound.Data, &invite); err != nil {
			return nil, err
		}
		t.AcceptConversationAreaInvite(fromProtoInvite(invite))

	case proto.InboundTypeDeclineConvInvite:
		var invite proto.TeleportInvite
		if err := json.Unmarshal(inbound.Data, &invite); err != nil {
			return nil, err
		}
		t.DeclineConversationAreaInvite(fromProtoInvite(invite))

	case proto.InboundTypeSendMiniMessage:
		var mm proto.MiniMessage
		if err := json.Unmarshal(inbound.Data, &mm); err != nil {
			return nil, err
		}
		if len(mm.RecipientIDs) == 0 {
			return &proto.Error{Code: town.ErrCodeBadRequest, Msg: "recipients are required"}, nil
		}
		t.SendMiniMessage(c.Player, mm.RecipientIDs, mm.Body)

	default:
		return &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
	return nil, nil
}

func decodeFriendRequest(data json.RawMessage) (town.FriendRequest, *proto.Error, error) {
	var req proto.FriendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return town.FriendRequest{}, nil, err
	}
	if req.Actor == "" || req.Affected == "" {
		return town.FriendRequest{}, &proto.Error{Code: town.ErrCodeBadRequest, Msg: "actor and affected are required"}, nil
	}
	return fromProtoFriendRequest(req), nil, nil
}

// outboundFromEvent converts a town event into its wire frame.
func outboundFromEvent(event *town.Event) proto.Outbound {
	out := proto.Outbound{Type: proto.OutboundTypeEvent}

	switch event.Kind {
	case town.EventPlayerJoined:
		out.Event = proto.EventPlayerJoined
		out.Data = toProtoPlayer(*event.Player)
	case town.EventPlayerMoved:
		out.Event = proto.EventPlayerMoved
		out.Data = toProtoPlayer(*event.Player)
	case town.EventPlayerDisconnected:
		out.Event = proto.EventPlayerDisconnected
		out.Data = toProtoPlayer(*event.Player)
	case town.EventTownSettingsUpdated:
		out.Event = proto.EventTownSettingsUpdated
		out.Data = proto.TownSettings{
			FriendlyName: event.Settings.FriendlyName,
			IsPublic:     event.Settings.IsPublic,
		}
	case town.EventTownClosing:
		out.Event = proto.EventTownClosing
	case town.EventChatMessage:
		out.Event = proto.EventChatMessage
		out.Data = proto.ChatMessage{
			Author: event.Chat.AuthorID,
			SID:    event.Chat.SID,
			Body:   event.Chat.Body,
			TS:     event.Chat.CreatedAt.Unix(),
		}
	case town.EventInteractableUpdated:
		out.Event = proto.EventInteractableUpdate
		out.Data = toProtoInteractable(*event.Interactable)
	case town.EventFriendRequestSent:
		out.Event = proto.EventFriendRequestSent
		out.Data = toProtoFriendRequest(*event.FriendRequest)
	case town.EventFriendRequestAccepted:
		out.Event = proto.EventFriendReqAccepted
		out.Data = toProtoFriendRequest(*event.FriendRequest)
	case town.EventFriendRequestDeclined:
		out.Event = proto.EventFriendReqDeclined
		out.Data = toProtoFriendRequest(*event.FriendRequest)
	case town.EventFriendRequestCanceled:
		out.Event = proto.EventFriendReqCanceled
		out.Data = toProtoFriendRequest(*event.FriendRequest)
	case town.EventFriendRemoved:
		out.Event = proto.EventFriendRemoved
		out.Data = toProtoFriendRequest(*event.FriendRequest)
	case town.EventConvAreaInviteSent:
		out.Event = proto.EventConvAreaReqSent
		out.Data = proto.GroupInvite{
			RequesterID:       event.GroupInvite.RequesterID,
			RequestedIDs:      event.GroupInvite.RequestedIDs,
			RequesterLocation: toProtoLocation(event.GroupInvite.RequesterLocation),
		}
	case town.EventConvAreaInviteAccepted:
		out.Event = proto.EventConvAreaReqAccepted
		out.Data = toProtoInvite(*event.Invite)
	case town.EventConvAreaInviteDeclined:
		out.Event = proto.EventConvAreaReqDeclined
		out.Data = toProtoInvite(*event.Invite)
	case town.EventMiniMessage:
		out.Event = proto.EventMiniMessage
		out.Data = proto.MiniMessage{
			SenderID:     event.Mini.SenderID,
			RecipientIDs: event.Mini.RecipientIDs,
			Body:         event.Mini.Body,
		}
	}

	return out
}
