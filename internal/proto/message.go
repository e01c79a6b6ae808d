package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Envelope is the inbound view of a server frame, used by clients that need
// to defer payload decoding until the event name is known.
type Envelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

const (
	ProtocolVersion = 1

	// Client -> server actions.
	InboundTypeChatMessage        = "chat_message"
	InboundTypePlayerMovement     = "player_movement"
	InboundTypeInteractableUpdate = "interactable_update"
	InboundTypeSendFriendRequest  = "send_friend_request"
	InboundTypeCancelFriendReq    = "cancel_friend_request"
	InboundTypeAcceptFriendReq    = "accept_friend_request"
	InboundTypeDeclineFriendReq   = "decline_friend_request"
	InboundTypeRemoveFriend       = "remove_friend"
	InboundTypeInviteToConvArea   = "invite_to_conversation_area"
	InboundTypeAcceptConvInvite   = "accept_conversation_area_invite"
	InboundTypeDeclineConvInvite  = "decline_conversation_area_invite"
	InboundTypeSendMiniMessage    = "send_mini_message"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	// Server -> client broadcasts.
	EventTownInitialize      = "town_initialize"
	EventPlayerJoined        = "player_joined"
	EventPlayerMoved         = "player_moved"
	EventPlayerDisconnected  = "player_disconnected"
	EventTownSettingsUpdated = "town_settings_updated"
	EventTownClosing         = "town_closing"
	EventChatMessage         = "chat_message"
	EventInteractableUpdate  = "interactable_update"
	EventFriendRequestSent   = "friend_request_sent"
	EventFriendReqAccepted   = "friend_request_accepted"
	EventFriendReqDeclined   = "friend_request_declined"
	EventFriendReqCanceled   = "friend_request_canceled"
	EventFriendRemoved       = "friend_removed"
	EventConvAreaReqSent     = "conversation_area_request_sent"
	EventConvAreaReqAccepted = "conversation_area_request_accepted"
	EventConvAreaReqDeclined = "conversation_area_request_declined"
	EventMiniMessage         = "mini_message"
)

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Location is a player position as carried on the wire. InteractableID is
// authoritative server output; client-supplied values are ignored.
type Location struct {
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Rotation       string  `json:"rotation"`
	Moving         bool    `json:"moving"`
	InteractableID string  `json:"interactableID,omitempty"`
}

// Player is the wire model of a connected player.
type Player struct {
	ID       string   `json:"id"`
	UserName string   `json:"userName"`
	Location Location `json:"location"`
}

const (
	InteractableKindConversation = "conversation"
	InteractableKindViewing      = "viewing"
)

// Interactable is the wire model of a spatial zone. Conversation zones use
// Topic and OccupantsByID; viewing zones use Video, ElapsedTimeSec and
// IsPlaying. The server only honors fields matching the zone kind it knows.
type Interactable struct {
	ID             string   `json:"id"`
	Kind           string   `json:"kind"`
	Topic          string   `json:"topic,omitempty"`
	OccupantsByID  []string `json:"occupantsByID"`
	Video          string   `json:"video,omitempty"`
	ElapsedTimeSec float64  `json:"elapsedTimeSec,omitempty"`
	IsPlaying      bool     `json:"isPlaying,omitempty"`
}

// FriendRequest identifies a directed friend-request pair by player ids.
type FriendRequest struct {
	Actor    string `json:"actor"`
	Affected string `json:"affected"`
}

// TeleportInvite is a singular invite: accepting moves Requested to
// RequesterLocation as recorded at invite time.
type TeleportInvite struct {
	RequesterID       string   `json:"requesterID"`
	RequestedID       string   `json:"requestedID"`
	RequesterLocation Location `json:"requesterLocation"`
}

// GroupInvite fans out into one TeleportInvite per requested player.
type GroupInvite struct {
	RequesterID       string   `json:"requesterID"`
	RequestedIDs      []string `json:"requestedIDs"`
	RequesterLocation Location `json:"requesterLocation"`
}

// ChatMessage is a town-wide chat message.
type ChatMessage struct {
	Author string `json:"author"`
	SID    string `json:"sid"`
	Body   string `json:"body"`
	TS     int64  `json:"ts"`
}

// MiniMessage is a brief message delivered only to the listed recipients.
type MiniMessage struct {
	SenderID     string   `json:"senderID"`
	RecipientIDs []string `json:"recipientIDs"`
	Body         string   `json:"body"`
}

// TownSettings carries a partial settings update; nil fields are unchanged.
type TownSettings struct {
	FriendlyName *string `json:"friendlyName,omitempty"`
	IsPublic     *bool   `json:"isPubliclyListed,omitempty"`
}

// TownInitialize is the snapshot delivered as the first frame of a session.
type TownInitialize struct {
	PlayerID         string         `json:"playerID"`
	SessionToken     string         `json:"sessionToken"`
	VideoToken       string         `json:"videoToken"`
	TownID           string         `json:"townID"`
	FriendlyName     string         `json:"friendlyName"`
	IsPubliclyListed bool           `json:"isPubliclyListed"`
	Players          []Player       `json:"players"`
	Interactables    []Interactable `json:"interactables"`
}
