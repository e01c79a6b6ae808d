package town

import "time"

// EventKind is a notification the town emits to subscribed clients.
type EventKind int

const (
	// EventPlayerJoined notifies that a player entered the town.
	EventPlayerJoined EventKind = iota
	// EventPlayerMoved carries a player's corrected authoritative location.
	EventPlayerMoved
	// EventPlayerDisconnected notifies that a player left the town.
	EventPlayerDisconnected
	// EventTownSettingsUpdated carries a partial settings change.
	EventTownSettingsUpdated
	// EventTownClosing tells every client the town is being torn down.
	EventTownClosing
	// EventChatMessage relays a town-wide chat message.
	EventChatMessage
	// EventInteractableUpdated carries a zone's full updated model.
	EventInteractableUpdated
	// EventFriendRequestSent through EventFriendRemoved cover the friend
	// lifecycle; clients filter by whether they are actor or affected.
	EventFriendRequestSent
	EventFriendRequestAccepted
	EventFriendRequestDeclined
	EventFriendRequestCanceled
	EventFriendRemoved
	// EventConvAreaInviteSent is the single broadcast for a group invite.
	EventConvAreaInviteSent
	// EventConvAreaInviteAccepted and Declined cover singular invites.
	EventConvAreaInviteAccepted
	EventConvAreaInviteDeclined
	// EventMiniMessage is delivered only to the listed recipients.
	EventMiniMessage
)

// ChatMessage is the domain model for a town chat message.
type ChatMessage struct {
	AuthorID  string
	SID       string
	Body      string
	CreatedAt time.Time
}

// MiniMessage is a brief message scoped to a recipient list.
type MiniMessage struct {
	SenderID     string
	RecipientIDs []string
	Body         string
}

// SettingsUpdate is a partial town settings change; nil fields are unchanged.
type SettingsUpdate struct {
	FriendlyName *string
	IsPublic     *bool
}

// Event describes one state transition to observers. Exactly the fields
// relevant to Kind are set.
type Event struct {
	Kind          EventKind
	Player        *PlayerModel
	Interactable  *InteractableModel
	Chat          *ChatMessage
	Mini          *MiniMessage
	FriendRequest *FriendRequest
	GroupInvite   *GroupInvite
	Invite        *TeleportInvite
	Settings      *SettingsUpdate
}
