package mirror

import "github.com/vovakirdan/townsquare-server/internal/proto"

// Listener receives the typed change notifications the controller emits
// after reconciling a server frame. Every notification reports a genuine
// change; redundant or reordered-but-identical updates are filtered out
// before any method is called.
type Listener interface {
	// PlayersChanged fires when the set of connected players changes or a
	// player's location is updated.
	PlayersChanged(players []proto.Player)

	// ConversationAreasChanged fires when a conversation area's emptiness
	// flips or the area set changes.
	ConversationAreasChanged(areas []proto.Interactable)

	// ViewingAreasChanged fires when a viewing area's state changes.
	ViewingAreasChanged(areas []proto.Interactable)

	// AreaTopicChanged and AreaOccupantsChanged fire per zone when that
	// specific sub-field differs from the cached value, independent of the
	// area-list-level notifications.
	AreaTopicChanged(areaID, topic string)
	AreaOccupantsChanged(areaID string, occupants []string)

	// FriendsChanged, SelectedFriendsChanged, FriendRequestsChanged and
	// ConversationAreaInvitesChanged fire only when the multiset of entries
	// actually differs from the cached copy.
	FriendsChanged(friends []string)
	SelectedFriendsChanged(selected []string)
	FriendRequestsChanged(requests []proto.FriendRequest)
	ConversationAreaInvitesChanged(invites []proto.TeleportInvite)

	// ChatMessageReceived and MiniMessageReceived relay messages addressed
	// to this client.
	ChatMessageReceived(msg proto.ChatMessage)
	MiniMessageReceived(msg proto.MiniMessage)

	// TownSettingsChanged fires when the town's name or listing changes.
	TownSettingsChanged(friendlyName string, isPublic bool)

	// Disconnected fires when the town announces it is closing.
	Disconnected()
}

// NopListener implements Listener with no-ops; embed it to observe a subset
// of notifications.
type NopListener struct{}

func (NopListener) PlayersChanged([]proto.Player)                        {}
func (NopListener) ConversationAreasChanged([]proto.Interactable)        {}
func (NopListener) ViewingAreasChanged([]proto.Interactable)             {}
func (NopListener) AreaTopicChanged(string, string)                      {}
func (NopListener) AreaOccupantsChanged(string, []string)                {}
func (NopListener) FriendsChanged([]string)                              {}
func (NopListener) SelectedFriendsChanged([]string)                      {}
func (NopListener) FriendRequestsChanged([]proto.FriendRequest)          {}
func (NopListener) ConversationAreaInvitesChanged([]proto.TeleportInvite) {}
func (NopListener) ChatMessageReceived(proto.ChatMessage)                {}
func (NopListener) MiniMessageReceived(proto.MiniMessage)                {}
func (NopListener) TownSettingsChanged(string, bool)                     {}
func (NopListener) Disconnected()                                        {}

var _ Listener = NopListener{}
