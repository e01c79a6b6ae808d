package mirror

import (
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/townsquare-server/internal/proto"
)

// Controller is the client-resident mirror of town state. It is the sole
// local cache: every server frame passes through Apply, which reconciles it
// against the cached copies and re-emits typed notifications only for
// genuine changes. Like the server authority, it assumes a single-threaded
// event loop: Apply and the local mutators are never called concurrently.
type Controller struct {
	ourID        string
	sessionToken string
	videoToken   string
	townID       string
	friendlyName string
	isPublic     bool

	// ourLocation is the optimistic local position, owned by the input
	// layer. Server echoes of our own movement never overwrite x/y, only
	// the server-computed interactable id.
	ourLocation proto.Location

	players           []proto.Player
	conversationAreas []proto.Interactable
	viewingAreas      []proto.Interactable
	friends           []string
	friendRequests    []proto.FriendRequest
	invites           []proto.TeleportInvite
	selected          selectedFriends

	listeners []Listener
}

// NewController creates an empty mirror. State arrives with the
// town_initialize frame.
func NewController() *Controller {
	return &Controller{}
}

// AddListener subscribes a listener to change notifications.
func (c *Controller) AddListener(l Listener) {
	c.listeners = append(c.listeners, l)
}

// OurID returns this client's player id, set by the initialize frame.
func (c *Controller) OurID() string { return c.ourID }

// SessionToken returns the opaque session token.
func (c *Controller) SessionToken() string { return c.sessionToken }

// VideoToken returns the video-provider token.
func (c *Controller) VideoToken() string { return c.videoToken }

// TownID returns the joined town's id.
func (c *Controller) TownID() string { return c.townID }

// FriendlyName returns the town's display name.
func (c *Controller) FriendlyName() string { return c.friendlyName }

// IsPubliclyListed reports whether the town is in the public directory.
func (c *Controller) IsPubliclyListed() bool { return c.isPublic }

// Players returns the cached player list.
func (c *Controller) Players() []proto.Player {
	return append([]proto.Player(nil), c.players...)
}

// ConversationAreas returns the cached conversation area models.
func (c *Controller) ConversationAreas() []proto.Interactable {
	return append([]proto.Interactable(nil), c.conversationAreas...)
}

// ViewingAreas returns the cached viewing area models.
func (c *Controller) ViewingAreas() []proto.Interactable {
	return append([]proto.Interactable(nil), c.viewingAreas...)
}

// Friends returns the cached friend ids.
func (c *Controller) Friends() []string {
	return append([]string(nil), c.friends...)
}

// FriendRequests returns the cached pending requests involving this client.
func (c *Controller) FriendRequests() []proto.FriendRequest {
	return append([]proto.FriendRequest(nil), c.friendRequests...)
}

// ConversationAreaInvites returns the cached invites where this client is
// the requested party.
func (c *Controller) ConversationAreaInvites() []proto.TeleportInvite {
	return append([]proto.TeleportInvite(nil), c.invites...)
}

// SelectedFriends returns the client-local friend selection.
func (c *Controller) SelectedFriends() []string {
	return c.selected.list()
}

// OurLocation returns the optimistic local position.
func (c *Controller) OurLocation() proto.Location { return c.ourLocation }

// SetOurLocation records a locally initiated move before it is sent to the
// server. Our own cached player entry follows the optimistic position.
func (c *Controller) SetOurLocation(loc proto.Location) {
	c.ourLocation = loc
	for i := range c.players {
		if c.players[i].ID == c.ourID {
			c.players[i].Location.X = loc.X
			c.players[i].Location.Y = loc.Y
			c.players[i].Location.Rotation = loc.Rotation
			c.players[i].Location.Moving = loc.Moving
			break
		}
	}
}

// SelectFriend adds a friend to the local selection. Only current friends
// are selectable; duplicates are no-ops.
func (c *Controller) SelectFriend(id string) {
	if !containsString(c.friends, id) {
		return
	}
	if c.selected.add(id) {
		c.notifySelectedFriends()
	}
}

// DeselectFriend removes a friend from the local selection.
func (c *Controller) DeselectFriend(id string) {
	if c.selected.remove(id) {
		c.notifySelectedFriends()
	}
}

// SetFriends replaces the friends list. A permutation of the current
// contents fires no notification; a content-different list fires exactly
// one. Friends dropped from the list also leave the local selection.
func (c *Controller) SetFriends(friends []string) {
	if sameStringSet(c.friends, friends) {
		return
	}
	c.friends = append([]string(nil), friends...)

	pruned := false
	for _, id := range c.selected.list() {
		if !containsString(c.friends, id) {
			c.selected.remove(id)
			pruned = true
		}
	}

	for _, l := range c.listeners {
		l.FriendsChanged(c.Friends())
	}
	if pruned {
		c.notifySelectedFriends()
	}
}

// SetFriendRequests replaces the pending-request list with the same
// value-equality contract as SetFriends.
func (c *Controller) SetFriendRequests(requests []proto.FriendRequest) {
	if sameRequestSet(c.friendRequests, requests) {
		return
	}
	c.friendRequests = append([]proto.FriendRequest(nil), requests...)
	for _, l := range c.listeners {
		l.FriendRequestsChanged(c.FriendRequests())
	}
}

// SetConversationAreaInvites replaces the pending-invite list with the same
// value-equality contract as SetFriends.
func (c *Controller) SetConversationAreaInvites(invites []proto.TeleportInvite) {
	if sameInviteSet(c.invites, invites) {
		return
	}
	c.invites = append([]proto.TeleportInvite(nil), invites...)
	for _, l := range c.listeners {
		l.ConversationAreaInvitesChanged(c.ConversationAreaInvites())
	}
}

// Apply reconciles one server frame into the cache. Error frames and
// unknown events leave all state untouched.
func (c *Controller) Apply(env proto.Envelope) error {
	if env.Type != proto.OutboundTypeEvent {
		return nil
	}

	switch env.Event {
	case proto.EventTownInitialize:
		var init proto.TownInitialize
		if err := json.Unmarshal(env.Data, &init); err != nil {
			return fmt.Errorf("decode initialize: %w", err)
		}
		c.applyInitialize(init)

	case proto.EventPlayerJoined:
		var p proto.Player
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("decode player: %w", err)
		}
		c.applyPlayerJoined(p)

	case proto.EventPlayerMoved:
		var p proto.Player
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("decode player: %w", err)
		}
		c.applyPlayerMoved(p)

	case proto.EventPlayerDisconnected:
		var p proto.Player
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return fmt.Errorf("decode player: %w", err)
		}
		c.applyPlayerDisconnected(p)

	case proto.EventInteractableUpdate:
		var m proto.Interactable
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return fmt.Errorf("decode interactable: %w", err)
		}
		c.applyInteractableUpdate(m)

	case proto.EventFriendRequestSent:
		return c.applyFriendRequestEvent(env, c.applyRequestSent)
	case proto.EventFriendReqAccepted:
		return c.applyFriendRequestEvent(env, c.applyRequestAccepted)
	case proto.EventFriendReqDeclined, proto.EventFriendReqCanceled:
		return c.applyFriendRequestEvent(env, c.applyRequestDropped)
	case proto.EventFriendRemoved:
		return c.applyFriendRequestEvent(env, c.applyFriendRemoved)

	case proto.EventConvAreaReqSent:
		var invite proto.GroupInvite
		if err := json.Unmarshal(env.Data, &invite); err != nil {
			return fmt.Errorf("decode group invite: %w", err)
		}
		c.applyGroupInvite(invite)

	case proto.EventConvAreaReqAccepted:
		var invite proto.TeleportInvite
		if err := json.Unmarshal(env.Data, &invite); err != nil {
			return fmt.Errorf("decode invite: %w", err)
		}
		c.applyInviteAccepted(invite)

	case proto.EventConvAreaReqDeclined:
		var invite proto.TeleportInvite
		if err := json.Unmarshal(env.Data, &invite); err != nil {
			return fmt.Errorf("decode invite: %w", err)
		}
		c.applyInviteDeclined(invite)

	case proto.EventChatMessage:
		var msg proto.ChatMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return fmt.Errorf("decode chat message: %w", err)
		}
		for _, l := range c.listeners {
			l.ChatMessageReceived(msg)
		}

	case proto.EventMiniMessage:
		var msg proto.MiniMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return fmt.Errorf("decode mini message: %w", err)
		}
		for _, l := range c.listeners {
			l.MiniMessageReceived(msg)
		}

	case proto.EventTownSettingsUpdated:
		var settings proto.TownSettings
		if err := json.Unmarshal(env.Data, &settings); err != nil {
			return fmt.Errorf("decode settings: %w", err)
		}
		c.applySettings(settings)

	case proto.EventTownClosing:
		for _, l := range c.listeners {
			l.Disconnected()
		}
	}

	return nil
}

func (c *Controller) applyInitialize(init proto.TownInitialize) {
	c.ourID = init.PlayerID
	c.sessionToken = init.SessionToken
	c.videoToken = init.VideoToken
	c.townID = init.TownID
	c.friendlyName = init.FriendlyName
	c.isPublic = init.IsPubliclyListed

	c.players = append([]proto.Player(nil), init.Players...)
	c.conversationAreas = nil
	c.viewingAreas = nil
	for _, m := range init.Interactables {
		if m.Kind == proto.InteractableKindViewing {
			c.viewingAreas = append(c.viewingAreas, m)
		} else {
			c.conversationAreas = append(c.conversationAreas, m)
		}
	}

	for i := range c.players {
		if c.players[i].ID == c.ourID {
			c.ourLocation = c.players[i].Location
			break
		}
	}

	c.notifyPlayers()
	for _, l := range c.listeners {
		l.ConversationAreasChanged(c.ConversationAreas())
		l.ViewingAreasChanged(c.ViewingAreas())
	}
}

func (c *Controller) applyPlayerJoined(p proto.Player) {
	for i := range c.players {
		if c.players[i].ID == p.ID {
			c.players[i] = p
			c.notifyPlayers()
			return
		}
	}
	c.players = append(c.players, p)
	c.notifyPlayers()
}

func (c *Controller) applyPlayerMoved(p proto.Player) {
	if p.ID == c.ourID {
		// Our optimistic position may be ahead of the server's echo; keep
		// x/y but accept the server-computed zone membership.
		changed := c.ourLocation.InteractableID != p.Location.InteractableID
		c.ourLocation.InteractableID = p.Location.InteractableID
		for i := range c.players {
			if c.players[i].ID == c.ourID {
				c.players[i].Location.InteractableID = p.Location.InteractableID
			}
		}
		if changed {
			c.notifyPlayers()
		}
		return
	}

	for i := range c.players {
		if c.players[i].ID == p.ID {
			if c.players[i].Location == p.Location {
				return
			}
			c.players[i].Location = p.Location
			c.notifyPlayers()
			return
		}
	}

	// Unknown player: synthesize a record rather than dropping the update.
	c.players = append(c.players, p)
	c.notifyPlayers()
}

func (c *Controller) applyPlayerDisconnected(p proto.Player) {
	removed := false
	for i := range c.players {
		if c.players[i].ID == p.ID {
			c.players = append(c.players[:i], c.players[i+1:]...)
			removed = true
			break
		}
	}
	if removed {
		c.notifyPlayers()
	}

	// Each pruning fires its own notification, and only when something was
	// actually removed.
	if friends, ok := removeStringFrom(c.friends, p.ID); ok {
		c.SetFriends(friends)
	}

	var requests []proto.FriendRequest
	requestsChanged := false
	for _, r := range c.friendRequests {
		if r.Actor == p.ID || r.Affected == p.ID {
			requestsChanged = true
			continue
		}
		requests = append(requests, r)
	}
	if requestsChanged {
		c.SetFriendRequests(requests)
	}

	var invites []proto.TeleportInvite
	invitesChanged := false
	for _, inv := range c.invites {
		if inv.RequesterID == p.ID {
			invitesChanged = true
			continue
		}
		invites = append(invites, inv)
	}
	if invitesChanged {
		c.SetConversationAreaInvites(invites)
	}
}

func (c *Controller) applyInteractableUpdate(m proto.Interactable) {
	for i := range c.conversationAreas {
		if c.conversationAreas[i].ID == m.ID {
			c.applyConversationAreaUpdate(i, m)
			return
		}
	}
	for i := range c.viewingAreas {
		if c.viewingAreas[i].ID == m.ID {
			c.applyViewingAreaUpdate(i, m)
			return
		}
	}

	// A zone this client has not seen yet: synthesize it.
	if m.Kind == proto.InteractableKindViewing {
		c.viewingAreas = append(c.viewingAreas, m)
		for _, l := range c.listeners {
			l.ViewingAreasChanged(c.ViewingAreas())
		}
		return
	}
	c.conversationAreas = append(c.conversationAreas, m)
	for _, l := range c.listeners {
		l.ConversationAreasChanged(c.ConversationAreas())
	}
}

func conversationEmpty(m proto.Interactable) bool {
	return m.Topic == "" || len(m.OccupantsByID) == 0
}

func (c *Controller) applyConversationAreaUpdate(idx int, m proto.Interactable) {
	cached := c.conversationAreas[idx]

	emptyBefore := conversationEmpty(cached)
	topicChanged := cached.Topic != m.Topic
	occupantsChanged := !sameStringSet(cached.OccupantsByID, m.OccupantsByID)

	cached.Topic = m.Topic
	cached.OccupantsByID = append([]string(nil), m.OccupantsByID...)
	c.conversationAreas[idx] = cached

	if emptyBefore != conversationEmpty(cached) {
		for _, l := range c.listeners {
			l.ConversationAreasChanged(c.ConversationAreas())
		}
	}
	if topicChanged {
		for _, l := range c.listeners {
			l.AreaTopicChanged(cached.ID, cached.Topic)
		}
	}
	if occupantsChanged {
		for _, l := range c.listeners {
			l.AreaOccupantsChanged(cached.ID, append([]string(nil), cached.OccupantsByID...))
		}
	}
}

func (c *Controller) applyViewingAreaUpdate(idx int, m proto.Interactable) {
	cached := c.viewingAreas[idx]

	occupantsChanged := !sameStringSet(cached.OccupantsByID, m.OccupantsByID)
	stateChanged := cached.Video != m.Video ||
		cached.ElapsedTimeSec != m.ElapsedTimeSec ||
		cached.IsPlaying != m.IsPlaying

	cached.Video = m.Video
	cached.ElapsedTimeSec = m.ElapsedTimeSec
	cached.IsPlaying = m.IsPlaying
	cached.OccupantsByID = append([]string(nil), m.OccupantsByID...)
	c.viewingAreas[idx] = cached

	if stateChanged || occupantsChanged {
		for _, l := range c.listeners {
			l.ViewingAreasChanged(c.ViewingAreas())
		}
	}
	if occupantsChanged {
		for _, l := range c.listeners {
			l.AreaOccupantsChanged(cached.ID, append([]string(nil), cached.OccupantsByID...))
		}
	}
}

// applyFriendRequestEvent decodes the pair and applies fn only when this
// client is actor or affected; irrelevant broadcasts touch nothing and fire
// nothing.
func (c *Controller) applyFriendRequestEvent(env proto.Envelope, fn func(proto.FriendRequest)) error {
	var req proto.FriendRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		return fmt.Errorf("decode friend request: %w", err)
	}
	if req.Actor != c.ourID && req.Affected != c.ourID {
		return nil
	}
	fn(req)
	return nil
}

func (c *Controller) applyRequestSent(req proto.FriendRequest) {
	for _, existing := range c.friendRequests {
		if existing.Actor == req.Actor && existing.Affected == req.Affected {
			return
		}
	}
	c.SetFriendRequests(append(c.FriendRequests(), req))
}

func (c *Controller) applyRequestAccepted(req proto.FriendRequest) {
	c.dropRequestPair(req)

	other := req.Actor
	if other == c.ourID {
		other = req.Affected
	}
	if !containsString(c.friends, other) {
		c.SetFriends(append(c.Friends(), other))
	}
}

func (c *Controller) applyRequestDropped(req proto.FriendRequest) {
	c.dropRequestPair(req)
}

func (c *Controller) applyFriendRemoved(req proto.FriendRequest) {
	other := req.Actor
	if other == c.ourID {
		other = req.Affected
	}
	if friends, ok := removeStringFrom(c.friends, other); ok {
		c.SetFriends(friends)
	}
}

func (c *Controller) dropRequestPair(req proto.FriendRequest) {
	var kept []proto.FriendRequest
	changed := false
	for _, r := range c.friendRequests {
		if samePair(r, req) {
			changed = true
			continue
		}
		kept = append(kept, r)
	}
	if changed {
		c.SetFriendRequests(kept)
	}
}

func (c *Controller) applyGroupInvite(invite proto.GroupInvite) {
	if !containsString(invite.RequestedIDs, c.ourID) {
		return
	}
	singular := proto.TeleportInvite{
		RequesterID:       invite.RequesterID,
		RequestedID:       c.ourID,
		RequesterLocation: invite.RequesterLocation,
	}
	for _, existing := range c.invites {
		if sameInvite(existing, singular) {
			return
		}
	}
	c.SetConversationAreaInvites(append(c.ConversationAreaInvites(), singular))
}

func (c *Controller) applyInviteAccepted(invite proto.TeleportInvite) {
	if invite.RequestedID != c.ourID {
		return
	}
	// The server teleports us; adopt the destination as our optimistic
	// position so the following movement echo reconciles cleanly.
	c.ourLocation = invite.RequesterLocation
	c.dropInvite(invite)
}

func (c *Controller) applyInviteDeclined(invite proto.TeleportInvite) {
	if invite.RequestedID != c.ourID {
		return
	}
	c.dropInvite(invite)
}

func (c *Controller) dropInvite(invite proto.TeleportInvite) {
	var kept []proto.TeleportInvite
	changed := false
	for _, inv := range c.invites {
		if sameInvite(inv, invite) {
			changed = true
			continue
		}
		kept = append(kept, inv)
	}
	if changed {
		c.SetConversationAreaInvites(kept)
	}
}

func (c *Controller) applySettings(settings proto.TownSettings) {
	changed := false
	if settings.FriendlyName != nil && *settings.FriendlyName != c.friendlyName {
		c.friendlyName = *settings.FriendlyName
		changed = true
	}
	if settings.IsPublic != nil && *settings.IsPublic != c.isPublic {
		c.isPublic = *settings.IsPublic
		changed = true
	}
	if changed {
		for _, l := range c.listeners {
			l.TownSettingsChanged(c.friendlyName, c.isPublic)
		}
	}
}

func (c *Controller) notifyPlayers() {
	for _, l := range c.listeners {
		l.PlayersChanged(c.Players())
	}
}

func (c *Controller) notifySelectedFriends() {
	for _, l := range c.listeners {
		l.SelectedFriendsChanged(c.SelectedFriends())
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeStringFrom(list []string, s string) ([]string, bool) {
	for i, v := range list {
		if v == s {
			out := append(append([]string(nil), list[:i]...), list[i+1:]...)
			return out, true
		}
	}
	return list, false
}
