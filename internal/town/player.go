package town

// Direction is the way a player sprite is facing.
type Direction string

const (
	DirectionFront Direction = "front"
	DirectionBack  Direction = "back"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Location is a player's authoritative position. InteractableID is computed
// by the town on every movement; client-supplied values are overwritten.
type Location struct {
	X              float64
	Y              float64
	Rotation       Direction
	Moving         bool
	InteractableID string
}

// SameSpot reports whether two locations name the same point and zone.
// Rotation and movement flags are not part of a teleport destination.
func (l Location) SameSpot(other Location) bool {
	return l.X == other.X && l.Y == other.Y && l.InteractableID == other.InteractableID
}

// FriendRequest identifies a directed request pair by player ids.
type FriendRequest struct {
	Actor    string
	Affected string
}

// TeleportInvite is a singular invite. Accepting it moves Requested to
// RequesterLocation as recorded at invite time, not at accept time.
type TeleportInvite struct {
	RequesterID       string
	RequestedID       string
	RequesterLocation Location
}

// SameInvite reports whether two invites are equivalent for dedup purposes:
// same requester, same requested player, same destination.
func (i TeleportInvite) SameInvite(other TeleportInvite) bool {
	return i.RequesterID == other.RequesterID &&
		i.RequestedID == other.RequestedID &&
		i.RequesterLocation.SameSpot(other.RequesterLocation)
}

// GroupInvite fans out into one TeleportInvite per requested player.
type GroupInvite struct {
	RequesterID       string
	RequestedIDs      []string
	RequesterLocation Location
}

// Player is the authoritative per-connection session record. It lives from
// socket establishment until disconnect and is owned by exactly one Town;
// all mutation happens inside the town's serialized operations.
type Player struct {
	ID           string
	Username     string
	SessionToken string
	VideoToken   string
	Location     Location

	friends         []string
	selectedFriends []string
	pendingInvites  []TeleportInvite
}

// Friends returns a copy of the player's friend ids.
func (p *Player) Friends() []string {
	return append([]string(nil), p.friends...)
}

// SelectedFriends returns a copy of the player's selected friend ids.
func (p *Player) SelectedFriends() []string {
	return append([]string(nil), p.selectedFriends...)
}

// PendingInvites returns a copy of the teleport invites where this player is
// the requested party.
func (p *Player) PendingInvites() []TeleportInvite {
	return append([]TeleportInvite(nil), p.pendingInvites...)
}

func (p *Player) hasFriend(id string) bool {
	return containsString(p.friends, id)
}

func (p *Player) addFriend(id string) bool {
	if p.hasFriend(id) {
		return false
	}
	p.friends = append(p.friends, id)
	return true
}

// removeFriend drops id from both the friends list and the selected subset,
// keeping the invariant that selected friends are friends.
func (p *Player) removeFriend(id string) bool {
	removed := false
	p.friends, removed = removeString(p.friends, id)
	p.selectedFriends, _ = removeString(p.selectedFriends, id)
	return removed
}

// addPendingInvite appends an invite unless an equivalent one already exists.
func (p *Player) addPendingInvite(inv TeleportInvite) bool {
	for _, existing := range p.pendingInvites {
		if existing.SameInvite(inv) {
			return false
		}
	}
	p.pendingInvites = append(p.pendingInvites, inv)
	return true
}

// takePendingInvite removes and returns the stored invite matching inv.
func (p *Player) takePendingInvite(inv TeleportInvite) (TeleportInvite, bool) {
	for idx, existing := range p.pendingInvites {
		if existing.SameInvite(inv) {
			p.pendingInvites = append(p.pendingInvites[:idx], p.pendingInvites[idx+1:]...)
			return existing, true
		}
	}
	return TeleportInvite{}, false
}

// dropInvitesFrom removes every pending invite requested by requesterID.
func (p *Player) dropInvitesFrom(requesterID string) bool {
	kept := p.pendingInvites[:0]
	removed := false
	for _, inv := range p.pendingInvites {
		if inv.RequesterID == requesterID {
			removed = true
			continue
		}
		kept = append(kept, inv)
	}
	p.pendingInvites = kept
	return removed
}

// PlayerModel is the broadcast snapshot of a player.
type PlayerModel struct {
	ID       string
	Username string
	Location Location
}

// Model returns the broadcast snapshot of the player.
func (p *Player) Model() PlayerModel {
	return PlayerModel{ID: p.ID, Username: p.Username, Location: p.Location}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) ([]string, bool) {
	for idx, v := range list {
		if v == s {
			return append(list[:idx], list[idx+1:]...), true
		}
	}
	return list, false
}
