package town

// Social graph operations. The town keeps no ledger of outstanding friend
// requests: decline and cancel are broadcast-only, and clients prune their
// own pending lists from the named events. Teleport invites are the one
// piece of invite state the town stores, and only on the requested player.

// InviteFriend announces a friend request. The pair is broadcast town-wide;
// only clients whose id appears as actor or affected act on it.
func (t *Town) InviteFriend(req FriendRequest) {
	if req.Actor == "" || req.Affected == "" || req.Actor == req.Affected {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.broadcastLocked(&Event{Kind: EventFriendRequestSent, FriendRequest: &req})
}

// CancelFriendRequest announces that the actor withdrew their request. No
// authoritative state changes; clients prune their pending lists.
func (t *Town) CancelFriendRequest(req FriendRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.broadcastLocked(&Event{Kind: EventFriendRequestCanceled, FriendRequest: &req})
}

// AcceptFriendRequest materializes the friendship on both session records
// before any observer is notified, then broadcasts the accept.
func (t *Town) AcceptFriendRequest(req FriendRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()

	actor := t.findPlayerLocked(req.Actor)
	affected := t.findPlayerLocked(req.Affected)
	if actor == nil || affected == nil || actor.ID == affected.ID {
		return
	}

	actor.addFriend(affected.ID)
	affected.addFriend(actor.ID)
	t.broadcastLocked(&Event{Kind: EventFriendRequestAccepted, FriendRequest: &req})
}

// DeclineFriendRequest announces the decline. Broadcast-only, like cancel.
func (t *Town) DeclineFriendRequest(req FriendRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.broadcastLocked(&Event{Kind: EventFriendRequestDeclined, FriendRequest: &req})
}

// RemoveFriend dissolves the friendship on both sides, then broadcasts.
func (t *Town) RemoveFriend(req FriendRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()

	actor := t.findPlayerLocked(req.Actor)
	affected := t.findPlayerLocked(req.Affected)
	if actor == nil || affected == nil {
		return
	}

	actor.removeFriend(affected.ID)
	affected.removeFriend(actor.ID)
	t.broadcastLocked(&Event{Kind: EventFriendRemoved, FriendRequest: &req})
}

// InviteToConversationArea fans a group invite out into one singular invite
// per requested player, deduplicating on (requester, destination), and emits
// a single group broadcast. The requester must currently be inside an active
// conversation zone; the requester location clients supplied is replaced
// with the authoritative one.
func (t *Town) InviteToConversationArea(invite GroupInvite) {
	t.mu.Lock()
	defer t.mu.Unlock()

	requester := t.findPlayerLocked(invite.RequesterID)
	if requester == nil {
		return
	}
	area := t.findConversationAreaLocked(requester.Location.InteractableID)
	if area == nil || !area.Active() {
		return
	}

	invite.RequesterLocation = requester.Location
	for _, requestedID := range invite.RequestedIDs {
		requested := t.findPlayerLocked(requestedID)
		if requested == nil || requested.ID == requester.ID {
			continue
		}
		requested.addPendingInvite(TeleportInvite{
			RequesterID:       requester.ID,
			RequestedID:       requested.ID,
			RequesterLocation: invite.RequesterLocation,
		})
	}

	t.broadcastLocked(&Event{Kind: EventConvAreaInviteSent, GroupInvite: &invite})
}

// AcceptConversationAreaInvite removes the stored invite and teleports the
// requested player to the requester's location as recorded at invite time.
// Stale invites (already removed, unknown player) are silent no-ops.
func (t *Town) AcceptConversationAreaInvite(invite TeleportInvite) {
	t.mu.Lock()
	defer t.mu.Unlock()

	requested := t.findPlayerLocked(invite.RequestedID)
	if requested == nil {
		return
	}
	stored, ok := requested.takePendingInvite(invite)
	if !ok {
		return
	}

	dest := stored.RequesterLocation
	dest.Moving = false
	t.applyLocationLocked(requested, dest)
	t.broadcastLocked(&Event{Kind: EventConvAreaInviteAccepted, Invite: &stored})
}

// DeclineConversationAreaInvite removes the stored invite and broadcasts the
// decline. No movement happens; stale invites are silent no-ops.
func (t *Town) DeclineConversationAreaInvite(invite TeleportInvite) {
	t.mu.Lock()
	defer t.mu.Unlock()

	requested := t.findPlayerLocked(invite.RequestedID)
	if requested == nil {
		return
	}
	stored, ok := requested.takePendingInvite(invite)
	if !ok {
		return
	}

	t.broadcastLocked(&Event{Kind: EventConvAreaInviteDeclined, Invite: &stored})
}
