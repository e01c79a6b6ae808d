package mirror

import (
	"sort"

	"github.com/vovakirdan/townsquare-server/internal/proto"
)

// Multiset comparisons used by the list-valued property setters: two lists
// are the same when they hold the same entries in any order.

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func requestKey(r proto.FriendRequest) string {
	return r.Actor + "\x00" + r.Affected
}

func sameRequestSet(a, b []proto.FriendRequest) bool {
	if len(a) != len(b) {
		return false
	}
	as := make([]string, len(a))
	bs := make([]string, len(b))
	for i := range a {
		as[i] = requestKey(a[i])
	}
	for i := range b {
		bs[i] = requestKey(b[i])
	}
	return sameStringSet(as, bs)
}

// samePair matches a friend-request pair regardless of direction; accept and
// remove events dissolve the pair whichever side initiated it.
func samePair(a, b proto.FriendRequest) bool {
	return (a.Actor == b.Actor && a.Affected == b.Affected) ||
		(a.Actor == b.Affected && a.Affected == b.Actor)
}

func sameDestination(a, b proto.Location) bool {
	return a.X == b.X && a.Y == b.Y && a.InteractableID == b.InteractableID
}

func sameInvite(a, b proto.TeleportInvite) bool {
	return a.RequesterID == b.RequesterID &&
		a.RequestedID == b.RequestedID &&
		sameDestination(a.RequesterLocation, b.RequesterLocation)
}

func sameInviteSet(a, b []proto.TeleportInvite) bool {
	if len(a) != len(b) {
		return false
	}
	matched := make([]bool, len(b))
outer:
	for _, inv := range a {
		for i, other := range b {
			if !matched[i] && sameInvite(inv, other) {
				matched[i] = true
				continue outer
			}
		}
		return false
	}
	return true
}
