package mirror

// selectedFriends is the client-local selection of friends used for mini
// messages and group invites. It has no wire representation: the server
// never sends it and the controller never serializes it. It changes only
// through local user action.
type selectedFriends struct {
	ids []string
}

func (s *selectedFriends) list() []string {
	return append([]string(nil), s.ids...)
}

func (s *selectedFriends) add(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return false
		}
	}
	s.ids = append(s.ids, id)
	return true
}

func (s *selectedFriends) remove(id string) bool {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return true
		}
	}
	return false
}
