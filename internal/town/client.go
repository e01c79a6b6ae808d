package town

// eventBuffer is the per-subscriber queue depth. A subscriber that falls
// further behind starts dropping events rather than stalling the town.
const eventBuffer = 64

// Client is one subscribed connection: the player record plus the channel
// the transport drains into the socket. Events is closed when the player is
// removed from the town.
type Client struct {
	Player *Player
	Events chan *Event
}

func newClient(p *Player) *Client {
	return &Client{
		Player: p,
		Events: make(chan *Event, eventBuffer),
	}
}

func (c *Client) send(event *Event) {
	select {
	case c.Events <- event:
	default:
		// Drop if slow consumer.
	}
}
