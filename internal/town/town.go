package town

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/townsquare-server/internal/utils"
)

// TokenIssuer mints opaque session tokens for new players.
type TokenIssuer interface {
	IssueSessionToken(townID, playerID, username string) (string, error)
}

// VideoTokenProvider mints video-provider join tokens for new players.
type VideoTokenProvider interface {
	VideoToken(townID, playerID, username string) (string, error)
}

// ChatLogger records relayed chat messages. Implementations own their error
// handling; the town calls it best-effort off the hot path.
type ChatLogger interface {
	LogChatMessage(townID string, msg ChatMessage)
}

// Options configures a new town. Layout is required; the token, video and
// chat-log collaborators are optional.
type Options struct {
	ID           string
	FriendlyName string
	IsPublic     bool
	Capacity     int
	Layout       *Layout
	Sessions     TokenIssuer
	Video        VideoTokenProvider
	ChatLog      ChatLogger
	Log          *zerolog.Logger
}

// DefaultCapacity bounds how many players a town admits unless configured.
const DefaultCapacity = 50

// Town is the authoritative owner of all mutable per-town state: the player
// registry, the zone registry, and the social graph. Every operation runs to
// completion under one mutex, so multi-step sequences never interleave, and
// every broadcast is emitted only after its mutation has been applied.
type Town struct {
	id string

	mu           sync.Mutex
	friendlyName string
	isPublic     bool
	capacity     int
	closed       bool
	spawn        SpawnPoint

	players           []*Player
	clients           map[string]*Client
	conversationAreas []*ConversationArea
	viewingAreas      []*ViewingArea

	sessions TokenIssuer
	video    VideoTokenProvider
	chatLog  ChatLogger
	log      zerolog.Logger
}

// New builds a town from a validated layout. Layout problems are structural
// errors fatal to town creation: a broken map never accepts players.
func New(opts Options) (*Town, error) {
	if opts.Layout == nil {
		return nil, fmt.Errorf("town %q: layout is required", opts.ID)
	}
	if err := opts.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("town %q: %w", opts.ID, err)
	}

	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	logger := zerolog.Nop()
	if opts.Log != nil {
		logger = opts.Log.With().Str("town", opts.ID).Logger()
	}

	t := &Town{
		id:           opts.ID,
		friendlyName: opts.FriendlyName,
		isPublic:     opts.IsPublic,
		capacity:     capacity,
		spawn:        opts.Layout.Spawn,
		clients:      make(map[string]*Client),
		sessions:     opts.Sessions,
		video:        opts.Video,
		chatLog:      opts.ChatLog,
		log:          logger,
	}

	for _, spec := range opts.Layout.Interactables {
		switch spec.Kind {
		case KindConversation:
			t.conversationAreas = append(t.conversationAreas, &ConversationArea{ID: spec.ID, Box: spec.Box})
		case KindViewing:
			t.viewingAreas = append(t.viewingAreas, &ViewingArea{ID: spec.ID, Box: spec.Box})
		}
	}

	return t, nil
}

// ID returns the town's immutable identifier.
func (t *Town) ID() string { return t.id }

// FriendlyName returns the current display name.
func (t *Town) FriendlyName() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.friendlyName
}

// IsPublic reports whether the town appears in the public directory.
func (t *Town) IsPublic() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isPublic
}

// Occupancy returns the number of connected players.
func (t *Town) Occupancy() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.players)
}

// Capacity returns the player limit.
func (t *Town) Capacity() int { return t.capacity }

// Snapshot is the full town state delivered to a freshly joined client.
type Snapshot struct {
	PlayerID      string
	SessionToken  string
	VideoToken    string
	TownID        string
	FriendlyName  string
	IsPublic      bool
	Players       []PlayerModel
	Interactables []InteractableModel
}

// AddPlayer allocates a session for username, registers it, and announces
// the join to everyone already connected. The returned snapshot is the
// initialize payload the transport must deliver as the first frame.
func (t *Town) AddPlayer(username string) (*Client, *Snapshot, error) {
	if username == "" {
		return nil, nil, ErrBadUsername
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, nil, ErrTownClosed
	}
	if len(t.players) >= t.capacity {
		return nil, nil, ErrTownFull
	}

	p := &Player{
		ID:       uuid.NewString(),
		Username: username,
		Location: Location{X: t.spawn.X, Y: t.spawn.Y, Rotation: DirectionFront},
	}

	if t.sessions != nil {
		token, err := t.sessions.IssueSessionToken(t.id, p.ID, username)
		if err != nil {
			return nil, nil, fmt.Errorf("issue session token: %w", err)
		}
		p.SessionToken = token
	} else {
		p.SessionToken = utils.NewID()
	}

	if t.video != nil {
		token, err := t.video.VideoToken(t.id, p.ID, username)
		if err != nil {
			return nil, nil, fmt.Errorf("issue video token: %w", err)
		}
		p.VideoToken = token
	} else {
		p.VideoToken = utils.NewID()
	}

	// Spawning inside an already-active zone is a membership transition.
	if areaID := t.activeAreaAtLocked(p.Location.X, p.Location.Y); areaID != "" {
		p.Location.InteractableID = areaID
		t.addOccupantLocked(p.ID, areaID)
	}

	// The joiner is not yet subscribed, so this reaches everyone else.
	model := p.Model()
	t.broadcastLocked(&Event{Kind: EventPlayerJoined, Player: &model})
	if p.Location.InteractableID != "" {
		t.broadcastAreaLocked(p.Location.InteractableID)
	}

	c := newClient(p)
	t.players = append(t.players, p)
	t.clients[p.ID] = c

	t.log.Info().Str("player", p.ID).Str("username", username).Msg("player joined")

	return c, t.snapshotLocked(p), nil
}

// RemovePlayer tears the session down on transport disconnect. Ordering
// matters: registry, then area membership, then social unlinking, then the
// disconnect broadcast, so no observer can see a dangling reference.
func (t *Town) RemovePlayer(c *Client) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removePlayerLocked(c)
}

func (t *Town) removePlayerLocked(c *Client) {
	p := c.Player
	if _, registered := t.clients[p.ID]; !registered {
		return
	}
	delete(t.clients, p.ID)
	for idx, other := range t.players {
		if other.ID == p.ID {
			t.players = append(t.players[:idx], t.players[idx+1:]...)
			break
		}
	}

	if areaID := p.Location.InteractableID; areaID != "" {
		t.removeOccupantLocked(p.ID, areaID)
		t.broadcastAreaLocked(areaID)
	}

	for _, other := range t.players {
		other.removeFriend(p.ID)
		other.dropInvitesFrom(p.ID)
	}

	model := p.Model()
	t.broadcastLocked(&Event{Kind: EventPlayerDisconnected, Player: &model})
	close(c.Events)

	t.log.Info().Str("player", p.ID).Msg("player disconnected")
}

// UpdatePlayerLocation stores a movement, recomputes zone membership, and
// broadcasts the corrected record. The client-supplied interactable id is
// always overwritten with the server-computed value.
func (t *Town) UpdatePlayerLocation(p *Player, loc Location) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, registered := t.clients[p.ID]; !registered {
		return
	}
	t.applyLocationLocked(p, loc)
}

func (t *Town) applyLocationLocked(p *Player, loc Location) {
	prevArea := p.Location.InteractableID
	newArea := t.activeAreaAtLocked(loc.X, loc.Y)
	loc.InteractableID = newArea
	p.Location = loc

	if prevArea != newArea {
		if prevArea != "" {
			t.removeOccupantLocked(p.ID, prevArea)
		}
		if newArea != "" {
			t.addOccupantLocked(p.ID, newArea)
		}
		if prevArea != "" {
			t.broadcastAreaLocked(prevArea)
		}
		if newArea != "" {
			t.broadcastAreaLocked(newArea)
		}
	}

	model := p.Model()
	t.broadcastLocked(&Event{Kind: EventPlayerMoved, Player: &model})
}

// AddConversationArea activates the zone with the given topic. It fails
// silently (returns false, no broadcast) unless the zone exists in the map,
// has no topic yet, and the topic is non-empty. On success occupants are
// recomputed from current player positions and the full model broadcast.
func (t *Town) AddConversationArea(id, topic string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	a := t.findConversationAreaLocked(id)
	if a == nil || a.Topic != "" || topic == "" {
		return false
	}

	a.Topic = topic
	for _, p := range t.players {
		if p.Location.InteractableID == "" && a.Box.Contains(p.Location.X, p.Location.Y) {
			a.addOccupant(p.ID)
			p.Location.InteractableID = id
		}
	}

	model := a.Model()
	t.broadcastLocked(&Event{Kind: EventInteractableUpdated, Interactable: &model})
	return true
}

// AddViewingArea activates the zone with the given video, with the same
// create-once, fail-silent contract as AddConversationArea.
func (t *Town) AddViewingArea(id, video string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	a := t.findViewingAreaLocked(id)
	if a == nil || a.Video != "" || video == "" {
		return false
	}

	a.Video = video
	for _, p := range t.players {
		if p.Location.InteractableID == "" && a.Box.Contains(p.Location.X, p.Location.Y) {
			a.addOccupant(p.ID)
			p.Location.InteractableID = id
		}
	}

	model := a.Model()
	t.broadcastLocked(&Event{Kind: EventInteractableUpdated, Interactable: &model})
	return true
}

// UpdateInteractable applies a client-sent zone update, honoring only the
// fields relevant to the kind the server knows the zone to be. Unknown ids
// are ignored without error.
func (t *Town) UpdateInteractable(m InteractableModel) {
	if a := t.findConversationArea(m.ID); a != nil {
		// Topic is set-once; occupants are never client-writable.
		t.AddConversationArea(m.ID, m.Topic)
		return
	}

	t.mu.Lock()
	v := t.findViewingAreaLocked(m.ID)
	if v == nil {
		t.mu.Unlock()
		return
	}
	if !v.Active() {
		t.mu.Unlock()
		t.AddViewingArea(m.ID, m.Video)
		return
	}
	if v.ElapsedTimeSec == m.ElapsedTimeSec && v.IsPlaying == m.IsPlaying {
		t.mu.Unlock()
		return
	}
	v.ElapsedTimeSec = m.ElapsedTimeSec
	v.IsPlaying = m.IsPlaying

	model := v.Model()
	t.broadcastLocked(&Event{Kind: EventInteractableUpdated, Interactable: &model})
	t.mu.Unlock()
}

// Interactables returns the broadcast models of every zone.
func (t *Town) Interactables() []InteractableModel {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interactableModelsLocked()
}

// Players returns the broadcast models of every connected player.
func (t *Town) Players() []PlayerModel {
	t.mu.Lock()
	defer t.mu.Unlock()
	models := make([]PlayerModel, 0, len(t.players))
	for _, p := range t.players {
		models = append(models, p.Model())
	}
	return models
}

// PlayerByID returns the live session record for a player id.
func (t *Town) PlayerByID(id string) (*Player, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.findPlayerLocked(id)
	return p, p != nil
}

// SendChatMessage relays a chat message town-wide and records it in the
// chat log when one is configured.
func (t *Town) SendChatMessage(p *Player, body string) {
	msg := ChatMessage{
		AuthorID:  p.ID,
		SID:       uuid.NewString(),
		Body:      body,
		CreatedAt: time.Now(),
	}

	t.mu.Lock()
	if _, registered := t.clients[p.ID]; !registered {
		t.mu.Unlock()
		return
	}
	t.broadcastLocked(&Event{Kind: EventChatMessage, Chat: &msg})
	t.mu.Unlock()

	if t.chatLog != nil {
		go t.chatLog.LogChatMessage(t.id, msg)
	}
}

// SendMiniMessage delivers a brief message to exactly the listed recipients;
// players not in the list receive nothing.
func (t *Town) SendMiniMessage(p *Player, recipientIDs []string, body string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, registered := t.clients[p.ID]; !registered {
		return
	}

	mini := MiniMessage{SenderID: p.ID, RecipientIDs: recipientIDs, Body: body}
	event := &Event{Kind: EventMiniMessage, Mini: &mini}
	for _, id := range recipientIDs {
		if c, ok := t.clients[id]; ok {
			c.send(event)
		}
	}
}

// UpdateSettings applies a partial settings change and broadcasts it.
func (t *Town) UpdateSettings(update SettingsUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if update.FriendlyName != nil {
		t.friendlyName = *update.FriendlyName
	}
	if update.IsPublic != nil {
		t.isPublic = *update.IsPublic
	}
	t.broadcastLocked(&Event{Kind: EventTownSettingsUpdated, Settings: &update})
}

// DisconnectAll broadcasts the town-closing notice, then forcibly ends every
// session. The town accepts no players afterwards.
func (t *Town) DisconnectAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.broadcastLocked(&Event{Kind: EventTownClosing})

	for _, c := range t.clients {
		close(c.Events)
	}
	t.clients = make(map[string]*Client)
	t.players = nil

	t.log.Info().Msg("town closed")
}

func (t *Town) snapshotLocked(self *Player) *Snapshot {
	snap := &Snapshot{
		PlayerID:      self.ID,
		SessionToken:  self.SessionToken,
		VideoToken:    self.VideoToken,
		TownID:        t.id,
		FriendlyName:  t.friendlyName,
		IsPublic:      t.isPublic,
		Interactables: t.interactableModelsLocked(),
	}
	// Self goes first; the registry already holds the joiner at this point.
	snap.Players = append(snap.Players, self.Model())
	for _, p := range t.players {
		if p.ID == self.ID {
			continue
		}
		snap.Players = append(snap.Players, p.Model())
	}
	return snap
}

func (t *Town) interactableModelsLocked() []InteractableModel {
	models := make([]InteractableModel, 0, len(t.conversationAreas)+len(t.viewingAreas))
	for _, a := range t.conversationAreas {
		models = append(models, a.Model())
	}
	for _, a := range t.viewingAreas {
		models = append(models, a.Model())
	}
	return models
}

func (t *Town) findPlayerLocked(id string) *Player {
	for _, p := range t.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (t *Town) findConversationArea(id string) *ConversationArea {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.findConversationAreaLocked(id)
}

func (t *Town) findConversationAreaLocked(id string) *ConversationArea {
	for _, a := range t.conversationAreas {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (t *Town) findViewingAreaLocked(id string) *ViewingArea {
	for _, a := range t.viewingAreas {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// activeAreaAtLocked returns the id of the active zone containing the point,
// or "". Layout validation guarantees at most one match.
func (t *Town) activeAreaAtLocked(x, y float64) string {
	for _, a := range t.conversationAreas {
		if a.Active() && a.Box.Contains(x, y) {
			return a.ID
		}
	}
	for _, a := range t.viewingAreas {
		if a.Active() && a.Box.Contains(x, y) {
			return a.ID
		}
	}
	return ""
}

func (t *Town) addOccupantLocked(playerID, areaID string) {
	if a := t.findConversationAreaLocked(areaID); a != nil {
		a.addOccupant(playerID)
		return
	}
	if a := t.findViewingAreaLocked(areaID); a != nil {
		a.addOccupant(playerID)
	}
}

// removeOccupantLocked drops the player from the zone. A conversation zone
// emptied this way loses its topic, which is the observable deactivation.
func (t *Town) removeOccupantLocked(playerID, areaID string) {
	if a := t.findConversationAreaLocked(areaID); a != nil {
		a.removeOccupant(playerID)
		if len(a.occupants) == 0 {
			a.Topic = ""
		}
		return
	}
	if a := t.findViewingAreaLocked(areaID); a != nil {
		a.removeOccupant(playerID)
	}
}

func (t *Town) broadcastAreaLocked(areaID string) {
	if a := t.findConversationAreaLocked(areaID); a != nil {
		model := a.Model()
		t.broadcastLocked(&Event{Kind: EventInteractableUpdated, Interactable: &model})
		return
	}
	if a := t.findViewingAreaLocked(areaID); a != nil {
		model := a.Model()
		t.broadcastLocked(&Event{Kind: EventInteractableUpdated, Interactable: &model})
	}
}

// broadcastLocked fans the event out to every subscriber of the town. There
// is no sender exclusion here; clients filter their own echoes.
func (t *Town) broadcastLocked(event *Event) {
	for _, c := range t.clients {
		c.send(event)
	}
}
