package town

// BoundingBox is an axis-aligned rectangle in town coordinates. X and Y name
// the top-left corner.
type BoundingBox struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Contains reports whether the point lies inside the rectangle. The top and
// left edges are inclusive, the bottom and right edges exclusive, so adjacent
// boxes never claim the same point.
func (b BoundingBox) Contains(x, y float64) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// Overlaps reports whether two rectangles share any interior area.
func (b BoundingBox) Overlaps(other BoundingBox) bool {
	return b.X < other.X+other.Width && other.X < b.X+b.Width &&
		b.Y < other.Y+other.Height && other.Y < b.Y+b.Height
}

// InteractableKind distinguishes zone variants.
type InteractableKind string

const (
	KindConversation InteractableKind = "conversation"
	KindViewing      InteractableKind = "viewing"
)

// ConversationArea is a zone where players gather around a topic. It is
// inactive until a topic is set and deactivates when its last occupant
// leaves.
type ConversationArea struct {
	ID    string
	Box   BoundingBox
	Topic string

	occupants []string
}

// Active reports whether the zone participates in membership computation.
func (a *ConversationArea) Active() bool {
	return a.Topic != ""
}

// Empty reports whether the zone counts as empty: no topic or no occupants.
func (a *ConversationArea) Empty() bool {
	return a.Topic == "" || len(a.occupants) == 0
}

// Occupants returns a copy of the occupant ids.
func (a *ConversationArea) Occupants() []string {
	return append([]string(nil), a.occupants...)
}

func (a *ConversationArea) addOccupant(id string) {
	if !containsString(a.occupants, id) {
		a.occupants = append(a.occupants, id)
	}
}

func (a *ConversationArea) removeOccupant(id string) bool {
	var removed bool
	a.occupants, removed = removeString(a.occupants, id)
	return removed
}

// ViewingArea is a zone playing shared media. It is inactive until a video
// is set and stays active while empty.
type ViewingArea struct {
	ID             string
	Box            BoundingBox
	Video          string
	ElapsedTimeSec float64
	IsPlaying      bool

	occupants []string
}

// Active reports whether the zone participates in membership computation.
func (a *ViewingArea) Active() bool {
	return a.Video != ""
}

// Occupants returns a copy of the occupant ids.
func (a *ViewingArea) Occupants() []string {
	return append([]string(nil), a.occupants...)
}

func (a *ViewingArea) addOccupant(id string) {
	if !containsString(a.occupants, id) {
		a.occupants = append(a.occupants, id)
	}
}

func (a *ViewingArea) removeOccupant(id string) bool {
	var removed bool
	a.occupants, removed = removeString(a.occupants, id)
	return removed
}

// InteractableModel is the broadcast snapshot of a zone.
type InteractableModel struct {
	ID             string
	Kind           InteractableKind
	Topic          string
	OccupantsByID  []string
	Video          string
	ElapsedTimeSec float64
	IsPlaying      bool
}

// Model returns the broadcast snapshot of the conversation area.
func (a *ConversationArea) Model() InteractableModel {
	return InteractableModel{
		ID:            a.ID,
		Kind:          KindConversation,
		Topic:         a.Topic,
		OccupantsByID: a.Occupants(),
	}
}

// Model returns the broadcast snapshot of the viewing area.
func (a *ViewingArea) Model() InteractableModel {
	return InteractableModel{
		ID:             a.ID,
		Kind:           KindViewing,
		Video:          a.Video,
		ElapsedTimeSec: a.ElapsedTimeSec,
		IsPlaying:      a.IsPlaying,
		OccupantsByID:  a.Occupants(),
	}
}
