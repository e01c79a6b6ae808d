package town

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layout describes the static map a town is built from: the set of named
// zones and their geometry. Layout errors are structural and fatal to town
// creation; a town never starts with a bad map.
type Layout struct {
	Spawn         SpawnPoint         `yaml:"spawn"`
	Interactables []InteractableSpec `yaml:"interactables"`
}

// SpawnPoint is where newly joined players appear.
type SpawnPoint struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// InteractableSpec declares one zone in the static map.
type InteractableSpec struct {
	ID   string           `yaml:"id"`
	Kind InteractableKind `yaml:"kind"`
	Box  BoundingBox      `yaml:"box"`
}

// LoadLayout reads and validates a layout from a yaml file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}

	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &layout, nil
}

// Validate checks the structural invariants: the interactables layer exists,
// ids are unique, kinds are known, geometry is sane, and no two boxes
// overlap, so "the zone containing this point" is always unambiguous.
func (l *Layout) Validate() error {
	if len(l.Interactables) == 0 {
		return fmt.Errorf("layout has no interactables layer")
	}

	seen := make(map[string]struct{}, len(l.Interactables))
	for _, spec := range l.Interactables {
		if spec.ID == "" {
			return fmt.Errorf("interactable with empty id")
		}
		if _, dup := seen[spec.ID]; dup {
			return fmt.Errorf("duplicate interactable id %q", spec.ID)
		}
		seen[spec.ID] = struct{}{}

		switch spec.Kind {
		case KindConversation, KindViewing:
		default:
			return fmt.Errorf("interactable %q has unknown kind %q", spec.ID, spec.Kind)
		}

		if spec.Box.Width <= 0 || spec.Box.Height <= 0 {
			return fmt.Errorf("interactable %q has degenerate box", spec.ID)
		}
	}

	for i := range l.Interactables {
		for j := i + 1; j < len(l.Interactables); j++ {
			a, b := l.Interactables[i], l.Interactables[j]
			if a.Box.Overlaps(b.Box) {
				return fmt.Errorf("interactables %q and %q overlap", a.ID, b.ID)
			}
		}
	}

	return nil
}

// DefaultLayout returns the built-in starter map used when no layout file is
// configured.
func DefaultLayout() *Layout {
	return &Layout{
		Spawn: SpawnPoint{X: 500, Y: 400},
		Interactables: []InteractableSpec{
			{ID: "Lobby", Kind: KindConversation, Box: BoundingBox{X: 0, Y: 0, Width: 200, Height: 150}},
			{ID: "Garden", Kind: KindConversation, Box: BoundingBox{X: 250, Y: 0, Width: 200, Height: 150}},
			{ID: "Theater", Kind: KindViewing, Box: BoundingBox{X: 0, Y: 200, Width: 300, Height: 180}},
		},
	}
}
