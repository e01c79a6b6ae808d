package towns

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/townsquare-server/internal/auth"
	"github.com/vovakirdan/townsquare-server/internal/store"
	"github.com/vovakirdan/townsquare-server/internal/town"
	"github.com/vovakirdan/townsquare-server/internal/utils"
)

// Common errors for town directory operations.
var (
	ErrTownNotFound    = errors.New("town not found")
	ErrInvalidPassword = errors.New("invalid town update password")
	ErrEmptyName       = errors.New("friendly name is required")
)

// Options configures the town directory service.
type Options struct {
	Store    store.Store
	Sessions town.TokenIssuer
	Video    town.VideoTokenProvider
	Layout   *town.Layout
	Capacity int
	Log      *zerolog.Logger
}

// Service is the town directory: it owns the live Town instances, creates
// and deletes them, and guards settings updates behind the one-time update
// password handed out at creation. Town records survive restarts; sessions
// do not: every town comes back empty.
type Service struct {
	mu    sync.RWMutex
	towns map[string]*town.Town

	store    store.Store
	sessions town.TokenIssuer
	video    town.VideoTokenProvider
	layout   *town.Layout
	capacity int
	log      zerolog.Logger
}

// New builds the service and revives persisted town records as empty towns.
func New(ctx context.Context, opts Options) (*Service, error) {
	logger := zerolog.Nop()
	if opts.Log != nil {
		logger = *opts.Log
	}

	layout := opts.Layout
	if layout == nil {
		layout = town.DefaultLayout()
	}

	s := &Service{
		towns:    make(map[string]*town.Town),
		store:    opts.Store,
		sessions: opts.Sessions,
		video:    opts.Video,
		layout:   layout,
		capacity: opts.Capacity,
		log:      logger,
	}

	if s.store != nil {
		records, err := s.store.ListTowns(ctx)
		if err != nil {
			return nil, fmt.Errorf("list towns: %w", err)
		}
		for _, rec := range records {
			t, err := s.newTown(rec.ID, rec.FriendlyName, rec.IsPublic, rec.Capacity)
			if err != nil {
				return nil, fmt.Errorf("revive town %s: %w", rec.ID, err)
			}
			s.towns[rec.ID] = t
		}
		if len(records) > 0 {
			logger.Info().Int("count", len(records)).Msg("revived persisted towns")
		}
	}

	return s, nil
}

func (s *Service) newTown(id, friendlyName string, isPublic bool, capacity int) (*town.Town, error) {
	if capacity <= 0 {
		capacity = s.capacity
	}
	return town.New(town.Options{
		ID:           id,
		FriendlyName: friendlyName,
		IsPublic:     isPublic,
		Capacity:     capacity,
		Layout:       s.layout,
		Sessions:     s.sessions,
		Video:        s.video,
		ChatLog:      s,
		Log:          &s.log,
	})
}

// CreateTown creates a town and returns it together with the plaintext
// update password. The password is shown exactly once; only its hash is
// stored.
func (s *Service) CreateTown(ctx context.Context, friendlyName string, isPublic bool) (*town.Town, string, error) {
	if friendlyName == "" {
		return nil, "", ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := utils.NewTownCode()
	for {
		if _, taken := s.towns[id]; !taken {
			break
		}
		id = utils.NewTownCode()
	}

	password := utils.NewID()
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	t, err := s.newTown(id, friendlyName, isPublic, 0)
	if err != nil {
		return nil, "", err
	}

	if s.store != nil {
		rec := &store.TownRecord{
			ID:           id,
			FriendlyName: friendlyName,
			IsPublic:     isPublic,
			Capacity:     t.Capacity(),
			PasswordHash: hash,
			CreatedAt:    time.Now(),
		}
		if err := s.store.CreateTown(ctx, rec); err != nil {
			return nil, "", fmt.Errorf("persist town: %w", err)
		}
	}

	s.towns[id] = t
	s.log.Info().Str("town", id).Str("name", friendlyName).Bool("public", isPublic).Msg("town created")
	return t, password, nil
}

// Get returns the live town for an id.
func (s *Service) Get(id string) (*town.Town, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.towns[id]
	return t, ok
}

// Listing is one public-directory entry.
type Listing struct {
	ID           string `json:"townID"`
	FriendlyName string `json:"friendlyName"`
	Occupancy    int    `json:"currentOccupancy"`
	Capacity     int    `json:"maximumOccupancy"`
}

// ListTowns returns the publicly listed towns with their occupancy.
func (s *Service) ListTowns() []Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listings := make([]Listing, 0, len(s.towns))
	for _, t := range s.towns {
		if !t.IsPublic() {
			continue
		}
		listings = append(listings, Listing{
			ID:           t.ID(),
			FriendlyName: t.FriendlyName(),
			Occupancy:    t.Occupancy(),
			Capacity:     t.Capacity(),
		})
	}
	return listings
}

// UpdateTown applies a settings change after checking the update password.
// The change is persisted and broadcast to connected clients.
func (s *Service) UpdateTown(ctx context.Context, id, password string, update town.SettingsUpdate) error {
	t, ok := s.Get(id)
	if !ok {
		return ErrTownNotFound
	}
	if err := s.checkPassword(ctx, id, password); err != nil {
		return err
	}

	t.UpdateSettings(update)

	if s.store != nil {
		rec := &store.TownRecord{ID: id, FriendlyName: t.FriendlyName(), IsPublic: t.IsPublic()}
		if err := s.store.UpdateTown(ctx, rec); err != nil {
			return fmt.Errorf("persist update: %w", err)
		}
	}
	return nil
}

// DeleteTown tears a town down after checking the update password: every
// client gets the closing notice, sessions are disconnected, and the record
// is removed.
func (s *Service) DeleteTown(ctx context.Context, id, password string) error {
	t, ok := s.Get(id)
	if !ok {
		return ErrTownNotFound
	}
	if err := s.checkPassword(ctx, id, password); err != nil {
		return err
	}

	t.DisconnectAll()

	s.mu.Lock()
	delete(s.towns, id)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.DeleteTown(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("delete record: %w", err)
		}
	}

	s.log.Info().Str("town", id).Msg("town deleted")
	return nil
}

func (s *Service) checkPassword(ctx context.Context, id, password string) error {
	if s.store == nil {
		return nil
	}
	rec, err := s.store.GetTown(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTownNotFound
		}
		return err
	}
	if auth.ComparePassword(rec.PasswordHash, password) != nil {
		return ErrInvalidPassword
	}
	return nil
}

// LogChatMessage records a relayed chat message; failures are logged, never
// surfaced to the town.
func (s *Service) LogChatMessage(townID string, msg town.ChatMessage) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec := &store.ChatRecord{
		TownID:    townID,
		AuthorID:  msg.AuthorID,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt,
	}
	if err := s.store.SaveChatMessage(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("town", townID).Msg("failed to log chat message")
	}
}

var _ town.ChatLogger = (*Service)(nil)
