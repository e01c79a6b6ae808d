package livekit

import (
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/vovakirdan/townsquare-server/internal/video"
)

// Engine implements video.Engine using LiveKit as the media backend. Every
// town maps to one LiveKit room; LiveKit creates rooms on-demand when the
// first participant joins, so only the token is generated here.
type Engine struct {
	apiKey    string
	apiSecret string
	tokenTTL  time.Duration
}

// New creates a LiveKit-backed video engine.
func New(apiKey, apiSecret string) *Engine {
	return &Engine{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		tokenTTL:  4 * time.Hour,
	}
}

// VideoToken creates a LiveKit join token for the player in the town room.
func (e *Engine) VideoToken(townID, playerID, username string) (string, error) {
	roomName := fmt.Sprintf("town-%s", townID)

	at := auth.NewAccessToken(e.apiKey, e.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin: true,
		Room:     roomName,
	}
	at.SetVideoGrant(grant).
		SetIdentity(playerID).
		SetName(username).
		SetValidFor(e.tokenTTL)

	token, err := at.ToJWT()
	if err != nil {
		return "", fmt.Errorf("generate video token: %w", err)
	}
	return token, nil
}

var _ video.Engine = (*Engine)(nil)
