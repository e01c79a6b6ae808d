package video

import "github.com/vovakirdan/townsquare-server/internal/utils"

// Engine abstracts the video-conferencing backend. The town only needs a
// join token per player; everything else is the provider's business.
type Engine interface {
	// VideoToken creates join credentials for a player's town video room.
	VideoToken(townID, playerID, username string) (string, error)
}

// Disabled is the fallback engine used when no video provider is configured.
// It hands out opaque placeholder tokens so the session contract holds.
type Disabled struct{}

// VideoToken returns an opaque placeholder token.
func (Disabled) VideoToken(_, _, _ string) (string, error) {
	return utils.NewID(), nil
}

var _ Engine = Disabled{}
