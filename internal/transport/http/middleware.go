package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/townsquare-server/internal/auth"
)

const (
	// ContextKeyPlayerID is the context key for the session's player id.
	ContextKeyPlayerID = "player_id"
	// ContextKeyTownID is the context key for the session's town id.
	ContextKeyTownID = "town_id"
	// ContextKeyUsername is the context key for the session's username.
	ContextKeyUsername = "username"
)

// SessionMiddleware validates session tokens on REST endpoints.
func SessionMiddleware(sessions *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := sessions.ValidateToken(parts[1])
		if err != nil {
			logger.Debug().Err(err).Msg("invalid session token")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid session token"})
			c.Abort()
			return
		}

		c.Set(ContextKeyPlayerID, claims.PlayerID)
		c.Set(ContextKeyTownID, claims.TownID)
		c.Set(ContextKeyUsername, claims.Username)

		c.Next()
	}
}

// LoggerMiddleware logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
