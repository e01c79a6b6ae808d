package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the session-token claims tying a player identity to a town.
type Claims struct {
	PlayerID string `json:"player_id"`
	TownID   string `json:"town_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Config holds session-token signing configuration.
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Service issues and validates session tokens. Tokens are opaque to clients;
// the server uses the embedded claims to authenticate reconnects and REST
// calls without any server-side session ledger.
type Service struct {
	cfg Config
}

// NewService creates a session token service.
func NewService(cfg Config) *Service {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Service{cfg: cfg}
}

// IssueSessionToken creates a signed session token for a player in a town.
func (s *Service) IssueSessionToken(townID, playerID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		PlayerID: playerID,
		TownID:   townID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.Secret)
}

// ValidateToken parses and validates a session token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if s.cfg.Issuer != "" && claims.Issuer != s.cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}

	return claims, nil
}
