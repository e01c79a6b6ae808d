package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/townsquare-server/internal/service/towns"
	"github.com/vovakirdan/townsquare-server/internal/town"
)

// TownHandlers provides HTTP handlers for the town directory API.
type TownHandlers struct {
	towns *towns.Service
	log   *zerolog.Logger
}

// NewTownHandlers creates town directory handlers.
func NewTownHandlers(svc *towns.Service, logger *zerolog.Logger) *TownHandlers {
	return &TownHandlers{towns: svc, log: logger}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateTownRequest represents the town creation request body.
type CreateTownRequest struct {
	FriendlyName     string `json:"friendlyName" binding:"required"`
	IsPubliclyListed bool   `json:"isPubliclyListed"`
}

// CreateTownResponse carries the new town id and its one-time password.
type CreateTownResponse struct {
	TownID             string `json:"townID"`
	TownUpdatePassword string `json:"townUpdatePassword"`
}

// Create handles town creation.
// POST /api/towns
func (h *TownHandlers) Create(c *gin.Context) {
	var req CreateTownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create town request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	t, password, err := h.towns.CreateTown(c.Request.Context(), req.FriendlyName, req.IsPubliclyListed)
	if err != nil {
		if errors.Is(err, towns.ErrEmptyName) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "friendly name is required"})
			return
		}
		h.log.Error().Err(err).Msg("failed to create town")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, CreateTownResponse{
		TownID:             t.ID(),
		TownUpdatePassword: password,
	})
}

// List handles the public town directory.
// GET /api/towns
func (h *TownHandlers) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"towns": h.towns.ListTowns()})
}

// UpdateTownRequest represents the town settings update request body.
type UpdateTownRequest struct {
	Password         string  `json:"townUpdatePassword" binding:"required"`
	FriendlyName     *string `json:"friendlyName"`
	IsPubliclyListed *bool   `json:"isPubliclyListed"`
}

// Update handles town settings updates.
// PATCH /api/towns/:id
func (h *TownHandlers) Update(c *gin.Context) {
	var req UpdateTownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.towns.UpdateTown(c.Request.Context(), c.Param("id"), req.Password, town.SettingsUpdate{
		FriendlyName: req.FriendlyName,
		IsPublic:     req.IsPubliclyListed,
	})
	if err != nil {
		h.respondDirectoryError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// DeleteTownRequest represents the town deletion request body.
type DeleteTownRequest struct {
	Password string `json:"townUpdatePassword" binding:"required"`
}

// Delete handles town teardown.
// DELETE /api/towns/:id
func (h *TownHandlers) Delete(c *gin.Context) {
	var req DeleteTownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.towns.DeleteTown(c.Request.Context(), c.Param("id"), req.Password); err != nil {
		h.respondDirectoryError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// SessionResponse describes the authenticated caller's session.
type SessionResponse struct {
	PlayerID string `json:"playerID"`
	TownID   string `json:"townID"`
	Username string `json:"username"`
}

// Session returns the caller's session identity; requires a session token.
// GET /api/session
func (h *TownHandlers) Session(c *gin.Context) {
	c.JSON(http.StatusOK, SessionResponse{
		PlayerID: c.GetString(ContextKeyPlayerID),
		TownID:   c.GetString(ContextKeyTownID),
		Username: c.GetString(ContextKeyUsername),
	})
}

func (h *TownHandlers) respondDirectoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, towns.ErrTownNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "town not found"})
	case errors.Is(err, towns.ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid town update password"})
	default:
		h.log.Error().Err(err).Msg("town directory operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
