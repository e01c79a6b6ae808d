package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/townsquare-server/internal/auth"
	"github.com/vovakirdan/townsquare-server/internal/config"
	"github.com/vovakirdan/townsquare-server/internal/service/towns"
)

// NewServer builds the HTTP server: town directory REST API plus the
// websocket endpoint clients hold their sessions on.
func NewServer(svc *towns.Service, sessions *auth.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	handlers := NewTownHandlers(svc, logger)
	api := router.Group("/api")
	{
		api.GET("/towns", handlers.List)
		api.POST("/towns", handlers.Create)
		api.PATCH("/towns/:id", handlers.Update)
		api.DELETE("/towns/:id", handlers.Delete)

		authed := api.Group("")
		authed.Use(SessionMiddleware(sessions, logger))
		authed.GET("/session", handlers.Session)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(svc, sessions, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
