// Package http exposes the room hub over a websocket endpoint.
package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatty/internal/config"
	"github.com/vovakirdan/chatty/internal/core"
)

// NewServer builds an HTTP server with the health and websocket routes.
func NewServer(hub *core.Hub, cfg config.Server, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(hub, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler mounts /ws on a plain mux and everything else on gin.
// The websocket upgrade needs the raw ResponseWriter: gin's writer reports
// the 101 header as already written and refuses to hijack.
func NewHandler(hub *core.Hub, cfg config.Server, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg.RateLimit, logger))
	mux.Handle("/", NewRouter(logger))
	return mux
}

// NewRouter returns the gin engine serving the plain HTTP routes.
func NewRouter(logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	return router
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
