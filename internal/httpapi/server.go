// Package httpapi is the thin HTTP surface the worker exposes: a
// health check, the recording-ready webhook that kicks off the
// diarization workflow, and the WebSocket upgrade endpoint fanning a
// transcript's events out to subscribed clients. Routing only — all
// domain logic lives in internal/workflow/diarization and
// internal/events.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/monadical-sas/reflector/internal/dag"
	"github.com/monadical-sas/reflector/internal/events"
	"github.com/monadical-sas/reflector/internal/workflow/diarization"
	"github.com/monadical-sas/reflector/pkg/version"
)

// Server bundles the dependencies every route handler needs.
type Server struct {
	Engine       *dag.Engine
	Diarization  *diarization.Services
	ConnManager  *events.ConnectionManager
	Log          *slog.Logger
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.handleHealth)
	r.POST("/webhooks/recording-ready", s.handleRecordingReady)
	r.GET("/ws/transcripts/:id", s.handleWebSocket)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Full()})
}
