package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dmxctl/internal/domain"
	"dmxctl/internal/logging"
	"dmxctl/internal/usecase"
)

// Server is a primary adapter exposing the performance controls over HTTP.
// It depends on the console use case (primary port).
type Server struct {
	usecase usecase.ConsoleUseCase
	router  *gin.Engine
	server  *http.Server
}

// NewServer creates the HTTP server bound to addr.
func NewServer(uc usecase.ConsoleUseCase, addr string) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), loggingMiddleware())

	s := &Server{usecase: uc, router: router}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/session", s.getSession)
		api.GET("/presets", s.listPresets)
		api.GET("/shows", s.listShows)
		api.POST("/presets/:id/apply", s.applyPreset)
		api.POST("/shows/stop", s.stopShow)
		api.POST("/shows/:id/run", s.runShow)
		api.POST("/shows/:id/toggle", s.toggleShow)
		api.PUT("/channels/:address", s.setChannel)
		api.POST("/blackout", s.blackout)
		api.POST("/refresh", s.refresh)
		api.POST("/monitoring", s.setMonitoring)
	}
}

// Handler returns the router, used by tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start blocks and serves HTTP traffic.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.usecase.Snapshot().Summarize())
}

func (s *Server) listPresets(c *gin.Context) {
	presets, err := s.usecase.Presets()
	if err != nil {
		writeError(c, err)
		return
	}
	active := s.usecase.Snapshot().ActivePresetID()
	out := make([]gin.H, 0, len(presets))
	for _, p := range presets {
		out = append(out, gin.H{
			"id":       p.ID,
			"name":     p.Name,
			"channels": len(p.Channels),
			"active":   p.ID == active,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) listShows(c *gin.Context) {
	shows, err := s.usecase.Shows()
	if err != nil {
		writeError(c, err)
		return
	}
	active := s.usecase.Snapshot().ActiveShowID()
	out := make([]gin.H, 0, len(shows))
	for _, sh := range shows {
		out = append(out, gin.H{
			"id":     sh.ID,
			"name":   sh.Name,
			"steps":  len(sh.Steps),
			"active": sh.ID == active,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) applyPreset(c *gin.Context) {
	id := c.Param("id")
	if err := s.usecase.ApplyPreset(id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "preset sent", "preset_id": id})
}

func (s *Server) runShow(c *gin.Context) {
	id := c.Param("id")
	loop := true
	if v := c.Query("loop"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loop flag"})
			return
		}
		loop = b
	}
	if err := s.usecase.RunShow(id, loop); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "show sent", "show_id": id, "loop": loop})
}

func (s *Server) toggleShow(c *gin.Context) {
	id := c.Param("id")
	started, err := s.usecase.ToggleShow(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"show_id": id, "started": started})
}

func (s *Server) stopShow(c *gin.Context) {
	if err := s.usecase.StopShow(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "stop sent"})
}

type channelRequest struct {
	Value *int `json:"value" binding:"required"`
}

func (s *Server) setChannel(c *gin.Context) {
	addr, err := strconv.Atoi(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return
	}
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.usecase.SetChannel(addr, *req.Value); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"address": addr, "value": *req.Value})
}

func (s *Server) blackout(c *gin.Context) {
	if err := s.usecase.Blackout(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "blackout sent"})
}

func (s *Server) refresh(c *gin.Context) {
	if err := s.usecase.Refresh(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "refresh requested"})
}

type monitoringRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) setMonitoring(c *gin.Context) {
	var req monitoringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.usecase.SetMonitoring(req.Enabled); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"monitoring": req.Enabled})
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownPreset), errors.Is(err, domain.ErrUnknownShow):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMissingID),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidValue):
		return http.StatusBadRequest
	}
	// Catalog not yet received, link down, session closed.
	return http.StatusServiceUnavailable
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debugf("%s %s %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
