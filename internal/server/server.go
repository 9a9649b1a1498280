// Package server exposes the variant dataset over HTTP: one synchronous
// handler per user action, JSON responses carrying display-ready fields.
package server

import (
	"time"

	"github.com/go-co-op/gocron"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"go.uber.org/zap"

	"github.com/varscope/varscope/internal/filter"
	"github.com/varscope/varscope/internal/panels"
	"github.com/varscope/varscope/internal/store"
	"github.com/varscope/varscope/internal/variant"
)

// VariantSource is the store surface the handlers consume.
type VariantSource interface {
	ListSamples() []string
	LoadVariants(samples, chromosomes []string, limit int) []variant.Row
	GetVariant(variantKey, sampleID string) *variant.Row
	Comments(variantKey, sampleID string) []variant.Comment
	AddComment(variantKey, sampleID, userName, text string) bool
	UpdateReviewStatus(variantKey, sampleID, newStatus string) bool
	Stats() store.Stats
	Info() store.Info
}

// PanelSource is the panel-manager surface the handlers consume.
type PanelSource interface {
	ListPanels() []panels.PanelOption
	GenesForPanels(panelIDs []string, highConfidenceOnly bool) []string
	PanelInfo(panelID string) *panels.PanelInfo
	SearchPanels(term string) []panels.PanelOption
	Refresh(force bool) error
	Stale() bool
}

// Server wires the store, panel manager and gene resolver behind an echo
// instance.
type Server struct {
	echo       *echo.Echo
	store      VariantSource
	panels     PanelSource
	genes      filter.GeneResolver
	logger     *zap.Logger
	scheduler  *gocron.Scheduler
	displayCap int
}

// New builds a server over its three collaborators and registers all
// routes.
func New(vs VariantSource, ps PanelSource, genes filter.GeneResolver) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST},
	}))

	s := &Server{
		echo:       e,
		store:      vs,
		panels:     ps,
		genes:      genes,
		logger:     zap.NewNop(),
		displayCap: store.DefaultDisplayCap,
	}
	s.routes()
	return s
}

// SetLogger sets the logger for request-level warnings and scheduler
// output.
func (s *Server) SetLogger(l *zap.Logger) { s.logger = l }

// SetDisplayCap overrides the per-response row cap.
func (s *Server) SetDisplayCap(n int) {
	if n > 0 {
		s.displayCap = n
	}
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/samples", s.handleSamples)
	e.GET("/variants", s.handleVariants)
	e.GET("/variants/:key/:sample", s.handleVariantDetail)
	e.GET("/variants/:key/:sample/comments", s.handleComments)
	e.GET("/stats", s.handleStats)
	e.GET("/panels", s.handlePanels)
	e.GET("/panels/:id", s.handlePanelInfo)
	e.GET("/export", s.handleExport)
	e.POST("/comments", s.handleAddComment)
	e.POST("/review", s.handleReview)
	e.POST("/panels/refresh", s.handlePanelRefresh)
}

// Start runs the HTTP listener, blocking until shutdown or failure.
func (s *Server) Start(addr string) error {
	s.logger.Info("http server starting", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Close stops the listener and any background scheduler.
func (s *Server) Close() error {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	return s.echo.Close()
}

// StartScheduler arms a daily job that refreshes the panel cache when it
// has gone stale.
func (s *Server) StartScheduler() {
	sched := gocron.NewScheduler(time.UTC)
	sched.Every(1).Days().At("03:00").Do(func() {
		if !s.panels.Stale() {
			return
		}
		s.logger.Info("scheduled panel refresh starting")
		if err := s.panels.Refresh(false); err != nil {
			s.logger.Error("scheduled panel refresh", zap.Error(err))
		}
	})
	sched.StartAsync()
	s.scheduler = sched
}
