// Package server exposes a session and a simulator as a JSON API for a
// single local renderer.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"caveatlab/delegraph/internal/session"
	"caveatlab/delegraph/internal/simulator"
)

// Config configures a Server.
type Config struct {
	Addr        string
	CORSOrigins []string
	Logger      *zap.Logger
}

// Server serves the playground API.
type Server struct {
	session *session.Session
	sim     *simulator.Simulator
	log     *zap.Logger
	addr    string
	router  *gin.Engine
}

// New builds the router. It does not start listening.
func New(sess *session.Session, sim *simulator.Simulator, cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		session: sess,
		sim:     sim,
		log:     log.Named("server"),
		addr:    cfg.Addr,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(correlationID())
	r.Use(requestLogger(s.log))
	r.Use(configureCORS(cfg.CORSOrigins))
	s.routes(r)
	s.router = r
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", s.health)

	api := r.Group("/api")
	{
		api.GET("/accounts", s.listAccounts)
		api.GET("/caveats", s.listCaveats)
		api.GET("/chain", s.chain)

		api.GET("/delegations", s.listDelegations)
		api.POST("/delegations", s.createDelegation)
		api.POST("/delegations/preview", s.previewDelegation)
		api.GET("/graph", s.graph)
		api.GET("/analysis", s.analysis)

		sim := api.Group("/simulation")
		{
			sim.GET("", s.simulationState)
			sim.POST("/start", s.startSimulation)
			sim.POST("/reset", s.resetSimulation)
		}
	}
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.sim.Reset()
	return srv.Shutdown(shutdownCtx)
}

func configureCORS(origins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(origins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", CorrelationIDHeader}
	corsConfig.ExposeHeaders = []string{CorrelationIDHeader}
	return cors.New(corsConfig)
}
