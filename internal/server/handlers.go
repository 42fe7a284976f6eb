package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"caveatlab/delegraph/internal/caveat"
	"caveatlab/delegraph/internal/graph"
	"caveatlab/delegraph/internal/session"
	"caveatlab/delegraph/internal/simulator"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// sendError logs err and writes message with the given status.
func (s *Server) sendError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	s.logger(c).Debug(message, zap.Error(err))
	c.JSON(status, ErrorResponse{Error: message})
}

func sendList(c *gin.Context, items any) {
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   items,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listAccounts(c *gin.Context) {
	sendList(c, s.session.Accounts.All())
}

func (s *Server) listCaveats(c *gin.Context) {
	sendList(c, caveat.Catalog())
}

func (s *Server) chain(c *gin.Context) {
	c.JSON(http.StatusOK, s.session.Chain)
}

func (s *Server) listDelegations(c *gin.Context) {
	ds, err := s.session.Delegations()
	if err != nil {
		s.sendError(c, http.StatusInternalServerError, "Failed to load delegations", err)
		return
	}
	sendList(c, ds)
}

func (s *Server) bindRequest(c *gin.Context) (session.Request, bool) {
	var req session.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		s.sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return req, false
	}
	if req.From == "" || req.To == "" {
		s.sendError(c, http.StatusBadRequest, "from and to are required", errors.New("missing from or to"))
		return req, false
	}
	return req, true
}

func (s *Server) draftError(c *gin.Context, err error) {
	if errors.Is(err, session.ErrInvalidRequest) {
		s.sendError(c, http.StatusUnprocessableEntity, err.Error(), err)
		return
	}
	s.sendError(c, http.StatusInternalServerError, "Failed to build delegation", err)
}

func (s *Server) previewDelegation(c *gin.Context) {
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}
	draft, err := s.session.Preview(req)
	if err != nil {
		s.draftError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (s *Server) createDelegation(c *gin.Context) {
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}
	draft, err := s.session.Create(req)
	if err != nil {
		s.draftError(c, err)
		return
	}
	c.JSON(http.StatusCreated, draft)
}

func (s *Server) graph(c *gin.Context) {
	g, err := s.session.Graph()
	if err != nil {
		s.sendError(c, http.StatusInternalServerError, "Failed to build graph", err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) analysis(c *gin.Context) {
	cfg := graph.DefaultConfig()
	if v := c.Query("hub_threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.sendError(c, http.StatusBadRequest, "hub_threshold must be a non-negative integer", err)
			return
		}
		cfg.HubThreshold = n
	}
	report, err := s.session.Analyze(cfg)
	if err != nil {
		s.sendError(c, http.StatusInternalServerError, "Failed to analyze delegations", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) simulationState(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.State())
}

// StartResponse is returned by POST /api/simulation/start.
type StartResponse struct {
	AlreadyRunning bool            `json:"alreadyRunning"`
	State          simulator.State `json:"state"`
}

func (s *Server) startSimulation(c *gin.Context) {
	resp := StartResponse{}
	if err := s.sim.Start(); err != nil {
		if !errors.Is(err, simulator.ErrAlreadyRunning) {
			s.sendError(c, http.StatusInternalServerError, "Failed to start simulation", err)
			return
		}
		resp.AlreadyRunning = true
	}
	resp.State = s.sim.State()
	c.JSON(http.StatusOK, resp)
}

func (s *Server) resetSimulation(c *gin.Context) {
	s.sim.Reset()
	c.JSON(http.StatusOK, s.sim.State())
}
