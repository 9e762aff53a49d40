// Package api serves engine status over HTTP and streams notifications over a websocket.
//
//	GET  /status    current engine status
//	POST /game/new  drop the session and wait for the start position
//	GET  /hint      best move for the side to move (needs a search engine)
//	GET  /events    websocket stream of notifications; ?kinds=move,state filters
//
// Handlers only read published status and enqueue events; they never touch the event loop.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/roach88/reedboard/internal/engine"
	"github.com/roach88/reedboard/internal/search"
)

// Board is the part of the engine the API needs.
type Board interface {
	Status() engine.Status
	RequestNewGame(source string) bool
	Subscribe(buffer int) (<-chan engine.Notification, func())
}

// Hinter suggests a move for a FEN position.
type Hinter interface {
	BestMove(fen string) (search.Hint, error)
}

const (
	writeWait    = 5 * time.Second
	pingInterval = 30 * time.Second
	eventBuffer  = 64
)

// Server is the HTTP front end.
type Server struct {
	board    Board
	hints    Hinter
	router   *gin.Engine
	upgrader websocket.Upgrader
}

// Option configures a Server.
type Option func(*Server)

// WithHinter enables GET /hint.
func WithHinter(h Hinter) Option {
	return func(s *Server) {
		s.hints = h
	}
}

// New builds the router.
func New(b Board, opts ...Option) *Server {
	s := &Server{
		board: b,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The board is a LAN appliance; front ends are served from anywhere.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLog())
	r.GET("/status", s.getStatus)
	r.POST("/game/new", s.postNewGame)
	r.GET("/hint", s.getHint)
	r.GET("/events", s.getEvents)
	s.router = r
	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("api listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.board.Status())
}

func (s *Server) postNewGame(c *gin.Context) {
	if !s.board.RequestNewGame("api") {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine stopped"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

func (s *Server) getHint(c *gin.Context) {
	if s.hints == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no search engine configured"})
		return
	}
	st := s.board.Status()
	if st.State != engine.StateActive || st.GameOver {
		c.JSON(http.StatusConflict, gin.H{"error": "no game in progress", "state": st.State})
		return
	}

	hint, err := s.hints.BestMove(st.FEN)
	switch {
	case errors.Is(err, search.ErrNoMove):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		slog.Error("hint failed", "fen", st.FEN, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"fen": st.FEN, "turn": st.Turn, "hint": hint})
	}
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("api request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}
