// Package gateway serves the grid protocol over WebSocket plus board images and health checks.
package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/park285/cheese-gridchess/internal/adapter/chesspresenter"
	"github.com/park285/cheese-gridchess/internal/game"
	"github.com/park285/cheese-gridchess/internal/msgcat"
	"github.com/park285/cheese-gridchess/internal/render"
	"github.com/park285/cheese-gridchess/internal/store"
	"github.com/park285/cheese-gridchess/pkg/chessdto"
	"go.uber.org/zap"
)

type Server struct {
	games          *game.Manager
	format         *chesspresenter.Formatter
	renderer       *render.Renderer
	presenter      *chesspresenter.Presenter
	archive        store.Archive
	logger         *zap.Logger
	originPatterns []string
	pingInterval   time.Duration
	sendBuffer     int
}

type Option func(*Server)

func WithArchive(a store.Archive) Option { return func(s *Server) { s.archive = a } }

func WithRenderer(r *render.Renderer) Option { return func(s *Server) { s.renderer = r } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOriginPatterns allows cross-origin WebSocket clients matching the host patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) { s.originPatterns = append(s.originPatterns, patterns...) }
}

func WithPingInterval(d time.Duration) Option { return func(s *Server) { s.pingInterval = d } }

func New(games *game.Manager, catalog *msgcat.Catalog, opts ...Option) *Server {
	s := &Server{
		games:        games,
		format:       chesspresenter.NewFormatter(catalog),
		renderer:     render.New(0),
		logger:       zap.NewNop(),
		pingInterval: 30 * time.Second,
		sendBuffer:   32,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.presenter = chesspresenter.NewPresenter(s.format, s.renderer)
	return s
}

// Handler routes GET /ws, GET /games, GET /games/{id}/boards, GET /games/{id}/board.png
// and GET /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWS)
	mux.HandleFunc("GET /games", s.serveGames)
	mux.HandleFunc("GET /games/{id}/boards", s.serveTimeline)
	mux.HandleFunc("GET /games/{id}/board.png", s.serveBoard)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "games": len(s.games.Games())})
	})
	return mux
}

func (s *Server) serveBoard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, err := s.games.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err, id)
		return
	}
	raw, err := s.presenter.BoardPNG(r.Context(), sess.CurrentState())
	if err != nil {
		s.logger.Warn("board_render_failed", zap.String("game_id", id), zap.Error(err))
		s.writeError(w, err, id)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(raw)
}

func (s *Server) serveGames(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusOK, chessdto.ServerFrame{Type: chessdto.FrameGames, Games: []chessdto.GameSummary{}})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, chesspresenter.ErrBadRequest, "")
			return
		}
		limit = n
	}
	games, err := s.archive.RecentGames(r.Context(), limit)
	if err != nil {
		s.logger.Warn("recent_games_failed", zap.Error(err))
		s.writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, chessdto.ServerFrame{Type: chessdto.FrameGames, Games: chesspresenter.ToDTOSummaries(games)})
}

func (s *Server) serveTimeline(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.archive == nil {
		s.writeError(w, fmt.Errorf("%s: %w", id, game.ErrGameNotFound), id)
		return
	}
	records, err := s.archive.Boards(r.Context(), id)
	if err != nil {
		s.logger.Warn("board_timeline_failed", zap.String("game_id", id), zap.Error(err))
		s.writeError(w, err, id)
		return
	}
	if len(records) == 0 {
		s.writeError(w, fmt.Errorf("%s: %w", id, game.ErrGameNotFound), id)
		return
	}
	writeJSON(w, http.StatusOK, chessdto.ServerFrame{Type: chessdto.FrameBoards, GameID: id, Boards: chesspresenter.ToDTOBoards(records)})
}

func (s *Server) writeError(w http.ResponseWriter, err error, gameID string) {
	de := s.format.Error(err, gameID, "")
	writeJSON(w, statusFor(de.Code), chessdto.ServerFrame{Type: chessdto.FrameError, GameID: gameID, Error: de})
}

func statusFor(code string) int {
	switch code {
	case chessdto.CodeGameNotFound:
		return http.StatusNotFound
	case chessdto.CodeBadRequest, chessdto.CodeIllegalMove, chessdto.CodeOutOfBounds:
		return http.StatusBadRequest
	case chessdto.CodeNotYourTurn, chessdto.CodeTurnInFlight:
		return http.StatusConflict
	case chessdto.CodeChooserUnavailable, chessdto.CodeUnparseableChoice:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
