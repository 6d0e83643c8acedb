// Package frontend is the HTTP surface of the game: login, clicks,
// spectator reads and the websocket push channel. Handlers translate HTTP
// into core calls and broadcast the resulting frames; no game rules live
// here.
package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"go.hexfield.org/game/go/batches"
	"go.hexfield.org/game/go/config"
	"go.hexfield.org/game/go/game"
	"go.hexfield.org/game/go/hexcoord"
	"go.hexfield.org/game/go/httputils"
	"go.hexfield.org/game/go/tilestore"
	"go.hexfield.org/game/go/user"
	"go.hexfield.org/game/go/wire"
	"go.hexfield.org/game/go/wshub"
)

var (
	metricClicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hexfield_clicks_total",
		Help: "Tile clicks handled.",
	})
	metricCaptures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hexfield_captures_total",
		Help: "Clicks that transferred tile ownership.",
	})
	metricLogins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hexfield_logins_total",
		Help: "Users created.",
	})
)

type contextKey string

const userIDKey contextKey = "userID"

// Server wires the core components to their routes.
type Server struct {
	cfg       *config.Config
	store     tilestore.Store
	resolver  *game.Resolver
	projector *batches.Projector
	hub       *wshub.Hub
	logger    *zap.Logger
}

// New returns a Server over the given components.
func New(cfg *config.Config, store tilestore.Store, resolver *game.Resolver, projector *batches.Projector, hub *wshub.Hub, logger *zap.Logger) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		resolver:  resolver,
		projector: projector,
		hub:       hub,
		logger:    logger,
	}
}

// Router builds the full handler stack: CORS, request logging and all
// routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(httputils.LoggingMiddleware(s.logger))

	r.Post("/login", s.loginHandler)
	r.With(s.requireToken).Post("/tile/{q}/{r}", s.clickHandler)
	r.Get("/settings", s.settingsHandler)
	r.Get("/tiles", s.tilesHandler)
	r.Get("/batches", s.batchesHandler)
	r.Get("/users", s.usersHandler)
	r.Get("/ws", s.hub.ServeHTTP)
	r.Get("/healthz", httputils.HealthzHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return cors.New(cors.Options{
		AllowedOrigins: []string{s.cfg.FrontendURL, s.cfg.LocustURL},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
	}).Handler(r)
}

// requireToken authenticates the Basic auth pair (user id, token) against
// the store and stashes the user id in the request context.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, token, ok := r.BasicAuth()
		if !ok || userID == "" {
			httputils.ReportError(w, s.logger, errors.New("missing basic auth"), "Unauthorized", http.StatusUnauthorized)
			return
		}
		valid, err := s.store.ValidToken(r.Context(), userID, token)
		if err != nil {
			httputils.ReportError(w, s.logger, err, "Failed to validate token.", http.StatusInternalServerError)
			return
		}
		if !valid {
			httputils.ReportError(w, s.logger, errors.New("token mismatch"), "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loginRequest is the body of POST /login.
type loginRequest struct {
	Username string `json:"username"`
}

// loginHandler creates a user, announces it on the push channel and
// returns the full record, token included, to its owner.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputils.ReportError(w, s.logger, err, "Failed to decode JSON.", http.StatusBadRequest)
		return
	}

	u := user.New(req.Username)
	if err := s.store.AddUser(r.Context(), u); err != nil {
		httputils.ReportError(w, s.logger, err, "Failed to store user.", http.StatusInternalServerError)
		return
	}
	metricLogins.Inc()
	s.logger.Info("user created",
		zap.String("user_id", u.ID),
		zap.String("username", u.Username))

	s.hub.Broadcast(wire.NewUser{
		ID:       u.ID,
		Username: u.Username,
		Color:    u.Color,
	}.Encode())

	httputils.ReportJSON(w, s.logger, u)
}

// clickHandler resolves one authenticated click and broadcasts every tile
// whose computed view changed, plus the score changes the click caused.
func (s *Server) clickHandler(w http.ResponseWriter, r *http.Request) {
	actorID, _ := r.Context().Value(userIDKey).(string)

	coords, err := parseCoords(chi.URLParam(r, "q"), chi.URLParam(r, "r"))
	if err != nil {
		httputils.ReportError(w, s.logger, err, "Invalid tile coordinates.", http.StatusBadRequest)
		return
	}

	result, err := s.resolver.HandleClick(r.Context(), coords, actorID)
	if err != nil {
		httputils.ReportError(w, s.logger, err, "Failed to update tile.", http.StatusInternalServerError)
		return
	}
	metricClicks.Inc()

	for _, update := range result.Updates {
		s.hub.Broadcast(wire.TileChange{
			Coords:   update.Coords,
			Strength: update.Tile.Strength,
			UserID:   update.Tile.UserID,
		}.Encode())
	}

	// Scores only move when ownership does: on first click the actor
	// gains a tile, on capture the former owner also loses one.
	if result.OwnerChanged {
		if result.PreviousOwner != "" {
			metricCaptures.Inc()
		}
		s.broadcastScore(r.Context(), actorID)
		if result.PreviousOwner != "" {
			s.broadcastScore(r.Context(), result.PreviousOwner)
		}
	}

	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("Tile updated")); err != nil {
		s.logger.Error("writing click response", zap.Error(err))
	}
}

func (s *Server) broadcastScore(ctx context.Context, userID string) {
	score, err := s.store.CountTilesByUser(ctx, userID)
	if err != nil {
		// The tile write already committed; the next score change will
		// carry the correct value.
		s.logger.Error("reading score for broadcast",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}
	s.hub.Broadcast(wire.ScoreChange{
		UserID: userID,
		Score:  uint32(score),
	}.Encode())
}

// settings is the body of GET /settings.
type settings struct {
	Radius   uint32 `json:"radius"`
	BatchDiv uint8  `json:"batch_div"`
}

func (s *Server) settingsHandler(w http.ResponseWriter, r *http.Request) {
	httputils.ReportJSON(w, s.logger, settings{
		Radius:   s.cfg.GridRadius,
		BatchDiv: s.cfg.GridBatchDiv,
	})
}

// tilesHandler projects one batch of the grid.
func (s *Server) tilesHandler(w http.ResponseWriter, r *http.Request) {
	batch, err := strconv.Atoi(r.URL.Query().Get("batch"))
	if err != nil {
		httputils.ReportError(w, s.logger, err, "Invalid batch index.", http.StatusInternalServerError)
		return
	}
	tiles, err := s.projector.Compute(r.Context(), batch)
	if err != nil {
		httputils.ReportError(w, s.logger, err, "Failed to compute batch.", http.StatusInternalServerError)
		return
	}
	httputils.ReportJSON(w, s.logger, tiles)
}

func (s *Server) batchesHandler(w http.ResponseWriter, r *http.Request) {
	httputils.ReportJSON(w, s.logger, s.projector.List())
}

func (s *Server) usersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.GetPublicUsers(r.Context())
	if err != nil {
		httputils.ReportError(w, s.logger, err, "Failed to list users.", http.StatusInternalServerError)
		return
	}
	httputils.ReportJSON(w, s.logger, users)
}

func parseCoords(qStr, rStr string) (hexcoord.AxialCoords, error) {
	q, err := strconv.ParseInt(qStr, 10, 32)
	if err != nil {
		return hexcoord.AxialCoords{}, err
	}
	r, err := strconv.ParseInt(rStr, 10, 32)
	if err != nil {
		return hexcoord.AxialCoords{}, err
	}
	return hexcoord.NewAxial(int32(q), int32(r)), nil
}
