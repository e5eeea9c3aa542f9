package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jjudge-oj/scoreboard/internal/services"
	"github.com/jjudge-oj/scoreboard/types"
)

// retryAfterSeconds is advertised when submission data is unavailable.
const retryAfterSeconds = 5

// StandingsReader is the part of services.StandingsService the handlers need.
type StandingsReader interface {
	Snapshot(ctx context.Context, q services.Query) (types.StandingsSnapshot, error)
	Archive(ctx context.Context, contestID int) (string, error)
}

// StandingsHandler serves contest scoreboards.
type StandingsHandler struct {
	standings StandingsReader
	logger    *zap.Logger
}

func NewStandingsHandler(standings StandingsReader, logger *zap.Logger) *StandingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StandingsHandler{standings: standings, logger: logger}
}

// StandingsRouterConfig carries the auth settings of the standings routes.
type StandingsRouterConfig struct {
	JWTSecret   string
	RequireAuth bool
}

// StandingsRouter registers standings routes on the given router.
func StandingsRouter(r chi.Router, standings StandingsReader, users UserLookup, cfg StandingsRouterConfig, logger *zap.Logger) {
	handler := NewStandingsHandler(standings, logger)

	readAuth := OptionalAuth(cfg.JWTSecret)
	if cfg.RequireAuth {
		readAuth = RequireAuth(cfg.JWTSecret)
	}

	r.Route("/{contestID}", func(r chi.Router) {
		r.With(readAuth).Get("/", handler.GetStandings)
		r.With(RequireAuth(cfg.JWTSecret), RequireAdmin(users)).Post("/archive", handler.ArchiveStandings)
	})
}

// GetStandings returns one page of a contest's standings.
func (h *StandingsHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	contestID, err := parseIDParam(r, "contestID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	viewerID, _ := userIDFromContext(r.Context())
	snapshot, err := h.standings.Snapshot(r.Context(), services.Query{
		ContestID: contestID,
		Page:      page,
		Limit:     limit,
		ViewerID:  viewerID,
	})
	if err != nil {
		h.writeServiceError(w, err, contestID)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// ArchiveStandings stores the final standings of an ended contest.
func (h *StandingsHandler) ArchiveStandings(w http.ResponseWriter, r *http.Request) {
	contestID, err := parseIDParam(r, "contestID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := h.standings.Archive(r.Context(), contestID)
	if err != nil {
		h.writeServiceError(w, err, contestID)
		return
	}

	writeJSON(w, http.StatusCreated, ArchiveResponse{Key: key})
}

// ArchiveResponse names the stored object.
type ArchiveResponse struct {
	Key string `json:"key"`
}

func (h *StandingsHandler) writeServiceError(w http.ResponseWriter, err error, contestID int) {
	switch {
	case errors.Is(err, services.ErrInvalidPage):
		writeError(w, http.StatusBadRequest, "invalid page")
	case errors.Is(err, services.ErrContestNotFound):
		writeError(w, http.StatusNotFound, "contest not found")
	case errors.Is(err, services.ErrStandingsUnavailable):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		writeError(w, http.StatusServiceUnavailable, "standings temporarily unavailable")
	case errors.Is(err, services.ErrContestRunning), errors.Is(err, services.ErrPendingSubmissions):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrArchiveDisabled):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		h.logger.Error("standings request failed", zap.Int("contest_id", contestID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load standings")
	}
}
