package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/sendou-ink/sendou.ink-sub003/internal/group"
	"github.com/sendou-ink/sendou.ink-sub003/internal/leaderboard"
	"github.com/sendou-ink/sendou.ink-sub003/internal/match"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
	"github.com/sendou-ink/sendou.ink-sub003/internal/report"
	"github.com/sendou-ink/sendou.ink-sub003/internal/season"
)

// API exposes the queue, match and leaderboard services over HTTP JSON.
type API struct {
	groups       *group.Service
	matches      *match.Service
	reports      *report.Service
	leaderboards *leaderboard.Service
	schedule     season.Schedule
	clock        clockwork.Clock
}

func NewAPI(
	groups *group.Service,
	matches *match.Service,
	reports *report.Service,
	leaderboards *leaderboard.Service,
	schedule season.Schedule,
	clock clockwork.Clock,
) *API {
	return &API{
		groups:       groups,
		matches:      matches,
		reports:      reports,
		leaderboards: leaderboards,
		schedule:     schedule,
		clock:        clock,
	}
}

// RegisterRoutes registers the JSON API routes with an HTTP mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /groups", a.handleCreateGroup)
	mux.HandleFunc("GET /groups/{id}", a.handleGetGroup)
	mux.HandleFunc("POST /groups/{id}/members", a.handleAddMember)
	mux.HandleFunc("DELETE /groups/{id}/members/{userId}", a.handleRemoveMember)
	mux.HandleFunc("POST /groups/{id}/inactive", a.handleSetInactive)
	mux.HandleFunc("POST /matches", a.handleCreateMatch)
	mux.HandleFunc("GET /matches/{id}", a.handleGetMatch)
	mux.HandleFunc("POST /matches/{id}/report", a.handleReportScore)
	mux.HandleFunc("GET /leaderboards/teams", a.handleTeamLeaderboard)
	mux.HandleFunc("GET /leaderboards/users", a.handleUserLeaderboard)
	mux.HandleFunc("GET /leaderboards/weapons", a.handleWeaponPopularity)
}

type createGroupRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

func (a *API) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.UserID == uuid.Nil {
		respondError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}

	created, err := a.groups.CreateGroup(r.Context(), req.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (a *API) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	found, err := a.groups.Group(r.Context(), groupID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	members, err := a.groups.Members(r.Context(), groupID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"group":   found,
		"members": members,
	})
}

type addMemberRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

func (a *API) handleAddMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.UserID == uuid.Nil {
		respondError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}

	if err := a.groups.AddMember(r.Context(), groupID, req.UserID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	userID, err := pathUUID(r, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.groups.RemoveMember(r.Context(), groupID, userID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSetInactive(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.groups.SetInactive(r.Context(), groupID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createMatchRequest struct {
	AlphaGroupID  uuid.UUID     `json:"alpha_group_id"`
	BravoGroupID  uuid.UUID     `json:"bravo_group_id"`
	ExcludedModes []models.Mode `json:"excluded_modes,omitempty"`
}

func (a *API) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.AlphaGroupID == uuid.Nil || req.BravoGroupID == uuid.Nil {
		respondError(w, http.StatusBadRequest, errors.New("both group IDs are required"))
		return
	}

	created, err := a.matches.CreateMatch(r.Context(), match.CreateMatchRequest{
		AlphaGroupID:  req.AlphaGroupID,
		BravoGroupID:  req.BravoGroupID,
		ExcludedModes: req.ExcludedModes,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (a *API) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	found, err := a.matches.FindMatchByID(r.Context(), matchID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, found)
}

func (a *API) handleReportScore(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	var req report.ReportScoreRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.reports.ReportScore(r.Context(), matchID, req); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleTeamLeaderboard(w http.ResponseWriter, r *http.Request) {
	seasonN, err := a.seasonParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	onlyOne := r.URL.Query().Get("all_entries") != "true"

	entries, err := a.leaderboards.TeamLeaderboardBySeason(r.Context(), seasonN, onlyOne)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (a *API) handleUserLeaderboard(w http.ResponseWriter, r *http.Request) {
	seasonN, err := a.seasonParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	entries, err := a.leaderboards.UserSPLeaderboard(r.Context(), seasonN)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (a *API) handleWeaponPopularity(w http.ResponseWriter, r *http.Request) {
	seasonN, err := a.seasonParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	entries, err := a.leaderboards.WeaponPopularityBySeason(r.Context(), seasonN)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// seasonParam reads the season query parameter, defaulting to the latest
// season that has started.
func (a *API) seasonParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("season")
	if raw == "" {
		return a.schedule.Latest(a.clock.Now()), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid season")
	}
	return n, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, errors.New("invalid " + name)
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, errorBody{Error: err.Error()})
}

// respondServiceError maps domain errors onto HTTP status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, group.ErrGroupNotFound),
		errors.Is(err, group.ErrMemberNotFound),
		errors.Is(err, match.ErrMatchNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, group.ErrUserAlreadyQueued),
		errors.Is(err, group.ErrGroupFull),
		errors.Is(err, group.ErrGroupInactive),
		errors.Is(err, group.ErrGroupPaired),
		errors.Is(err, report.ErrAlreadyResolved):
		respondError(w, http.StatusConflict, err)
	case errors.Is(err, match.ErrPairingPrecondition),
		errors.Is(err, report.ErrInvalidWinners):
		respondError(w, http.StatusUnprocessableEntity, err)
	default:
		log.Error().Err(err).Msg("internal error")
		respondError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}
