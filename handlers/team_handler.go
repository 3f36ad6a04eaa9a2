package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/tournament-teams/middleware"
	"github.com/Dosada05/tournament-teams/models"
	"github.com/Dosada05/tournament-teams/services"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5"
)

const randomJoinRetries = 3

type TeamHandler struct {
	bracketService    services.BracketService
	allocationService services.AllocationService
	queryService      services.QueryService
	newJoinBackOff    func() backoff.BackOff
}

func NewTeamHandler(bs services.BracketService, as services.AllocationService, qs services.QueryService) *TeamHandler {
	return &TeamHandler{
		bracketService:    bs,
		allocationService: as,
		queryService:      qs,
		newJoinBackOff:    defaultJoinBackOff,
	}
}

func defaultJoinBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = time.Second
	return backoff.WithMaxRetries(b, randomJoinRetries)
}

type buildBracketRequest struct {
	Size     int `json:"size"`
	Capacity int `json:"capacity"`
}

func (h *TeamHandler) BuildBracket(w http.ResponseWriter, r *http.Request) {
	var req buildBracketRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	adminID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	teams, err := h.bracketService.BuildBracket(r.Context(), services.BuildBracketInput{
		Size:      req.Size,
		Capacity:  req.Capacity,
		CreatorID: adminID,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	summaries := make([]models.TeamSummary, len(teams))
	for i, t := range teams {
		summaries[i] = t.Summary()
	}

	response := jsonResponse{
		"message": "bracket created",
		"count":   len(teams),
		"teams":   summaries,
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) DeactivateBracket(w http.ResponseWriter, r *http.Request) {
	count, err := h.allocationService.DeactivateBracket(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"deactivated_count": count}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.queryService.ListActiveWithPlayers(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams, "count": len(teams)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queryService.Overview(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) GroupStats(w http.ResponseWriter, r *http.Request) {
	groups, err := h.queryService.AggregateByGroup(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"groups": groups}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	team, err := h.queryService.FindByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) Search(w http.ResponseWriter, r *http.Request) {
	teams, err := h.queryService.SearchByName(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams, "count": len(teams)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type joinByCodeRequest struct {
	Code string `json:"code"`
}

func (h *TeamHandler) JoinByCode(w http.ResponseWriter, r *http.Request) {
	var req joinByCodeRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		badRequestResponse(w, r, errors.New("code is required"))
		return
	}

	playerID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	team, err := h.allocationService.JoinByCode(r.Context(), playerID, req.Code)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message": "joined team",
		"team":    team.Summary(),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// JoinRandom повторяет попытку, если выбранную команду успели заполнить между выбором и записью.
func (h *TeamHandler) JoinRandom(w http.ResponseWriter, r *http.Request) {
	playerID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	team, err := h.joinRandomWithRetry(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message": "joined team",
		"team":    team.Summary(),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) joinRandomWithRetry(ctx context.Context, playerID int) (*models.Team, error) {
	var team *models.Team
	attempt := 0

	op := func() error {
		attempt++
		var err error
		team, err = h.allocationService.JoinRandom(ctx, playerID)
		if errors.Is(err, services.ErrTeamFull) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		middleware.LoggerFromContext(ctx).Debug("random join lost a race, retrying",
			"player_id", playerID, "attempt", attempt, "retry_in", wait)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(h.newJoinBackOff(), ctx), notify); err != nil {
		return nil, err
	}
	return team, nil
}

func (h *TeamHandler) MyStatus(w http.ResponseWriter, r *http.Request) {
	playerID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	status, err := h.queryService.StatusFor(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, status, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
