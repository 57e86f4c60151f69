package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// ToggleInterestRequest is the optional body of PUT /events/{eventID}/interest.
// Without desired the interest is flipped.
type ToggleInterestRequest struct {
	Desired *bool `json:"desired"`
}

// ParticipationState is returned by join and leave.
type ParticipationState struct {
	EventID          string `json:"event_id"`
	Joined           bool   `json:"joined"`
	ParticipantCount int    `json:"participant_count"`
}

// InterestState is returned by the interest toggle.
type InterestState struct {
	EventID         string              `json:"event_id"`
	Result          domain.ToggleResult `json:"result"`
	Interested      bool                `json:"interested"`
	InterestedCount int                 `json:"interested_count"`
}

type ParticipationController struct {
	Logger  *slog.Logger
	Service domain.ParticipationService
}

func NewParticipationController(logger *slog.Logger, svc domain.ParticipationService) *ParticipationController {
	return &ParticipationController{Logger: logger, Service: svc}
}

// Join godoc
// @Summary Join an event
// @Description Idempotent: joining twice leaves one participation and succeeds. Connected clients receive event:joined on /ws/participation.
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains joined state and participant_count"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events/{eventID}/participants [post]
func (c *ParticipationController) Join(w http.ResponseWriter, r *http.Request) {
	c.setJoined(w, r, true)
}

// Leave godoc
// @Summary Leave an event
// @Description Leaving an event the caller never joined succeeds. Connected clients receive event:left.
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains joined state and participant_count"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events/{eventID}/participants [delete]
func (c *ParticipationController) Leave(w http.ResponseWriter, r *http.Request) {
	c.setJoined(w, r, false)
}

func (c *ParticipationController) setJoined(w http.ResponseWriter, r *http.Request, join bool) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	eventID, err := h.PathUUID(r, "eventID")
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if join {
		err = c.Service.JoinEvent(r.Context(), eventID, p.UserID)
	} else {
		err = c.Service.UnjoinEvent(r.Context(), eventID, p.UserID)
	}
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	n, err := c.Service.CountParticipants(r.Context(), eventID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, ParticipationState{EventID: eventID, Joined: join, ParticipantCount: n})
}

// ToggleInterest godoc
// @Summary Toggle interest in an event
// @Description Sets interest to desired, or flips it when desired is omitted. Writes only when the state changes; result is added, removed or noop.
// @Tags participation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body ToggleInterestRequest false "Optional desired state"
// @Success 200 {object} helpers.APIResponse "data contains result, interested and interested_count"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events/{eventID}/interest [put]
func (c *ParticipationController) ToggleInterest(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	eventID, err := h.PathUUID(r, "eventID")
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	var req ToggleInterestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "invalid request body: "+err.Error())
		return
	}
	result, err := c.Service.ToggleInterested(r.Context(), eventID, p.UserID, req.Desired)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	n, err := c.Service.CountInterested(r.Context(), eventID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	interested := result == domain.ToggleAdded
	if result == domain.ToggleNoop && req.Desired != nil {
		interested = *req.Desired
	}
	h.WriteJSONSuccess(w, http.StatusOK, InterestState{EventID: eventID, Result: result, Interested: interested, InterestedCount: n})
}

// JoinedIDs godoc
// @Summary IDs of events the caller joined
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains event ids, most recent first"
// @Router /me/joined-ids [get]
func (c *ParticipationController) JoinedIDs(w http.ResponseWriter, r *http.Request) {
	c.listIDs(w, r, c.Service.ListJoinedEventIDs)
}

// InterestedIDs godoc
// @Summary IDs of events the caller is interested in
// @Tags participation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains event ids, most recent first"
// @Router /me/interested-ids [get]
func (c *ParticipationController) InterestedIDs(w http.ResponseWriter, r *http.Request) {
	c.listIDs(w, r, c.Service.ListInterestedEventIDs)
}

func (c *ParticipationController) listIDs(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, userID string) ([]string, error)) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	ids, err := list(r.Context(), p.UserID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, ids)
}
