package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// CreateEventRequest is the request body for POST /events. The organization is
// always the caller.
type CreateEventRequest struct {
	Title       string                `json:"title" validate:"required,max=200"`
	Description string                `json:"description" validate:"required"`
	StartsAt    time.Time             `json:"starts_at" validate:"required"`
	EndsAt      time.Time             `json:"ends_at" validate:"required"`
	IsOnline    bool                  `json:"is_online"`
	Category    *domain.EventCategory `json:"category"`
	Location    *string               `json:"location"`
	Website     *string               `json:"website" validate:"omitempty,url"`
	MinTeamSize *int                  `json:"min_team_size"`
	MaxTeamSize *int                  `json:"max_team_size"`
}

func (c CreateEventRequest) toEvent(orgID string) *domain.Event {
	return &domain.Event{
		OrganizationID: orgID,
		Title:          strings.TrimSpace(c.Title),
		Description:    c.Description,
		StartsAt:       c.StartsAt,
		EndsAt:         c.EndsAt,
		IsOnline:       c.IsOnline,
		Category:       c.Category,
		Location:       c.Location,
		Website:        c.Website,
		MinTeamSize:    c.MinTeamSize,
		MaxTeamSize:    c.MaxTeamSize,
	}
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. All
// fields optional; omitted fields are unchanged.
type UpdateEventRequest struct {
	domain.EventUpdate
}

// EventSuccessResponse is the success response envelope for single event writes.
type EventSuccessResponse struct {
	Data  *domain.Event `json:"data"`
	Error *h.APIError   `json:"error"`
}

// FeedSuccessResponse is the success response envelope for feed listings.
type FeedSuccessResponse struct {
	Data  []*domain.EventWithOrg `json:"data"`
	Error *h.APIError            `json:"error"`
}

type EventController struct {
	Logger        *slog.Logger
	Events        domain.EventService
	Participation domain.ParticipationService
	Media         domain.MediaService
}

func NewEventController(logger *slog.Logger, events domain.EventService, participation domain.ParticipationService, media domain.MediaService) *EventController {
	return &EventController{
		Logger:        logger,
		Events:        events,
		Participation: participation,
		Media:         media,
	}
}

// Feed godoc
// @Summary Discovery feed
// @Description Upcoming events with organizer name and avatar, ordered by start time. Use the last item's starts_at as after for the next page.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param search query string false "Case-insensitive title/description search"
// @Param category query string false "hackathon, tech event, workshop, projects, tech meetup"
// @Param after query string false "RFC 3339 keyset cursor on starts_at"
// @Param limit query int false "1-100, default 20; larger values are clamped"
// @Success 200 {object} controllers.FeedSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events/feed [get]
func (c *EventController) Feed(w http.ResponseWriter, r *http.Request) {
	f := domain.FeedFilters{Search: r.URL.Query().Get("search")}
	if s := r.URL.Query().Get("category"); s != "" {
		cat := domain.EventCategory(s)
		f.Category = &cat
	}
	var err error
	if f.After, err = h.QueryTime(r, "after"); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if f.Limit, err = h.QueryInt(r, "limit"); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	items, err := c.Events.FetchEventsFeed(r.Context(), f)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, items)
}

// Joined godoc
// @Summary Events the caller joined
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param status query string false "upcoming, completed or empty for all"
// @Param after query string false "RFC 3339 keyset cursor on starts_at"
// @Param limit query int false "1-100, default 50"
// @Success 200 {object} controllers.FeedSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events/joined [get]
func (c *EventController) Joined(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	status := domain.JoinedStatus(r.URL.Query().Get("status"))
	after, err := h.QueryTime(r, "after")
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	limit, err := h.QueryInt(r, "limit")
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	items, err := c.Events.ListJoinedEvents(r.Context(), status, p.UserID, after, limit)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, items)
}

// Mine godoc
// @Summary Events for the caller's role
// @Description Organizations get their own events; participants get every event that has not ended. Unpaginated.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains events ordered by starts_at"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events/mine [get]
func (c *EventController) Mine(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	events, err := c.Events.ListEventsFor(r.Context(), p.Role, p.UserID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, events)
}

// Upcoming godoc
// @Summary Every upcoming event with organizer fields
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.FeedSuccessResponse
// @Router /events/upcoming [get]
func (c *EventController) Upcoming(w http.ResponseWriter, r *http.Request) {
	items, err := c.Events.ListUpcomingEventsWithOrg(r.Context())
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, items)
}

// CreateEvent godoc
// @Summary Create an event
// @Description Organization accounts only. Online events must not carry a location; in-person events require one.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	var req CreateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	event := req.toEvent(p.UserID)
	if err := c.Events.CreateEvent(r.Context(), event); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusCreated, event)
}

// GetEvent godoc
// @Summary Get an event
// @Description Event with organizer fields, participant and interest counts, and whether the caller joined or liked it.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data contains domain.EventDetail"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	eventID, err := h.PathUUID(r, "eventID")
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	detail, err := domain.LoadEventDetail(r.Context(), c.Events, c.Participation, eventID, p.UserID)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, detail)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Owner only. organization_id cannot be changed. Setting is_online to true clears the location.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param event body UpdateEventRequest true "Fields to change"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	eventID, err := h.PathUUID(r, "eventID")
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	var req UpdateEventRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Events.UpdateEvent(r.Context(), eventID, p.UserID, req.EventUpdate)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Owner only. Participation and interest rows are removed with it.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	eventID, err := h.PathUUID(r, "eventID")
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if err := c.Events.DeleteEvent(r.Context(), eventID, p.UserID); err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"deleted": eventID})
}

// UploadBanner godoc
// @Summary Upload an event banner
// @Description Owner only. Multipart field "file"; resized to at most 1600x900 and stored as JPEG. The previous banner is removed.
// @Tags events
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param file formData file true "Image"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the event with its new banner_url"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /events/{eventID}/banner [post]
func (c *EventController) UploadBanner(w http.ResponseWriter, r *http.Request) {
	p, ok := requirePrincipal(w, r)
	if !ok {
		return
	}
	eventID, err := h.PathUUID(r, "eventID")
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	file, ok := formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()
	event, err := c.Media.UploadBanner(r.Context(), eventID, p.UserID, file)
	if err != nil {
		h.WriteServiceError(w, r, c.Logger, err)
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, event)
}
