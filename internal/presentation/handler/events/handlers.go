package events

import (
	"errors"
	"net/http"

	"eventtrail/internal/domain"
	"eventtrail/internal/infrastructure/json"
	"eventtrail/internal/infrastructure/logging"
	"eventtrail/internal/infrastructure/metrics"
	"eventtrail/internal/infrastructure/validate"
	"eventtrail/internal/timeutil"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	eventRepository   domain.EventRepository
	profileRepository domain.ProfileRepository
	logRepository     domain.EventLogRepository
	actor             string
	logger            logging.Logger
	metrics           *metrics.Metrics
}

func NewHandler(
	eventRepository domain.EventRepository,
	profileRepository domain.ProfileRepository,
	logRepository domain.EventLogRepository,
	actor string,
	logger logging.Logger,
	metrics *metrics.Metrics,
) *Handler {
	if actor == "" {
		actor = domain.DefaultActor
	}

	return &Handler{
		eventRepository:   eventRepository,
		profileRepository: profileRepository,
		logRepository:     logRepository,
		actor:             actor,
		logger:            logger,
		metrics:           metrics,
	}
}

// ListEventsHandler godoc
// @Summary      List events
// @Description  Lists all events, optionally filtered by profile membership, sorted by start date descending
// @Tags         events
// @Produce      json
// @Param        profileId query string false "Only events containing this profile"
// @Success      200 {array} eventResponse "Events with profiles resolved"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Router       /events [get]
func (h *Handler) ListEventsHandler(w http.ResponseWriter, r *http.Request) {
	profileID := r.URL.Query().Get("profileId")

	events, err := h.eventRepository.List(r.Context(), profileID)
	if err != nil {
		h.logger.Error(logging.Mongo, logging.Persistence, "failed to list events", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w, err)
		return
	}

	// One batched lookup resolves every profile referenced by the page.
	ids := make([]string, 0)
	seen := make(map[string]bool)
	for _, event := range events {
		for _, id := range event.ProfileIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	profiles, err := h.profileRepository.GetByIDs(r.Context(), ids)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	byID := make(map[string]domain.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	resp := make([]eventResponse, 0, len(events))
	for _, event := range events {
		joined := make([]domain.Profile, 0, len(event.ProfileIDs))
		for _, id := range event.ProfileIDs {
			if p, ok := byID[id]; ok {
				joined = append(joined, p)
			}
		}
		resp = append(resp, newEventResponse(event, joined))
	}

	json.Write(w, http.StatusOK, resp)
}

// GetEventHandler godoc
// @Summary      Get an event
// @Description  Retrieves a single event with its profiles resolved
// @Tags         events
// @Produce      json
// @Param        eventId path string true "Event ID"
// @Success      200 {object} eventResponse "Event details"
// @Failure      404 {object} map[string]interface{} "Event not found"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Router       /events/{eventId} [get]
func (h *Handler) GetEventHandler(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		json.WriteValidationError(w, errors.New("event ID is missing"))
		return
	}

	event, err := h.eventRepository.GetByID(r.Context(), eventID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEventNotFound):
			json.WriteNotFoundError(w, err, "Event not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	h.respondResolved(w, r, http.StatusOK, event)
}

// CreateEventHandler godoc
// @Summary      Create an event
// @Description  Creates an event for one or more profiles. Dates are RFC3339 instants or local wall-clock values interpreted under the body timezone.
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request body createEventRequest true "Event creation parameters"
// @Success      201 {object} eventResponse "Event created with profiles resolved"
// @Failure      400 {object} map[string]interface{} "Validation or referential error"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Router       /events [post]
func (h *Handler) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if len(req.Profiles) == 0 {
		json.WriteBadRequestError(w, "At least one profile is required")
		return
	}
	if req.Timezone == "" {
		json.WriteBadRequestError(w, "Timezone is required")
		return
	}
	if req.StartDate == "" || req.EndDate == "" {
		json.WriteBadRequestError(w, "Start and end dates are required")
		return
	}

	start, err := timeutil.ParseFlexible(req.StartDate, req.Timezone)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}
	end, err := timeutil.ParseFlexible(req.EndDate, req.Timezone)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	event, err := domain.NewEvent(req.Profiles, req.Timezone, start, end, h.actor)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	ctx := r.Context()

	// Referential check: every requested id must resolve, and duplicates
	// must not silently collapse the count.
	profiles, err := h.profileRepository.GetByIDs(ctx, req.Profiles)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}
	if len(profiles) != len(req.Profiles) {
		json.WriteError(w, http.StatusBadRequest, domain.ErrProfileRefs, "One or more profiles not found")
		return
	}

	if err := h.eventRepository.Create(ctx, event); err != nil {
		h.metrics.EventMutations.WithLabelValues("create", "error").Inc()
		h.logger.Error(logging.Mongo, logging.Persistence, "failed to create event", map[logging.ExtraKey]any{
			logging.EventID:      event.ID,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w, err)
		return
	}

	h.metrics.EventMutations.WithLabelValues("create", "ok").Inc()

	json.Write(w, http.StatusCreated, newEventResponse(*event, profiles))
}

// UpdateEventHandler godoc
// @Summary      Update an event
// @Description  Applies a partial update, records exactly one audit log entry when any tracked field changed, and re-validates the date ordering on the post-update state
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        eventId path string true "Event ID"
// @Param        request body updateEventRequest true "Fields to update"
// @Success      200 {object} eventResponse "Updated event with profiles resolved"
// @Failure      400 {object} map[string]interface{} "Validation error"
// @Failure      404 {object} map[string]interface{} "Event not found"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Router       /events/{eventId} [put]
func (h *Handler) UpdateEventHandler(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		json.WriteValidationError(w, errors.New("event ID is missing"))
		return
	}

	var req updateEventRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	ctx := r.Context()

	event, err := h.eventRepository.GetByID(ctx, eventID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEventNotFound):
			json.WriteNotFoundError(w, err, "Event not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	// Snapshot the current membership before the diff so the log keeps
	// human-readable names even if profiles are renamed later.
	current, err := h.profileRepository.GetByIDs(ctx, event.ProfileIDs)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	patch, err := h.buildPatch(event, req)
	if err != nil {
		json.WriteValidationError(w, err)
		return
	}

	changes := event.ApplyPatch(patch, current, domain.SequenceEquality)

	// The invariant is checked on post-update values: supplying only one
	// of the two dates must not slip an inverted interval through.
	if err := event.Validate(); err != nil {
		h.metrics.EventMutations.WithLabelValues("update", "invalid").Inc()
		json.WriteValidationError(w, err)
		return
	}

	if err := h.eventRepository.Update(ctx, event); err != nil {
		h.metrics.EventMutations.WithLabelValues("update", "error").Inc()
		switch {
		case errors.Is(err, domain.ErrEventNotFound):
			json.WriteNotFoundError(w, err, "Event not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	if !changes.Empty() {
		log := domain.NewEventLog(event.ID, *changes, h.actor)
		if err := h.logRepository.Insert(ctx, log); err != nil {
			// The event mutation already committed; the two writes are
			// not atomic. Surface the failure instead of hiding it.
			h.logger.Error(logging.Audit, logging.ChangeLog, "event updated but audit log write failed", map[logging.ExtraKey]any{
				logging.EventID:      event.ID,
				logging.ErrorMessage: err.Error(),
			})
			json.WriteInternalError(w, err)
			return
		}
		h.metrics.AuditLogWrites.Inc()
	}

	h.metrics.EventMutations.WithLabelValues("update", "ok").Inc()

	h.respondResolved(w, r, http.StatusOK, event)
}

// DeleteEventHandler godoc
// @Summary      Delete an event
// @Description  Hard-deletes an event. Its audit log entries are kept and stay retrievable.
// @Tags         events
// @Produce      json
// @Param        eventId path string true "Event ID"
// @Success      204 "Event deleted"
// @Failure      404 {object} map[string]interface{} "Event not found"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Router       /events/{eventId} [delete]
func (h *Handler) DeleteEventHandler(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		json.WriteValidationError(w, errors.New("event ID is missing"))
		return
	}

	if err := h.eventRepository.Delete(r.Context(), eventID); err != nil {
		switch {
		case errors.Is(err, domain.ErrEventNotFound):
			json.WriteNotFoundError(w, err, "Event not found")
		default:
			json.WriteInternalError(w, err)
		}
		return
	}

	h.metrics.EventMutations.WithLabelValues("delete", "ok").Inc()

	w.WriteHeader(http.StatusNoContent)
}

// GetEventLogsHandler godoc
// @Summary      Get an event's audit history
// @Description  Returns audit log entries for an event, newest first. Unknown event ids yield an empty array.
// @Tags         events
// @Produce      json
// @Param        eventId path string true "Event ID"
// @Success      200 {array} domain.EventLog "Audit log entries"
// @Failure      500 {object} map[string]interface{} "Internal server error"
// @Router       /events/{eventId}/logs [get]
func (h *Handler) GetEventLogsHandler(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if eventID == "" {
		json.WriteValidationError(w, errors.New("event ID is missing"))
		return
	}

	logs, err := h.logRepository.ListByEventID(r.Context(), eventID)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, logs)
}

// buildPatch validates and parses the request into a typed patch. Date
// strings are interpreted under the proposed timezone when one was
// supplied, otherwise under the event's stored timezone.
func (h *Handler) buildPatch(event *domain.Event, req updateEventRequest) (domain.EventPatch, error) {
	patch := domain.EventPatch{}

	if req.Profiles != nil {
		if len(req.Profiles) == 0 {
			return patch, errors.New("at least one profile is required")
		}
		patch.ProfileIDs = req.Profiles
	}

	parseTZ := event.Timezone
	if req.Timezone != nil {
		if err := validate.Field("timezone", validate.Timezone())(*req.Timezone); err != nil {
			return patch, err
		}
		patch.Timezone = req.Timezone
		parseTZ = *req.Timezone
	}

	if req.StartDate != nil {
		start, err := timeutil.ParseFlexible(*req.StartDate, parseTZ)
		if err != nil {
			return patch, err
		}
		patch.StartDate = &start
	}

	if req.EndDate != nil {
		end, err := timeutil.ParseFlexible(*req.EndDate, parseTZ)
		if err != nil {
			return patch, err
		}
		patch.EndDate = &end
	}

	return patch, nil
}

// respondResolved re-fetches the event's profiles and writes the joined
// response.
func (h *Handler) respondResolved(w http.ResponseWriter, r *http.Request, status int, event *domain.Event) {
	profiles, err := h.profileRepository.GetByIDs(r.Context(), event.ProfileIDs)
	if err != nil {
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, status, newEventResponse(*event, profiles))
}

func newEventResponse(event domain.Event, profiles []domain.Profile) eventResponse {
	joined := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		joined = append(joined, profileResponse{
			ID:        p.ID,
			Name:      p.Name,
			Timezone:  p.Timezone,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}

	resp := eventResponse{
		ID:        event.ID,
		Profiles:  joined,
		Timezone:  event.Timezone,
		StartDate: event.StartDate,
		EndDate:   event.EndDate,
		CreatedBy: event.CreatedBy,
		CreatedAt: event.CreatedAt,
		UpdatedAt: event.UpdatedAt,
	}

	// Timezone was validated on write; a projection failure here would
	// mean tzdata changed underneath us, in which case the locals are
	// simply omitted.
	if date, clock, err := timeutil.ProjectToLocal(event.StartDate, event.Timezone); err == nil {
		resp.StartLocal = localDateTime{Date: date, Time: clock}
	}
	if date, clock, err := timeutil.ProjectToLocal(event.EndDate, event.Timezone); err == nil {
		resp.EndLocal = localDateTime{Date: date, Time: clock}
	}

	return resp
}
