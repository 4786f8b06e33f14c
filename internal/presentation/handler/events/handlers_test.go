package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"eventtrail/internal/domain"
	"eventtrail/internal/infrastructure/logging"
	"eventtrail/internal/infrastructure/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// Metrics register into the default prometheus registry, so the test
// binary creates them exactly once.
var testMetrics = metrics.New()

type nopLogger struct{}

func (nopLogger) Init()                                                               {}
func (nopLogger) Debug(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Debugf(string, ...any)                                               {}
func (nopLogger) Info(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any)  {}
func (nopLogger) Infof(string, ...any)                                                {}
func (nopLogger) Warn(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any)  {}
func (nopLogger) Warnf(string, ...any)                                                {}
func (nopLogger) Error(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Errorf(string, ...any)                                               {}
func (nopLogger) Fatal(logging.Category, logging.SubCategory, string, map[logging.ExtraKey]any) {}
func (nopLogger) Fatalf(string, ...any)                                               {}

type fakeProfileRepo struct {
	profiles map[string]domain.Profile
}

func newFakeProfileRepo(profiles ...domain.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: make(map[string]domain.Profile)}
	for _, p := range profiles {
		r.profiles[p.ID] = p
	}
	return r
}

func (r *fakeProfileRepo) Create(_ context.Context, p *domain.Profile) error {
	r.profiles[p.ID] = *p
	return nil
}

func (r *fakeProfileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (r *fakeProfileRepo) GetByIDs(_ context.Context, ids []string) ([]domain.Profile, error) {
	out := make([]domain.Profile, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := r.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProfileRepo) List(_ context.Context) ([]domain.Profile, error) {
	out := make([]domain.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeProfileRepo) Update(_ context.Context, p *domain.Profile) error {
	if _, ok := r.profiles[p.ID]; !ok {
		return domain.ErrProfileNotFound
	}
	r.profiles[p.ID] = *p
	return nil
}

type fakeEventRepo struct {
	events map[string]domain.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]domain.Event)}
}

func (r *fakeEventRepo) Create(_ context.Context, e *domain.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	r.events[e.ID] = *e
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return &e, nil
}

func (r *fakeEventRepo) Update(_ context.Context, e *domain.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, ok := r.events[e.ID]; !ok {
		return domain.ErrEventNotFound
	}
	r.events[e.ID] = *e
	return nil
}

func (r *fakeEventRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.events[id]; !ok {
		return domain.ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

func (r *fakeEventRepo) List(_ context.Context, profileID string) ([]domain.Event, error) {
	out := make([]domain.Event, 0, len(r.events))
	for _, e := range r.events {
		if profileID != "" {
			found := false
			for _, id := range e.ProfileIDs {
				if id == profileID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.After(out[j].StartDate)
	})
	return out, nil
}

type fakeLogRepo struct {
	logs      []domain.EventLog
	insertErr error
}

func (r *fakeLogRepo) Insert(_ context.Context, log *domain.EventLog) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.logs = append(r.logs, *log)
	return nil
}

func (r *fakeLogRepo) ListByEventID(_ context.Context, eventID string) ([]domain.EventLog, error) {
	out := make([]domain.EventLog, 0)
	for _, l := range r.logs {
		if l.EventID == eventID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (r *fakeLogRepo) EnsureIndexes(_ context.Context) error { return nil }

type testEnv struct {
	router   http.Handler
	events   *fakeEventRepo
	profiles *fakeProfileRepo
	logs     *fakeLogRepo
}

func newTestEnv(t *testing.T, profiles ...domain.Profile) *testEnv {
	t.Helper()

	env := &testEnv{
		events:   newFakeEventRepo(),
		profiles: newFakeProfileRepo(profiles...),
		logs:     &fakeLogRepo{},
	}

	h := NewHandler(env.events, env.profiles, env.logs, "", nopLogger{}, testMetrics)

	r := chi.NewRouter()
	r.Get("/api/events", h.ListEventsHandler)
	r.Post("/api/events", h.CreateEventHandler)
	r.Get("/api/events/{eventId}", h.GetEventHandler)
	r.Put("/api/events/{eventId}", h.UpdateEventHandler)
	r.Delete("/api/events/{eventId}", h.DeleteEventHandler)
	r.Get("/api/events/{eventId}/logs", h.GetEventLogsHandler)

	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func testProfile(id, name string) domain.Profile {
	now := time.Now().UTC()
	return domain.Profile{
		ID:        id,
		Name:      name,
		Timezone:  domain.DefaultTimezone,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func seedEvent(t *testing.T, env *testEnv, profileIDs []string, tz string, start, end time.Time) domain.Event {
	t.Helper()

	event, err := domain.NewEvent(profileIDs, tz, start, end, "admin")
	require.NoError(t, err)
	require.NoError(t, env.events.Create(context.Background(), event))
	return *event
}

func TestCreateEvent(t *testing.T) {
	t.Run("local wall clock is converted under the body timezone", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"))

		rec := env.do(t, http.MethodPost, "/api/events", map[string]any{
			"profiles":  []string{"pa"},
			"timezone":  "America/New_York",
			"startDate": "2024-01-15T12:00",
			"endDate":   "2024-01-16T12:00",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp eventResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		// Noon EST is 17:00 UTC.
		require.Equal(t, time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC), resp.StartDate.UTC())
		require.Equal(t, "2024-01-15", resp.StartLocal.Date)
		require.Equal(t, "12:00", resp.StartLocal.Time)
		require.Len(t, resp.Profiles, 1)
		require.Equal(t, "Alice", resp.Profiles[0].Name)
		require.Equal(t, "admin", resp.CreatedBy)

		require.Len(t, env.events.events, 1)
	})

	t.Run("rfc3339 instants are accepted as-is", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"))

		rec := env.do(t, http.MethodPost, "/api/events", map[string]any{
			"profiles":  []string{"pa"},
			"timezone":  "Asia/Tokyo",
			"startDate": "2024-03-09T17:00:00Z",
			"endDate":   "2024-03-10T16:00:00Z",
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp eventResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC), resp.StartDate.UTC())
	})

	t.Run("rejects empty profile list", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/api/events", map[string]any{
			"profiles":  []string{},
			"timezone":  "America/New_York",
			"startDate": "2024-01-15T12:00",
			"endDate":   "2024-01-16T12:00",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unknown timezone", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"))

		rec := env.do(t, http.MethodPost, "/api/events", map[string]any{
			"profiles":  []string{"pa"},
			"timezone":  "Mars/Olympus_Mons",
			"startDate": "2024-01-15T12:00",
			"endDate":   "2024-01-16T12:00",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects end before start", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"))

		rec := env.do(t, http.MethodPost, "/api/events", map[string]any{
			"profiles":  []string{"pa"},
			"timezone":  "America/New_York",
			"startDate": "2024-01-16T12:00",
			"endDate":   "2024-01-15T12:00",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, env.events.events)
	})

	t.Run("rejects equal start and end", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"))

		rec := env.do(t, http.MethodPost, "/api/events", map[string]any{
			"profiles":  []string{"pa"},
			"timezone":  "America/New_York",
			"startDate": "2024-01-15T12:00",
			"endDate":   "2024-01-15T12:00",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unresolved profile references", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"))

		rec := env.do(t, http.MethodPost, "/api/events", map[string]any{
			"profiles":  []string{"pa", "ghost"},
			"timezone":  "America/New_York",
			"startDate": "2024-01-15T12:00",
			"endDate":   "2024-01-16T12:00",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, env.events.events)
	})
}

func TestUpdateEvent(t *testing.T) {
	start := time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC)

	t.Run("timezone change writes exactly one log entry", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"))
		event := seedEvent(t, env, []string{"pa"}, "America/New_York", start, end)

		rec := env.do(t, http.MethodPut, "/api/events/"+event.ID, map[string]any{
			"timezone": "Asia/Tokyo",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		require.Len(t, env.logs.logs, 1)
		log := env.logs.logs[0]
		require.Equal(t, event.ID, log.EventID)
		require.Equal(t, "admin", log.UpdatedBy)
		require.NotNil(t, log.Changes.Timezone)
		require.Equal(t, "America/New_York", log.Changes.Timezone.Old)
		require.Equal(t, "Asia/Tokyo", log.Changes.Timezone.New)
		require.Nil(t, log.Changes.Profiles)
		require.Nil(t, log.Changes.StartDate)
		require.Nil(t, log.Changes.EndDate)
	})

	t.Run("identical values write no log", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"))
		event := seedEvent(t, env, []string{"pa"}, "America/New_York", start, end)

		rec := env.do(t, http.MethodPut, "/api/events/"+event.ID, map[string]any{
			"timezone":  "America/New_York",
			"profiles":  []string{"pa"},
			"startDate": start.Format(time.RFC3339),
			"endDate":   end.Format(time.RFC3339),
		})
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, env.logs.logs)
	})

	t.Run("profile change snapshots old membership with names", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"), testProfile("pb", "Bob"))
		event := seedEvent(t, env, []string{"pa"}, "America/New_York", start, end)

		rec := env.do(t, http.MethodPut, "/api/events/"+event.ID, map[string]any{
			"profiles": []string{"pa", "pb"},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		require.Len(t, env.logs.logs, 1)
		change := env.logs.logs[0].Changes.Profiles
		require.NotNil(t, change)
		require.Equal(t, []domain.ProfileRef{{ID: "pa", Name: "Alice"}}, change.Old)
		require.Equal(t, []string{"pa", "pb"}, change.New)

		stored := env.events.events[event.ID]
		require.Equal(t, []string{"pa", "pb"}, stored.ProfileIDs)
	})

	t.Run("inverted range aborts and leaves state and logs untouched", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"))
		event := seedEvent(t, env, []string{"pa"}, "America/New_York", start, end)

		rec := env.do(t, http.MethodPut, "/api/events/"+event.ID, map[string]any{
			"endDate": start.Add(-time.Hour).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		stored := env.events.events[event.ID]
		require.True(t, stored.EndDate.Equal(end))
		require.Empty(t, env.logs.logs)
	})

	t.Run("new dates parse under the proposed timezone", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"))
		event := seedEvent(t, env, []string{"pa"}, "America/New_York", start, end)

		rec := env.do(t, http.MethodPut, "/api/events/"+event.ID, map[string]any{
			"timezone":  "Asia/Tokyo",
			"startDate": "2024-03-10T09:00",
			"endDate":   "2024-03-11T09:00",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		// 09:00 JST is midnight UTC.
		stored := env.events.events[event.ID]
		require.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), stored.StartDate)
		require.Equal(t, "Asia/Tokyo", stored.Timezone)
	})

	t.Run("audit write failure surfaces as server error", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"))
		event := seedEvent(t, env, []string{"pa"}, "America/New_York", start, end)
		env.logs.insertErr = errors.New("disk full")

		rec := env.do(t, http.MethodPut, "/api/events/"+event.ID, map[string]any{
			"timezone": "Asia/Tokyo",
		})
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("unknown event returns not found", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"))

		rec := env.do(t, http.MethodPut, "/api/events/missing", map[string]any{
			"timezone": "Asia/Tokyo",
		})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteEvent(t *testing.T) {
	start := time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC)

	t.Run("deletes the event but keeps its logs retrievable", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"))
		event := seedEvent(t, env, []string{"pa"}, "America/New_York", start, end)

		rec := env.do(t, http.MethodPut, "/api/events/"+event.ID, map[string]any{
			"timezone": "Asia/Tokyo",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = env.do(t, http.MethodDelete, "/api/events/"+event.ID, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Empty(t, env.events.events)

		rec = env.do(t, http.MethodGet, "/api/events/"+event.ID+"/logs", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var logs []domain.EventLog
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
		require.Len(t, logs, 1)
	})

	t.Run("unknown event returns not found", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodDelete, "/api/events/missing", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListEvents(t *testing.T) {
	start := time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC)

	t.Run("sorted by start date descending with profiles resolved", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"), testProfile("pb", "Bob"))
		seedEvent(t, env, []string{"pa"}, "America/New_York", start, start.Add(time.Hour))
		seedEvent(t, env, []string{"pa", "pb"}, "America/New_York", start.Add(48*time.Hour), start.Add(49*time.Hour))

		rec := env.do(t, http.MethodGet, "/api/events", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []eventResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 2)
		require.True(t, resp[0].StartDate.After(resp[1].StartDate))
		require.Len(t, resp[0].Profiles, 2)
		require.Equal(t, "Alice", resp[0].Profiles[0].Name)
	})

	t.Run("filters by profile membership", func(t *testing.T) {
		env := newTestEnv(t, testProfile("pa", "Alice"), testProfile("pb", "Bob"))
		seedEvent(t, env, []string{"pa"}, "America/New_York", start, start.Add(time.Hour))
		only := seedEvent(t, env, []string{"pb"}, "America/New_York", start.Add(2*time.Hour), start.Add(3*time.Hour))

		rec := env.do(t, http.MethodGet, "/api/events?profileId=pb", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []eventResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		require.Equal(t, only.ID, resp[0].ID)
	})

	t.Run("empty store yields an empty array", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodGet, "/api/events", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, "[]", rec.Body.String())
	})
}

func TestGetEventLogs(t *testing.T) {
	t.Run("unknown event yields an empty array", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodGet, "/api/events/missing/logs", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, "[]", rec.Body.String())
	})
}
