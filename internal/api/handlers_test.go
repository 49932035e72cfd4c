package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gsmalarm/internal/model"
	"gsmalarm/internal/repo"
	"gsmalarm/internal/scheduler"
)

type fakeRepo struct {
	// capture args
	gotLimit  int
	gotOffset int

	// behavior
	items []model.ScheduleRecord
	err   error
}

var _ repo.ScheduleRepository = (*fakeRepo)(nil)

func (f *fakeRepo) Insert(ctx context.Context, number *string, sentAt, receivedAt, scheduledAt time.Time) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeRepo) FetchPending(ctx context.Context) ([]model.ScheduleRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRepo) RecordResult(ctx context.Context, id int64, calledAt time.Time, result int) error {
	return errors.New("not implemented")
}

func (f *fakeRepo) ListRecent(ctx context.Context, limit, offset int) ([]model.ScheduleRecord, error) {
	f.gotLimit = limit
	f.gotOffset = offset
	return f.items, f.err
}

func newTestServer(t *testing.T, r repo.ScheduleRepository) (*scheduler.Scheduler, http.Handler) {
	t.Helper()

	// Long interval so only the immediate tick happens (noop anyway).
	s, err := scheduler.New(time.Hour, func(context.Context) {})
	if err != nil {
		t.Fatalf("failed to create scheduler: %v", err)
	}

	h := NewHandler(s, r)
	return s, Router(h)
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("failed to decode json: %v body=%q", err, rr.Body.String())
	}
	return m
}

func TestHealth(t *testing.T) {
	t.Parallel()

	_, handler := newTestServer(t, &fakeRepo{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decodeJSON(t, rr); got["ok"] != true {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestSchedulerStartStatusStop(t *testing.T) {
	t.Parallel()

	s, handler := newTestServer(t, &fakeRepo{})
	defer s.Stop()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/scheduler/status", nil))
	if got := decodeJSON(t, rr); got["running"] != false {
		t.Fatalf("expected not running initially, got %v", got)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/scheduler/start", nil))
	if got := decodeJSON(t, rr); got["running"] != true {
		t.Fatalf("expected running after start, got %v", got)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/scheduler/stop", nil))
	if got := decodeJSON(t, rr); got["running"] != false {
		t.Fatalf("expected stopped after stop, got %v", got)
	}
}

func TestListSchedules_PassesPagingAndRendersNulls(t *testing.T) {
	t.Parallel()

	number := "+37255501234"
	scheduledAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeRepo{items: []model.ScheduleRecord{
		{ID: 1, Number: &number, ScheduledAt: &scheduledAt},
		{ID: 2}, // all nullable fields absent
	}}
	_, handler := newTestServer(t, f)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schedules?limit=10&offset=5", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	if f.gotLimit != 10 || f.gotOffset != 5 {
		t.Fatalf("expected paging 10/5, got %d/%d", f.gotLimit, f.gotOffset)
	}

	items, ok := decodeJSON(t, rr)["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 items, body=%q", rr.Body.String())
	}

	second := items[1].(map[string]any)
	for _, field := range []string{"number", "scheduledAt", "calledAt", "result"} {
		if second[field] != nil {
			t.Fatalf("expected null %s, got %v", field, second[field])
		}
	}
}

func TestListSchedules_RepoErrorIs500(t *testing.T) {
	t.Parallel()

	_, handler := newTestServer(t, &fakeRepo{err: errors.New("db down")})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schedules", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "db down") {
		t.Fatalf("expected error body, got %q", rr.Body.String())
	}
}
