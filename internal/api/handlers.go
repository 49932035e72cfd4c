package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"gsmalarm/internal/model"
	"gsmalarm/internal/repo"
	"gsmalarm/internal/scheduler"
)

type Handler struct {
	sched     *scheduler.Scheduler
	schedules repo.ScheduleRepository
}

func NewHandler(s *scheduler.Scheduler, r repo.ScheduleRepository) *Handler {
	return &Handler{sched: s, schedules: r}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStart(w http.ResponseWriter, r *http.Request) {
	h.sched.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

func (h *Handler) SchedulerStop(w http.ResponseWriter, r *http.Request) {
	h.sched.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sched.IsRunning()})
}

// scheduleView flattens the nullable columns for JSON.
type scheduleView struct {
	ID          int64      `json:"id"`
	Number      *string    `json:"number"`
	SentAt      time.Time  `json:"sentAt"`
	ReceivedAt  time.Time  `json:"receivedAt"`
	ScheduledAt *time.Time `json:"scheduledAt"`
	CalledAt    *time.Time `json:"calledAt"`
	Result      *int       `json:"result"`
}

func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	records, err := h.schedules.ListRecent(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]scheduleView, 0, len(records))
	for _, rec := range records {
		items = append(items, viewOf(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func viewOf(rec model.ScheduleRecord) scheduleView {
	return scheduleView{
		ID:          rec.ID,
		Number:      rec.Number,
		SentAt:      rec.SentAt,
		ReceivedAt:  rec.ReceivedAt,
		ScheduledAt: rec.ScheduledAt,
		CalledAt:    rec.CalledAt,
		Result:      rec.Result,
	}
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
