package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tixmill/event-booking/internal/adapters/pg"
	"github.com/tixmill/event-booking/internal/adapters/rabbit"
	redisadapter "github.com/tixmill/event-booking/internal/adapters/redis"
	"github.com/tixmill/event-booking/internal/config"
	"github.com/tixmill/event-booking/internal/domain"
	"github.com/tixmill/event-booking/internal/idempotency"
)

type Handlers struct {
	cfg   *config.Config
	store *pg.Store
	cache *redisadapter.Cache
	idemp *idempotency.Idempotency
	queue *rabbit.IntentQueue
}

func NewHandlers(cfg *config.Config, store *pg.Store, cache *redisadapter.Cache, idemp *idempotency.Idempotency, queue *rabbit.IntentQueue) *Handlers {
	return &Handlers{
		cfg:   cfg,
		store: store,
		cache: cache,
		idemp: idemp,
		queue: queue,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) []byte {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" {
		http.Error(w, "name and email are required", http.StatusBadRequest)
		return
	}

	user := domain.User{ID: uuid.New(), Name: req.Name, Email: req.Email}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"user_id": user.ID})
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title           string    `json:"title"`
		Location        string    `json:"location"`
		Description     string    `json:"description"`
		StartAt         time.Time `json:"start_date_time"`
		EndAt           time.Time `json:"end_date_time"`
		NumberOfTickets int       `json:"number_of_tickets"`
		OwnerID         uuid.UUID `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	if req.NumberOfTickets <= 0 {
		http.Error(w, "number_of_tickets must be positive", http.StatusBadRequest)
		return
	}

	event := domain.NewEvent(req.Title, req.Location, req.Description, req.StartAt, req.EndAt, req.NumberOfTickets, req.OwnerID)
	if err := h.store.CreateEvent(r.Context(), event); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"event_id":          event.ID,
		"total_tickets":     event.TotalTickets,
		"available_tickets": event.AvailableTickets,
	})
}

func (h *Handlers) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	h.submitIntent(w, r, domain.ActionBook)
}

func (h *Handlers) SubmitCancellation(w http.ResponseWriter, r *http.Request) {
	h.submitIntent(w, r, domain.ActionCancel)
}

// submitIntent is the intake path: existence-check the event, durably
// enqueue the intent, record a "processing" notification, acknowledge. The
// capacity mutation itself happens later in the serialized processor.
func (h *Handlers) submitIntent(w http.ResponseWriter, r *http.Request, action domain.Action) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}

	var req struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	event, err := h.store.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	intent := domain.Intent{UserID: req.UserID, EventID: event.ID, Action: action}
	if err := h.queue.Enqueue(r.Context(), intent); err != nil {
		http.Error(w, "failed to enqueue intent", http.StatusServiceUnavailable)
		return
	}

	// The intent is durably queued; this receipt notification is best
	// effort and does not gate the acknowledgment.
	notification := domain.NewNotification(req.UserID,
		"Your booking for event "+event.Title+" is being processed. You will be notified once processing is complete")
	err = h.store.WithTx(r.Context(), func(tx pgx.Tx) error {
		return h.store.NotifyTx(r.Context(), tx, notification)
	})
	if err != nil {
		requestLogger(r.Context()).WithError(err).Warn("failed to record receipt notification")
	}

	data := writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":               "processing",
		"notification_pending": true,
	})
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusAccepted, Result: data})
}

func (h *Handlers) GetEventStatus(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}

	cached, err := h.cache.GetEventStatus(r.Context(), eventID.String())
	if err == nil && cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	event, err := h.store.GetEvent(r.Context(), eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "event not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	waiting, err := h.store.WaitingCount(r.Context(), eventID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	status := redisadapter.EventStatus{AvailableTickets: event.AvailableTickets, WaitingListCount: waiting}
	h.cache.SetEventStatus(r.Context(), eventID.String(), status, h.cfg.StatusCacheTTL)

	writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(r.URL.Query().Get("owner_id"))
	if err != nil {
		http.Error(w, "invalid owner_id", http.StatusBadRequest)
		return
	}

	owned, err := h.store.ListEventsByOwner(r.Context(), ownerID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]map[string]interface{}, 0, len(owned))
	for _, oe := range owned {
		out = append(out, map[string]interface{}{
			"event_id":           oe.Event.ID,
			"title":              oe.Event.Title,
			"total_tickets":      oe.Event.TotalTickets,
			"available_tickets":  oe.Event.AvailableTickets,
			"ticket_count":       oe.TicketCount,
			"waiting_list_count": oe.WaitingCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	notifications, err := h.store.ListNotifications(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]map[string]interface{}, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, map[string]interface{}{
			"id":         n.ID,
			"message":    n.Message,
			"created_at": n.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Pool().Ping(r.Context()); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
