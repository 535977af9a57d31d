package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	pgadapter "github.com/tixmill/event-booking/internal/adapters/pg"
	"github.com/tixmill/event-booking/internal/adapters/rabbit"
	redisadapter "github.com/tixmill/event-booking/internal/adapters/redis"
	"github.com/tixmill/event-booking/internal/booking"
	"github.com/tixmill/event-booking/internal/config"
	httphandler "github.com/tixmill/event-booking/internal/http"
	"github.com/tixmill/event-booking/internal/idempotency"
	"github.com/tixmill/event-booking/internal/observability"
	"github.com/tixmill/event-booking/internal/rateLimit"
)

const baseURL = "http://localhost:8081"

func TestIntegration_BookCancelPromote(t *testing.T) {
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer crdbContainer.Terminate(ctx)

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer redisContainer.Terminate(ctx)

	rabbitContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-management",
			ExposedPorts: []string{"5672/tcp", "15672/tcp"},
			WaitingFor:   wait.ForHTTP("/api/health").WithPort("15672"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rabbitContainer.Terminate(ctx)

	crdbHost, _ := crdbContainer.Host(ctx)
	crdbPort, err := crdbContainer.MappedPort(ctx, "26257")
	if err != nil {
		t.Fatal(err)
	}
	redisHost, _ := redisContainer.Host(ctx)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatal(err)
	}
	rabbitHost, _ := rabbitContainer.Host(ctx)
	rabbitPort, err := rabbitContainer.MappedPort(ctx, "5672")
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		PGDSN:          "postgresql://root@" + crdbHost + ":" + crdbPort.Port() + "/defaultdb?sslmode=disable",
		RedisAddr:      redisHost + ":" + redisPort.Port(),
		RabbitURL:      "amqp://guest:guest@" + rabbitHost + ":" + rabbitPort.Port() + "/",
		HTTPAddr:       ":8081",
		StatusCacheTTL: time.Millisecond, // effectively uncached so asserts see fresh state
	}

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	store := pgadapter.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	logger := observability.NewLogger()

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	cache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), time.Hour)
	rl := rateLimit.NewRateLimiter(cache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		t.Fatal(err)
	}
	defer rabbitConn.Close()
	queue, err := rabbit.NewIntentQueue(rabbitConn)
	if err != nil {
		t.Fatal(err)
	}
	consumer, err := rabbit.NewConsumer(rabbitConn)
	if err != nil {
		t.Fatal(err)
	}

	processorCtx, stopProcessor := context.WithCancel(ctx)
	defer stopProcessor()
	processor := booking.NewProcessor(store, consumer, nil, logger)
	go processor.Run(processorCtx)

	handlers := httphandler.NewHandlers(cfg, store, cache, idemp, queue)
	r := httphandler.SetupRouter(handlers, logger, rl)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go srv.ListenAndServe()
	defer srv.Shutdown(ctx)
	waitForServer(t)

	owner := postJSON(t, "/v1/users", map[string]interface{}{"name": "Owner", "email": "owner@example.com"})
	userA := postJSON(t, "/v1/users", map[string]interface{}{"name": "Alice", "email": "alice@example.com"})
	userB := postJSON(t, "/v1/users", map[string]interface{}{"name": "Bob", "email": "bob@example.com"})

	event := postJSON(t, "/v1/events", map[string]interface{}{
		"title":             "Launch Party",
		"location":          "Lagos",
		"description":       "One seat only",
		"start_date_time":   time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"end_date_time":     time.Now().Add(26 * time.Hour).Format(time.RFC3339),
		"number_of_tickets": 1,
		"owner_id":          owner["user_id"],
	})
	eventID := event["event_id"].(string)

	postJSON(t, "/v1/events/"+eventID+"/bookings", map[string]interface{}{"user_id": userA["user_id"]})
	postJSON(t, "/v1/events/"+eventID+"/bookings", map[string]interface{}{"user_id": userB["user_id"]})

	waitForNotification(t, userA["user_id"].(string), "successfully booked")
	waitForNotification(t, userB["user_id"].(string), "waiting list")

	status := getJSON(t, "/v1/events/"+eventID+"/status")
	if status["available_tickets"].(float64) != 0 {
		t.Fatalf("expected 0 available, got %v", status["available_tickets"])
	}
	if status["waiting_list_count"].(float64) != 1 {
		t.Fatalf("expected 1 waiting, got %v", status["waiting_list_count"])
	}

	postJSON(t, "/v1/events/"+eventID+"/bookings/cancel", map[string]interface{}{"user_id": userA["user_id"]})

	waitForNotification(t, userA["user_id"].(string), "cancelled")
	waitForNotification(t, userB["user_id"].(string), "based on the waiting list")

	status = getJSON(t, "/v1/events/"+eventID+"/status")
	if status["available_tickets"].(float64) != 0 {
		t.Fatalf("promotion must keep availability at 0, got %v", status["available_tickets"])
	}
	if status["waiting_list_count"].(float64) != 0 {
		t.Fatalf("expected empty waiting list, got %v", status["waiting_list_count"])
	}
}

func waitForServer(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/v1/healthz")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("server did not come up")
}

func postJSON(t *testing.T, path string, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, baseURL+path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.New().String())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		t.Fatalf("POST %s: status %d", path, resp.StatusCode)
	}
	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return out
}

func getJSON(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	resp, err := http.Get(baseURL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return out
}

// waitForNotification polls the notification endpoint until a message
// containing substr shows up for the user; intents are processed
// asynchronously so assertions have to wait for the worker.
func waitForNotification(t *testing.T, userID, substr string) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/v1/notifications?user_id=" + userID)
		if err == nil {
			var notifications []map[string]interface{}
			json.NewDecoder(resp.Body).Decode(&notifications)
			resp.Body.Close()
			for _, n := range notifications {
				if msg, ok := n["message"].(string); ok && strings.Contains(msg, substr) {
					return
				}
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("no notification containing %q for user %s", substr, userID)
}
