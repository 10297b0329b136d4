package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/trunkstat/trunkstat/pkg/database"
	"github.com/trunkstat/trunkstat/pkg/logger"
)

func testRepos(t *testing.T, path string) (*database.EventRepository, *database.TalkgroupRepository) {
	t.Helper()
	log := logger.New(logger.Config{Level: "error"})

	db, err := database.NewDB(database.Config{Path: path}, log)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
		_ = os.Remove(path)
	})

	return database.NewEventRepository(db.GetDB()), database.NewTalkgroupRepository(db.GetDB())
}

func TestAPI_Status(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	api := NewAPI(log)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()

	api.HandleStatus(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if result["service"] != "trunkstat" {
		t.Errorf("service = %v, want trunkstat", result["service"])
	}
	if _, ok := result["uptime_seconds"]; !ok {
		t.Error("Response doesn't contain uptime_seconds field")
	}
}

func TestAPI_Events(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	events, talkgroups := testRepos(t, "/tmp/test_api_events.db")
	api := NewAPI(log).WithRepositories(events, talkgroups)

	base := time.Unix(1700000000, 0).UTC()
	for _, ev := range []database.StatusEvent{
		{Kind: "registered", RadioID: 100, EventTime: base},
		{Kind: "push_to_talk", RadioID: 200, TalkgroupID: 9000, EventTime: base.Add(time.Second)},
	} {
		ev := ev
		if err := events.Save(&ev); err != nil {
			t.Fatalf("Failed to seed event: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events?limit=10", nil)
	w := httptest.NewRecorder()

	api.HandleEvents(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var result []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(result))
	}
}

func TestAPI_Events_RadioFilter(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	events, talkgroups := testRepos(t, "/tmp/test_api_events_radio.db")
	api := NewAPI(log).WithRepositories(events, talkgroups)

	base := time.Unix(1700000000, 0).UTC()
	for _, ev := range []database.StatusEvent{
		{Kind: "registered", RadioID: 100, EventTime: base},
		{Kind: "registered", RadioID: 200, EventTime: base},
	} {
		ev := ev
		if err := events.Save(&ev); err != nil {
			t.Fatalf("Failed to seed event: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events?radio_id=100", nil)
	w := httptest.NewRecorder()
	api.HandleEvents(w, req)

	var result []map[string]interface{}
	if err := json.NewDecoder(w.Result().Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 event for radio 100, got %d", len(result))
	}

	// Bad radio_id rejected
	req = httptest.NewRequest(http.MethodGet, "/api/events?radio_id=bogus", nil)
	w = httptest.NewRecorder()
	api.HandleEvents(w, req)
	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad radio_id, got %d", w.Result().StatusCode)
	}
}

func TestAPI_Talkgroups(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	events, talkgroups := testRepos(t, "/tmp/test_api_talkgroups.db")
	api := NewAPI(log).WithRepositories(events, talkgroups)

	err := talkgroups.UpsertBatch([]database.TalkgroupAlias{
		{TalkgroupID: 9000, Label: "Fire Dispatch", Category: "Fire"},
	}, 100)
	if err != nil {
		t.Fatalf("Failed to seed alias: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/talkgroups", nil)
	w := httptest.NewRecorder()

	api.HandleTalkgroups(w, req)

	resp := w.Result()
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var result []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 alias, got %d", len(result))
	}
}

func TestAPI_Activity(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	events, talkgroups := testRepos(t, "/tmp/test_api_activity.db")
	api := NewAPI(log).WithRepositories(events, talkgroups)

	base := time.Unix(1700000000, 0).UTC()
	for _, kind := range []string{"push_to_talk", "push_to_talk", "registered"} {
		ev := database.StatusEvent{Kind: kind, RadioID: 1, EventTime: base}
		if err := events.Save(&ev); err != nil {
			t.Fatalf("Failed to seed event: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/activity", nil)
	w := httptest.NewRecorder()

	api.HandleActivity(w, req)

	var result map[string]int64
	if err := json.NewDecoder(w.Result().Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result["push_to_talk"] != 2 {
		t.Errorf("push_to_talk = %d, want 2", result["push_to_talk"])
	}
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	api := NewAPI(log)

	for _, handler := range []http.HandlerFunc{
		api.HandleStatus, api.HandleEvents, api.HandleTalkgroups, api.HandleActivity,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/x", nil)
		w := httptest.NewRecorder()
		handler(w, req)
		if w.Result().StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected status 405 for POST, got %d", w.Result().StatusCode)
		}
	}
}
