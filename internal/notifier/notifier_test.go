package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSend(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/events" {
			t.Fatalf("path = %s, want /api/events", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content-type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	event := Event{
		Type:           EventSubscriptionActivated,
		SubscriptionID: "sub-1",
		StudentID:      "student-1",
		ActorID:        "admin",
		OccurredAt:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := client.Send(context.Background(), event); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	if received.Type != EventSubscriptionActivated || received.SubscriptionID != "sub-1" {
		t.Fatalf("unexpected event received: %+v", received)
	}
}

func TestSend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	err := client.Send(context.Background(), Event{Type: EventAccessExpired})
	if err == nil {
		t.Fatalf("expected error for 500 response")
	}
}
