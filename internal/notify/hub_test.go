package notify_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/annostudio/annostudio/internal/notify"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, srv *httptest.Server, actor uuid.UUID) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	header.Set("X-Actor-ID", actor.String())

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial hub: %v", err)
	}
	return conn
}

func waitForSessions(t *testing.T, hub *notify.Hub, actor uuid.UUID, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.SessionCount(actor) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("SessionCount(%v) = %d, want %d", actor, hub.SessionCount(actor), want)
}

func TestHub_DeliversToSubscribedActor(t *testing.T) {
	hub := notify.NewHub(slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(http.HandlerFunc(hub.Subscribe))
	defer srv.Close()

	actor := uuid.New()
	conn := dialHub(t, srv, actor)
	defer conn.Close()

	waitForSessions(t, hub, actor, 1)

	hub.Notify(actor, notify.LevelSuccess, "Text assigned")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var n notify.Notification
	if err := conn.ReadJSON(&n); err != nil {
		t.Fatalf("read notification: %v", err)
	}

	if n.Level != notify.LevelSuccess {
		t.Errorf("Level = %q, want success", n.Level)
	}
	if n.Message != "Text assigned" {
		t.Errorf("Message = %q, want Text assigned", n.Message)
	}
}

func TestHub_ScopesByActor(t *testing.T) {
	hub := notify.NewHub(slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(http.HandlerFunc(hub.Subscribe))
	defer srv.Close()

	subscriber := uuid.New()
	other := uuid.New()
	conn := dialHub(t, srv, subscriber)
	defer conn.Close()

	waitForSessions(t, hub, subscriber, 1)

	hub.Notify(other, notify.LevelInfo, "not for you")

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var n notify.Notification
	if err := conn.ReadJSON(&n); err == nil {
		t.Errorf("received %+v, want no delivery for another actor", n)
	}
}

func TestHub_RejectsMissingActor(t *testing.T) {
	hub := notify.NewHub(slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(http.HandlerFunc(hub.Subscribe))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub := notify.NewHub(slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(http.HandlerFunc(hub.Subscribe))
	defer srv.Close()

	actor := uuid.New()
	conn := dialHub(t, srv, actor)

	waitForSessions(t, hub, actor, 1)
	conn.Close()
	waitForSessions(t, hub, actor, 0)
}
