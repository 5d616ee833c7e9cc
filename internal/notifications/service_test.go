package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"audiograb/internal/config"
	"audiograb/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventDownloadCompleted, notifications.Payload{"title": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	calls    int
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T, c *captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		c.calls++
		c.title = r.Header.Get("Title")
		c.tags = r.Header.Get("Tags")
		c.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		c.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "download completed",
			event: notifications.EventDownloadCompleted,
			payload: notifications.Payload{
				"title":   "Café del Mar",
				"file":    "/downloads/Cafe_del_Mar.mp3",
				"variant": "detail",
			},
			expectTitle:   "audiograb - Download Complete",
			expectMessage: "🎵 Ready: Café del Mar\nFile: /downloads/Cafe_del_Mar.mp3",
			expectTags:    "audiograb,download,completed,detail",
		},
		{
			name:  "error",
			event: notifications.EventError,
			payload: notifications.Payload{
				"context": "transcode",
				"error":   "ffmpeg exited with status 1",
			},
			expectTitle:    "audiograb - Error",
			expectMessage:  "❌ Error with transcode: ffmpeg exited with status 1",
			expectTags:     "audiograb,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "audiograb - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "audiograb,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var c captured
			server := newNtfyServer(t, &c)

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.OnSuccess = true
			cfg.Notifications.OnFailure = true

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if c.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, c.title)
			}
			if c.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, c.body)
			}
			if c.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, c.tags)
			}
			if c.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, c.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsEventSwitches(t *testing.T) {
	var c captured
	server := newNtfyServer(t, &c)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.OnSuccess = false
	cfg.Notifications.OnFailure = true
	svc := notifications.NewService(&cfg)

	if err := svc.Publish(context.Background(), notifications.EventDownloadCompleted, notifications.Payload{"title": "x"}); err != nil {
		t.Fatalf("publish returned error: %v", err)
	}
	if c.calls != 0 {
		t.Fatalf("expected success event suppressed, got %d calls", c.calls)
	}
	if err := svc.Publish(context.Background(), notifications.EventError, notifications.Payload{"error": "boom"}); err != nil {
		t.Fatalf("publish returned error: %v", err)
	}
	if c.calls != 1 {
		t.Fatalf("expected failure event sent, got %d calls", c.calls)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic closed", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
