package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMessageContent(t *testing.T) {
	tests := []struct {
		name     string
		message  Message
		expected string
	}{
		{
			name:     "plain text",
			message:  Message{Text: "https://example.com"},
			expected: "https://example.com",
		},
		{
			name:     "text trimmed",
			message:  Message{Text: "  hello  \n"},
			expected: "hello",
		},
		{
			name:     "caption fallback",
			message:  Message{Caption: "photo caption"},
			expected: "photo caption",
		},
		{
			name:     "text wins over caption",
			message:  Message{Text: "text", Caption: "caption"},
			expected: "text",
		},
		{
			name:     "whitespace text falls back to caption",
			message:  Message{Text: "   ", Caption: "caption"},
			expected: "caption",
		},
		{
			name:     "both empty",
			message:  Message{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.message.Content(); got != tt.expected {
				t.Errorf("Content() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUpdateChatID(t *testing.T) {
	update := Update{Message: &Message{Chat: Chat{ID: 42}}}
	id, ok := update.ChatID()
	if !ok || id != 42 {
		t.Errorf("ChatID() = (%d, %v), want (42, true)", id, ok)
	}

	empty := Update{}
	if _, ok := empty.ChatID(); ok {
		t.Error("ChatID() on update without message should return false")
	}
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody sendMessageRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"ok":true}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient("test-token", server.URL, nil)
	if err := client.SendMessage(context.Background(), 42, "saved"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("path = %q, want /bottest-token/sendMessage", gotPath)
	}
	if gotBody.ChatID != 42 || gotBody.Text != "saved" {
		t.Errorf("body = %+v, want chat_id=42 text=saved", gotBody)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		if _, err := w.Write([]byte(`{"ok":false,"description":"chat not found"}`)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient("test-token", server.URL, nil)
	if err := client.SendMessage(context.Background(), 42, "saved"); err == nil {
		t.Error("SendMessage should fail when the API rejects the call")
	}
}
