package channels

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stash-sh/stash/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "channels.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadAndRegistry(t *testing.T) {
	path := writeConfig(t, `
channels:
  - chat_id: 12345
  - chat_id: 67890
    source: "telegram"
  - chat_id: 11111
    disabled: true
`)

	config, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(config.Channels) != 3 {
		t.Fatalf("parsed %d channels, want 3", len(config.Channels))
	}

	reg, err := NewRegistry(config)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	if reg.Count() != 2 {
		t.Errorf("Count = %d, want 2 (disabled excluded)", reg.Count())
	}

	source, ok := reg.Lookup(12345)
	if !ok {
		t.Fatal("chat 12345 not found")
	}
	if source != domain.SourceTelegram {
		t.Errorf("source = %q, want telegram default", source)
	}

	if _, ok := reg.Lookup(11111); ok {
		t.Error("disabled chat must not resolve")
	}
	if _, ok := reg.Lookup(99999); ok {
		t.Error("unknown chat must not resolve")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := NewLoader("/nonexistent/channels.yaml").Load(); err == nil {
		t.Error("Load of missing file should fail")
	}
}

func TestRegistryRejectsEmptyConfig(t *testing.T) {
	tests := []struct {
		name   string
		config ChannelsConfig
	}{
		{name: "no channels", config: ChannelsConfig{}},
		{name: "all disabled", config: ChannelsConfig{Channels: []ChannelEntry{{ChatID: 1, Disabled: true}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.config); err == nil {
				t.Error("NewRegistry should fail")
			}
		})
	}
}

func TestRegistryRejectsMissingChatID(t *testing.T) {
	_, err := NewRegistry(ChannelsConfig{Channels: []ChannelEntry{{Source: "telegram"}}})
	if err == nil {
		t.Error("NewRegistry should fail for entry without chat_id")
	}
}
