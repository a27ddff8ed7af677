package channels

import (
	"fmt"

	"github.com/stash-sh/stash/internal/domain"
)

// Registry maps inbound chat ids to the source tag their bookmarks
// carry. Loaded once at startup; messages from unknown chats are
// rejected by the webhook.
type Registry struct {
	byChat map[int64]domain.Source
}

// NewRegistry builds the lookup table from a parsed config.
func NewRegistry(config ChannelsConfig) (*Registry, error) {
	byChat := make(map[int64]domain.Source, len(config.Channels))
	for i, entry := range config.Channels {
		if entry.ChatID == 0 {
			return nil, fmt.Errorf("channel entry %d has no chat_id", i)
		}
		if entry.Disabled {
			continue
		}
		source := domain.Source(entry.Source)
		if source == "" {
			source = domain.SourceTelegram
		}
		byChat[entry.ChatID] = source
	}
	if len(byChat) == 0 {
		return nil, fmt.Errorf("no enabled channels in config")
	}
	return &Registry{byChat: byChat}, nil
}

// Lookup returns the source tag for a chat, or false for unknown chats.
func (r *Registry) Lookup(chatID int64) (domain.Source, bool) {
	source, ok := r.byChat[chatID]
	return source, ok
}

// Count returns the number of enabled channels.
func (r *Registry) Count() int {
	return len(r.byChat)
}
