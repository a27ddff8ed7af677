package channels

// ChannelEntry describes one inbound chat allowed to save bookmarks.
type ChannelEntry struct {
	// ChatID is the Telegram chat identifier.
	ChatID int64 `yaml:"chat_id"`
	// Source overrides the source tag recorded on bookmarks from this
	// chat. Defaults to "telegram".
	Source string `yaml:"source"`
	// Disabled keeps the entry in the file but stops accepting from it.
	Disabled bool `yaml:"disabled"`
}

// ChannelsConfig is the root structure for channels.yaml
type ChannelsConfig struct {
	Channels []ChannelEntry `yaml:"channels"`
}
