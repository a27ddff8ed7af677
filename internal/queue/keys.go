package queue

import "fmt"

const (
	// KeyPrefixRetry namespaces retry entries, one key per bookmark id.
	KeyPrefixRetry = "stash:retry:"
)

// RetryKey returns the Redis key for a bookmark's retry entry.
func RetryKey(bookmarkID string) string {
	return KeyPrefixRetry + bookmarkID
}

// ExtractBookmarkID extracts the bookmark id from a retry key.
func ExtractBookmarkID(key string) (string, error) {
	if len(key) <= len(KeyPrefixRetry) {
		return "", fmt.Errorf("invalid retry key: %s", key)
	}
	return key[len(KeyPrefixRetry):], nil
}
