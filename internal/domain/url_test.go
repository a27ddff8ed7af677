package domain

import (
	"errors"
	"testing"
)

func TestExtractURL(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "bare url",
			text: "https://example.com/post",
			want: "https://example.com/post",
			ok:   true,
		},
		{
			name: "url inside message",
			text: "check this out https://example.com/a?b=c soon",
			want: "https://example.com/a?b=c",
			ok:   true,
		},
		{
			name: "first of several wins",
			text: "http://first.example https://second.example",
			want: "http://first.example",
			ok:   true,
		},
		{
			name: "trailing punctuation stripped",
			text: "read https://example.com/page.",
			want: "https://example.com/page",
			ok:   true,
		},
		{
			name: "no url",
			text: "just some words",
			ok:   false,
		},
		{
			name: "unsupported scheme ignored",
			text: "ftp://example.com/file",
			ok:   false,
		},
		{
			name: "empty text",
			text: "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractURL(tt.text)
			if ok != tt.ok {
				t.Fatalf("ExtractURL(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("ExtractURL(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "https", raw: "https://example.com/x", wantErr: false},
		{name: "http", raw: "http://example.com", wantErr: false},
		{name: "ftp scheme", raw: "ftp://example.com", wantErr: true},
		{name: "no scheme", raw: "example.com/x", wantErr: true},
		{name: "no host", raw: "https://", wantErr: true},
		{name: "garbage", raw: "http://%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidURL) {
				t.Errorf("ValidateURL(%q) error should wrap ErrInvalidURL, got %v", tt.raw, err)
			}
		})
	}
}

func TestNewBookmarkUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		b := NewBookmark("https://example.com", SourceTelegram)
		if b.ID == "" {
			t.Fatal("NewBookmark produced an empty id")
		}
		if seen[b.ID] {
			t.Fatalf("duplicate id generated: %s", b.ID)
		}
		seen[b.ID] = true

		if err := b.Validate(); err != nil {
			t.Fatalf("fresh bookmark failed validation: %v", err)
		}
	}
}
