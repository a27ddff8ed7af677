package config

import (
	"os"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				t.Setenv(tt.key, tt.value)
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			got := requireEnv(tt.key)
			if !tt.wantPanic && got != tt.value {
				t.Errorf("requireEnv() = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		def   time.Duration
		want  time.Duration
	}{
		{name: "valid duration", value: "30s", def: time.Minute, want: 30 * time.Second},
		{name: "invalid falls back", value: "not-a-duration", def: time.Minute, want: time.Minute},
		{name: "empty falls back", value: "", def: 5 * time.Second, want: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("TEST_DURATION", tt.value)
			} else {
				_ = os.Unsetenv("TEST_DURATION")
			}

			if got := mustDuration("TEST_DURATION", tt.def); got != tt.want {
				t.Errorf("mustDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "single", input: "10.0.0.0/8", want: []string{"10.0.0.0/8"}},
		{name: "spaces and quotes", input: ` "a.example" , b.example `, want: []string{"a.example", "b.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitAndTrim(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("splitAndTrim(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadStoreBackendValidation(t *testing.T) {
	t.Setenv("STASH_WEBHOOK_SECRET", "s3cret")
	t.Setenv("STASH_REDIS_ADDR", "localhost:6379")
	t.Setenv("STASH_REDIS_PASSWORD_REQUIRED", "false")
	t.Setenv("STASH_STORE_BACKEND", "github")
	// github backend without credentials must refuse to start
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Load() should have panicked without github credentials")
		}
	}()
	_ = Load()
}

func TestLoadMemoryBackend(t *testing.T) {
	t.Setenv("STASH_WEBHOOK_SECRET", "s3cret")
	t.Setenv("STASH_REDIS_ADDR", "localhost:6379")
	t.Setenv("STASH_REDIS_PASSWORD_REQUIRED", "false")
	t.Setenv("STASH_STORE_BACKEND", "memory")

	cfg := Load()
	if cfg.StoreBackend != "memory" {
		t.Errorf("StoreBackend = %q, want memory", cfg.StoreBackend)
	}
	if cfg.SweepInterval != time.Hour {
		t.Errorf("SweepInterval = %v, want 1h default", cfg.SweepInterval)
	}
	if cfg.ResolveTimeout != 5*time.Second {
		t.Errorf("ResolveTimeout = %v, want 5s default", cfg.ResolveTimeout)
	}
}
