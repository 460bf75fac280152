package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ardnew/ft60x/pkg"
)

func TestDefaultConfig(t *testing.T) {
	want := Config{
		TargetDepth:       8,
		BufferSize:        32 * 1024,
		PoolSize:          16,
		WaitTimeout:       100 * time.Millisecond,
		DrainTimeout:      2 * time.Second,
		BusyBackoff:       time.Millisecond,
		TelemetryInterval: time.Second,
		TelemetryBuckets:  5,
	}
	if diff := cmp.Diff(want, DefaultConfig(), cmpopts.IgnoreFields(Config{}, "Ready")); diff != "" {
		t.Errorf("DefaultConfig() mismatch (-want +got):\n%s", diff)
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfig_RetryDefaults(t *testing.T) {
	c := Config{Transient: TransientRetry}.withDefaults()
	if c.MaxRetries != DefaultMaxRetries {
		t.Errorf("MaxRetries = %d, want %d", c.MaxRetries, DefaultMaxRetries)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"negative depth", Config{TargetDepth: -1}, "TargetDepth"},
		{"huge buffer", Config{BufferSize: MaxBufferSize + 1}, "BufferSize"},
		{"pool below depth", Config{TargetDepth: 8, PoolSize: 4}, "PoolSize"},
		{"bad policy", Config{Transient: 7}, "Transient"},
		{"negative retries", Config{MaxRetries: -1}, "MaxRetries"},
		{"negative wait", Config{WaitTimeout: -time.Second}, "timeouts"},
		{"negative cpu", Config{PinReactor: true, ReactorCPU: -2}, "ReactorCPU"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.withDefaults().Validate()
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() error = %v, want *ConfigError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
			if !errors.Is(err, pkg.ErrInvalidParameter) {
				t.Errorf("Validate() error = %v, want wrapped %v", err, pkg.ErrInvalidParameter)
			}
		})
	}
}

func TestTransientPolicy_String(t *testing.T) {
	for p, want := range map[TransientPolicy]string{
		TransientDrop:      "drop",
		TransientRetry:     "retry",
		TransientPolicy(5): "unknown",
	} {
		if got := p.String(); got != want {
			t.Errorf("TransientPolicy(%d).String() = %q, want %q", p, got, want)
		}
	}
}
