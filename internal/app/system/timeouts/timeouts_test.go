package timeouts_test

import (
	"testing"
	"time"

	"github.com/dalemusser/meraki/internal/app/system/timeouts"
)

func TestDefaults(t *testing.T) {
	timeouts.Reset()
	if timeouts.Short() != timeouts.DefaultShort {
		t.Errorf("Short() = %v, want %v", timeouts.Short(), timeouts.DefaultShort)
	}
	if timeouts.Upload() != timeouts.DefaultUpload {
		t.Errorf("Upload() = %v, want %v", timeouts.Upload(), timeouts.DefaultUpload)
	}
}

func TestConfigure_IgnoresZero(t *testing.T) {
	defer timeouts.Reset()

	timeouts.Configure(timeouts.Config{Short: 7 * time.Second})
	if timeouts.Short() != 7*time.Second {
		t.Errorf("Short() = %v, want 7s", timeouts.Short())
	}
	if timeouts.Medium() != timeouts.DefaultMedium {
		t.Errorf("Medium() changed to %v", timeouts.Medium())
	}
	if timeouts.Ping() != timeouts.DefaultPing {
		t.Errorf("Ping() changed to %v", timeouts.Ping())
	}
}
