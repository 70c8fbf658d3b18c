package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	LoadConfig("")

	if AppConfig.AppPort != "8080" {
		t.Errorf("AppPort = %q, want 8080", AppConfig.AppPort)
	}
	if AppConfig.APIPrefix != "/api" {
		t.Errorf("APIPrefix = %q, want /api", AppConfig.APIPrefix)
	}
	if AppConfig.WaitingTimeout != 2*time.Minute {
		t.Errorf("WaitingTimeout = %v, want 2m", AppConfig.WaitingTimeout)
	}
	if AppConfig.LiveGrace != 30*time.Second {
		t.Errorf("LiveGrace = %v, want 30s", AppConfig.LiveGrace)
	}
	if AppConfig.MediaTokenTTL != time.Hour {
		t.Errorf("MediaTokenTTL = %v, want 1h", AppConfig.MediaTokenTTL)
	}
	if AppConfig.MaxLiveSeconds != 7200 {
		t.Errorf("MaxLiveSeconds = %d, want 7200", AppConfig.MaxLiveSeconds)
	}
	if IsProduction() {
		t.Error("default environment should not be production")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("WAITING_TIMEOUT", "45s")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("ENV", "production")

	LoadConfig("")

	if AppConfig.WaitingTimeout != 45*time.Second {
		t.Errorf("WaitingTimeout = %v, want 45s", AppConfig.WaitingTimeout)
	}
	if AppConfig.DatabaseDriver != "memory" {
		t.Errorf("DatabaseDriver = %q, want memory", AppConfig.DatabaseDriver)
	}
	if !IsProduction() {
		t.Error("ENV=production should report production")
	}
}
