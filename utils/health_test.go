package utils

import (
	"context"
	"errors"
	"testing"
)

func TestRunHealthChecks(t *testing.T) {
	status := RunHealthChecks(context.Background(), map[string]HealthCheck{
		"mongo": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	if status.Healthy {
		t.Error("status reported healthy with a failing dependency")
	}
	if !status.Services["mongo"] || status.Services["redis"] {
		t.Errorf("services = %v", status.Services)
	}
	if got := GetHealthStatus(); got.CheckedAt != status.CheckedAt {
		t.Error("snapshot not stored")
	}
}
