package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Addr() != "0.0.0.0:8080" {
		t.Fatalf("addr mismatch: %s", cfg.App.Addr())
	}
	if cfg.Workflow.OpenStatusCode != "open" || cfg.Workflow.InProgressStatusCode != "in_progress" {
		t.Fatalf("workflow status codes mismatch: %+v", cfg.Workflow)
	}
	if cfg.Workflow.SLA() != 72*time.Hour {
		t.Fatalf("default SLA mismatch: %v", cfg.Workflow.SLA())
	}
	if cfg.Workflow.ExportChunkSize != 500 {
		t.Fatalf("export chunk size mismatch: %d", cfg.Workflow.ExportChunkSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WORKFLOW_SLA_HOURS", "24")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("WORKFLOW_OPEN_STATUS_CODE", "new")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workflow.SLA() != 24*time.Hour {
		t.Fatalf("SLA override ignored: %v", cfg.Workflow.SLA())
	}
	if cfg.App.Port != "9090" {
		t.Fatalf("port override ignored: %s", cfg.App.Port)
	}
	if cfg.Workflow.OpenStatusCode != "new" {
		t.Fatalf("status code override ignored: %s", cfg.Workflow.OpenStatusCode)
	}
}

func TestGetEnvAsIntBadValueFallsBack(t *testing.T) {
	t.Setenv("WORKFLOW_EXPORT_CHUNK_SIZE", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Workflow.ExportChunkSize != 500 {
		t.Fatalf("bad int must fall back: %d", cfg.Workflow.ExportChunkSize)
	}
}
