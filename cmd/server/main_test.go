package main

import (
	"testing"

	"github.com/caarlos0/env/v11"
)

func TestEnvConfig_Defaults(t *testing.T) {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		t.Fatalf("env.Parse: %v", err)
	}
	if ec.Addr != ":8080" || ec.WorldID != "main" || ec.IndexBackend != "sqlite" || ec.TuningPath != "./configs/tuning.yaml" {
		t.Fatalf("defaults=%+v", ec)
	}
	if ec.DisableDB || ec.EnablePprof || ec.EnableAdmin != "" {
		t.Fatalf("unexpected toggles=%+v", ec)
	}
}

func TestEnvConfig_Overrides(t *testing.T) {
	t.Setenv("SFX_ADDR", "127.0.0.1:9000")
	t.Setenv("SFX_DISABLE_DB", "true")
	t.Setenv("SFX_INDEX_BACKEND", "none")
	t.Setenv("SFX_IMPORT", "/tmp/1.store.zst")

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		t.Fatalf("env.Parse: %v", err)
	}
	if ec.Addr != "127.0.0.1:9000" || !ec.DisableDB || ec.IndexBackend != "none" || ec.ImportPath != "/tmp/1.store.zst" {
		t.Fatalf("overrides=%+v", ec)
	}
}

func TestEnvConfig_BadBool(t *testing.T) {
	t.Setenv("SFX_DISABLE_DB", "maybe")
	var ec envConfig
	if err := env.Parse(&ec); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpenRuntimeIndex(t *testing.T) {
	idx, err := openRuntimeIndex(t.TempDir(), "none", false)
	if err != nil || idx != nil {
		t.Fatalf("none backend: idx=%v err=%v", idx, err)
	}
	if _, err := openRuntimeIndex(t.TempDir(), "d1", false); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
	idx, err = openRuntimeIndex(t.TempDir(), "", false)
	if err != nil || idx == nil {
		t.Fatalf("sqlite backend: idx=%v err=%v", idx, err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
