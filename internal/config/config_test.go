// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Clear environment and set only required var
	os.Clearenv()
	setEnv(t, "FEDSITE_SESSION_SECRET", "test-secret-key-32-bytes-long!!!")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Check defaults
	if cfg.DBPath != "./data/fedsite.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/fedsite.db")
	}
	if cfg.ServerHost != "localhost" {
		t.Errorf("ServerHost = %q, want %q", cfg.ServerHost, "localhost")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.RemoteTimeout != 6*time.Second {
		t.Errorf("RemoteTimeout = %v, want 6s", cfg.RemoteTimeout)
	}
	if cfg.DocumentsBucket != "documents" {
		t.Errorf("DocumentsBucket = %q, want %q", cfg.DocumentsBucket, "documents")
	}
	if cfg.DemoReset {
		t.Error("DemoReset should default to false")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "FEDSITE_SESSION_SECRET", "custom-secret-key-32-bytes-long!")
	setEnv(t, "FEDSITE_DB_PATH", "/custom/path.db")
	setEnv(t, "FEDSITE_SERVER_PORT", "3000")
	setEnv(t, "FEDSITE_ENV", "production")
	setEnv(t, "FEDSITE_REMOTE_URL", "https://project.example.co")
	setEnv(t, "FEDSITE_REMOTE_ANON_KEY", "anon-key")
	setEnv(t, "FEDSITE_REMOTE_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "/custom/path.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ServerPort != 3000 {
		t.Errorf("ServerPort = %d", cfg.ServerPort)
	}
	if cfg.IsDevelopment() {
		t.Error("production env should not report development")
	}
	if !cfg.RemoteConfigured() {
		t.Error("remote URL and key are set, RemoteConfigured should be true")
	}
	if cfg.RemoteTimeout != 3*time.Second {
		t.Errorf("RemoteTimeout = %v, want 3s", cfg.RemoteTimeout)
	}
	if cfg.ServerAddr() != "localhost:3000" {
		t.Errorf("ServerAddr() = %q", cfg.ServerAddr())
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without FEDSITE_SESSION_SECRET")
	}
}

func TestLoad_ShortSecret(t *testing.T) {
	os.Clearenv()
	setEnv(t, "FEDSITE_SESSION_SECRET", "too-short")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject a short session secret")
	}
}

func TestLoad_WeakSecret(t *testing.T) {
	os.Clearenv()
	setEnv(t, "FEDSITE_SESSION_SECRET", "change-me-to-32-byte-secret-key!")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should reject a known default secret")
	}
}

func TestRemoteConfigured_PartialConfig(t *testing.T) {
	os.Clearenv()
	setEnv(t, "FEDSITE_SESSION_SECRET", "test-secret-key-32-bytes-long!!!")
	setEnv(t, "FEDSITE_REMOTE_URL", "https://project.example.co")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.RemoteConfigured() {
		t.Error("URL without key should not count as configured")
	}
}
