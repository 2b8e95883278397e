package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDataConfig_EmptyBackendDefaultsJSON(t *testing.T) {
	cfg := DataConfig{Path: "./data"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty backend should default to json: %v", err)
	}
	if cfg.Backend != BackendJSON {
		t.Errorf("backend = %q, want %q", cfg.Backend, BackendJSON)
	}
}

func TestDataConfig_InvalidBackend(t *testing.T) {
	cfg := DataConfig{Backend: "redis", Path: "./data"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown backend should fail validation")
	}
}

func TestDataConfig_MissingPath(t *testing.T) {
	cfg := DataConfig{Backend: BackendSQLite}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing path should fail validation")
	}
}

func TestFullConfig_ValidationCascades(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}

	cfg = NewDefaultConfig()
	cfg.Data.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch data error")
	}
}
