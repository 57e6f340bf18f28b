package config

import (
	"os"
	"path/filepath"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_MaxConcurrent_TooLow(t *testing.T) {
	cfg := Defaults()
	cfg.General.MaxConcurrentMessages = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxConcurrentMessages=0")
	}
}

func TestValidate_MaxConcurrent_TooHigh(t *testing.T) {
	cfg := Defaults()
	cfg.General.MaxConcurrentMessages = 999
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxConcurrentMessages=999")
	}
}

func TestValidate_InvalidDashboardPort(t *testing.T) {
	cfg := Defaults()
	cfg.Dashboard.Port = -1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for negative port")
	}

	cfg.Dashboard.Port = 70000
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for port > 65535")
	}
}

func TestValidate_InvalidConversationConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Conversation.MaxHistory = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxHistory=0")
	}

	cfg = Defaults()
	cfg.Conversation.InactiveHours = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for inactiveHours=0")
	}
}

func TestValidate_FailoverChain_UnknownGenerator(t *testing.T) {
	cfg := Defaults()
	cfg.General.FailoverChain = []string{"ollama", "no-such-generator"}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown generator in failover chain")
	}
}

func TestValidate_UnknownGeneratorKind(t *testing.T) {
	cfg := Defaults()
	cfg.Generators["weird"] = GeneratorConfig{Enabled: true, Kind: "quantum"}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown generator kind")
	}
}

func TestValidate_OpenAIRequiresAPIBase(t *testing.T) {
	cfg := Defaults()
	cfg.Generators["hosted"] = GeneratorConfig{Enabled: true, Kind: "openai"}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for openai generator without apiBase")
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.General.DefaultGenerator = "test-generator"
	original.Generators["test-generator"] = GeneratorConfig{Enabled: true, Kind: "static"}

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.General.DefaultGenerator != "test-generator" {
		t.Fatalf("expected 'test-generator', got %q", loaded.General.DefaultGenerator)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.json")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// --- Env expansion ---

func TestExpandEnvVars_Set(t *testing.T) {
	t.Setenv("DIALECTBOT_TEST_TOKEN", "secret123")
	out := ExpandEnvVars(`{"token": "${DIALECTBOT_TEST_TOKEN}"}`)
	if out != `{"token": "secret123"}` {
		t.Fatalf("unexpected expansion: %s", out)
	}
}

func TestExpandEnvVars_Default(t *testing.T) {
	out := ExpandEnvVars(`{"base": "${DIALECTBOT_UNSET_VAR:-http://localhost:11434}"}`)
	if out != `{"base": "http://localhost:11434"}` {
		t.Fatalf("unexpected expansion: %s", out)
	}
}

func TestExpandEnvVars_UnsetNoDefault(t *testing.T) {
	in := `{"x": "${DIALECTBOT_UNSET_VAR}"}`
	if out := ExpandEnvVars(in); out != in {
		t.Fatalf("unset var without default should stay literal, got %s", out)
	}
}

// --- FlexStringList ---

func TestFlexStringList_MixedTypes(t *testing.T) {
	var f FlexStringList
	if err := f.UnmarshalJSON([]byte(`["123", 456]`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(f) != 2 || f[0] != "123" || f[1] != "456" {
		t.Fatalf("unexpected result: %v", f)
	}
}

// --- Accessor ---

func TestGetByPath(t *testing.T) {
	cfg := Defaults()
	val, err := GetByPath(cfg, "general.defaultGenerator")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "ollama" {
		t.Fatalf("expected 'ollama', got %v", val)
	}
}

func TestGetByPath_Unknown(t *testing.T) {
	cfg := Defaults()
	if _, err := GetByPath(cfg, "general.noSuchKey"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestSetByPath_TypedValues(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "conversation.maxHistory", "10"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Conversation.MaxHistory != 10 {
		t.Fatalf("expected 10, got %d", cfg.Conversation.MaxHistory)
	}

	if err := SetByPath(cfg, "dashboard.enabled", "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !cfg.Dashboard.Enabled {
		t.Fatal("expected dashboard.enabled=true")
	}
}

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Channels.Telegram.Token = "1234567890:AAA-very-secret"
	g := cfg.Generators["ollama"]
	g.APIKey = "sk-abcdefghijklmnop"
	cfg.Generators["ollama"] = g

	masked := Sanitize(cfg)
	if masked.Channels.Telegram.Token == cfg.Channels.Telegram.Token {
		t.Fatal("telegram token should be masked")
	}
	if masked.Generators["ollama"].APIKey == "sk-abcdefghijklmnop" {
		t.Fatal("generator API key should be masked")
	}
	// Original must be untouched
	if cfg.Channels.Telegram.Token != "1234567890:AAA-very-secret" {
		t.Fatal("sanitize must not mutate the original config")
	}
}
