package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"MINIMAIL_STORE_BACKEND", "MINIMAIL_MESSAGES_PATH", "MINIMAIL_ACCOUNTS_PATH",
		"MINIMAIL_POSTGRES_DSN",
		"MINIMAIL_MAX_SUBJECT_LENGTH", "MINIMAIL_MAX_BODY_SIZE",
		"MINIMAIL_MAX_RECIPIENTS", "MINIMAIL_MAX_QUERY_LIMIT",
		"MINIMAIL_BCRYPT_COST", "MINIMAIL_MAX_LOGIN_ATTEMPTS",
		"MINIMAIL_LOG_LEVEL",
	}
	for _, env := range envVars {
		t.Setenv(env, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store.Backend != BackendJSONFile {
		t.Errorf("Store.Backend: got %q, want %q", cfg.Store.Backend, BackendJSONFile)
	}
	if cfg.Store.MessagesPath != "minimail-messages.json" {
		t.Errorf("Store.MessagesPath: got %q, want %q", cfg.Store.MessagesPath, "minimail-messages.json")
	}
	if cfg.Store.AccountsPath != "minimail-accounts.json" {
		t.Errorf("Store.AccountsPath: got %q, want %q", cfg.Store.AccountsPath, "minimail-accounts.json")
	}
	if cfg.Limits.MaxSubjectLength != 998 {
		t.Errorf("Limits.MaxSubjectLength: got %d, want 998", cfg.Limits.MaxSubjectLength)
	}
	if cfg.Limits.MaxBodySize != 10485760 {
		t.Errorf("Limits.MaxBodySize: got %d, want 10485760", cfg.Limits.MaxBodySize)
	}
	if cfg.Auth.MaxLoginAttempts != 3 {
		t.Errorf("Auth.MaxLoginAttempts: got %d, want 3", cfg.Auth.MaxLoginAttempts)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MINIMAIL_STORE_BACKEND", "MEMORY")
	t.Setenv("MINIMAIL_MESSAGES_PATH", "/data/messages.json")
	t.Setenv("MINIMAIL_MAX_BODY_SIZE", "1048576")
	t.Setenv("MINIMAIL_MAX_LOGIN_ATTEMPTS", "5")
	t.Setenv("MINIMAIL_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store.Backend != BackendMemory {
		t.Errorf("Store.Backend: got %q, want %q", cfg.Store.Backend, BackendMemory)
	}
	if cfg.Store.MessagesPath != "/data/messages.json" {
		t.Errorf("Store.MessagesPath: got %q, want %q", cfg.Store.MessagesPath, "/data/messages.json")
	}
	if cfg.Limits.MaxBodySize != 1048576 {
		t.Errorf("Limits.MaxBodySize: got %d, want 1048576", cfg.Limits.MaxBodySize)
	}
	if cfg.Auth.MaxLoginAttempts != 5 {
		t.Errorf("Auth.MaxLoginAttempts: got %d, want 5", cfg.Auth.MaxLoginAttempts)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_InvalidNumericEnvVaris_Ignored(t *testing.T) {
	clearEnv(t)
	t.Setenv("MINIMAIL_MAX_BODY_SIZE", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Limits.MaxBodySize != 10485760 {
		t.Errorf("Limits.MaxBodySize: got %d, want default", cfg.Limits.MaxBodySize)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
store:
  backend: memory
  messages_path: /tmp/mm.json
limits:
  max_recipients: 10
auth:
  bcrypt_cost: 4
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store.Backend != BackendMemory {
		t.Errorf("Store.Backend: got %q, want %q", cfg.Store.Backend, BackendMemory)
	}
	if cfg.Store.MessagesPath != "/tmp/mm.json" {
		t.Errorf("Store.MessagesPath: got %q, want %q", cfg.Store.MessagesPath, "/tmp/mm.json")
	}
	if cfg.Limits.MaxRecipients != 10 {
		t.Errorf("Limits.MaxRecipients: got %d, want 10", cfg.Limits.MaxRecipients)
	}
	if cfg.Auth.BcryptCost != 4 {
		t.Errorf("Auth.BcryptCost: got %d, want 4", cfg.Auth.BcryptCost)
	}
	// Unset fields keep their defaults
	if cfg.Limits.MaxSubjectLength != 998 {
		t.Errorf("Limits.MaxSubjectLength: got %d, want default", cfg.Limits.MaxSubjectLength)
	}

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("MINIMAIL_LOG_LEVEL", "error")
		cfg, err := LoadFromFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Logging.Level != "error" {
			t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "error")
		}
	})
}

func TestLoadFromFile_Missing(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFromFile("/no/such/config.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	t.Run("postgres requires DSN", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MINIMAIL_STORE_BACKEND", "postgres")
		if _, err := Load(); err == nil {
			t.Fatal("expected error for postgres without DSN")
		}
		t.Setenv("MINIMAIL_POSTGRES_DSN", "postgres://localhost/minimail?sslmode=disable")
		if _, err := Load(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MINIMAIL_STORE_BACKEND", "cassandra")
		if _, err := Load(); err == nil {
			t.Fatal("expected error for unknown backend")
		}
	})
}
