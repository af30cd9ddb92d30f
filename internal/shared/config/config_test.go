package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("PROGRESS_STORE", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("MAX_FILE_SIZE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLMProvider != "openai" || cfg.LLMModel != defaultOpenAIModel {
		t.Fatalf("unexpected llm defaults: %s %s", cfg.LLMProvider, cfg.LLMModel)
	}
	if cfg.ProgressStore != "memory" {
		t.Fatalf("expected memory progress store in dev, got %s", cfg.ProgressStore)
	}
	if cfg.DynamoTable != defaultDynamoTable {
		t.Fatalf("unexpected table %s", cfg.DynamoTable)
	}
	if cfg.MaxFileSize != defaultMaxFileSize {
		t.Fatalf("unexpected max file size %d", cfg.MaxFileSize)
	}
}

func TestLoadPicksDynamoWithCredentials(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("PROGRESS_STORE", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProgressStore != "dynamodb" {
		t.Fatalf("expected dynamodb, got %s", cfg.ProgressStore)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadRequiresDatabaseForPostgres(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("PROGRESS_STORE", "postgres")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":                          "",
		"short":                     "****",
		"sk-abcdefghijklmnopqrstuv": "sk-abcd...stuv",
	}
	for in, want := range cases {
		if got := MaskSecret(in); got != want {
			t.Fatalf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
