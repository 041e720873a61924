package db

import (
	"context"
	"testing"
)

func TestInitPostgres_NoDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	InitPostgres(context.Background())
	if Pool != nil {
		t.Fatal("expected pool to stay nil without a DSN")
	}
}

func TestPoolConfigSetsApplicationName(t *testing.T) {
	cfg, err := poolConfig("postgres://desk:pw@localhost:5432/desk?pool_max_conns=4")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if got := cfg.ConnConfig.RuntimeParams["application_name"]; got != applicationName {
		t.Fatalf("expected application_name %q, got %q", applicationName, got)
	}
	if cfg.MaxConns != 4 {
		t.Fatalf("expected pool_max_conns to be honored, got %d", cfg.MaxConns)
	}

	cfg, err = poolConfig("postgres://desk:pw@localhost:5432/desk?application_name=ops")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if got := cfg.ConnConfig.RuntimeParams["application_name"]; got != "ops" {
		t.Fatalf("expected explicit application_name to win, got %q", got)
	}
}

func TestPoolConfigRejectsGarbage(t *testing.T) {
	if _, err := poolConfig("postgres://%zz"); err == nil {
		t.Fatal("expected parse error")
	}
}
