package persist

import (
	"testing"
	"time"

	"github.com/l1jgo/ecs/internal/config"
)

func TestPoolConfigFromSettings(t *testing.T) {
	cfg := config.Default().Database
	cfg.MaxOpenConns = 2
	cfg.MaxIdleConns = 5
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.StatementTimeout = 1500 * time.Millisecond

	pc, err := poolConfig(cfg, "sandbox")
	if err != nil {
		t.Fatal(err)
	}
	if pc.MaxConns != 2 || pc.MinConns != 2 {
		t.Fatalf("expected max 2 min 2, got %d %d", pc.MaxConns, pc.MinConns)
	}
	if pc.HealthCheckPeriod != 30*time.Second {
		t.Fatalf("unexpected health check period %s", pc.HealthCheckPeriod)
	}
	params := pc.ConnConfig.RuntimeParams
	if params["application_name"] != "ecsd:sandbox" || params["statement_timeout"] != "1500" {
		t.Fatalf("unexpected runtime params %v", params)
	}
}

func TestPoolConfigKeepsDSNApplicationName(t *testing.T) {
	cfg := config.Default().Database
	cfg.DSN = "postgres://ecs@localhost:5432/ecs?application_name=custom"
	cfg.StatementTimeout = 0

	pc, err := poolConfig(cfg, "sandbox")
	if err != nil {
		t.Fatal(err)
	}
	if got := pc.ConnConfig.RuntimeParams["application_name"]; got != "custom" {
		t.Fatalf("dsn application_name should win, got %q", got)
	}
	if _, ok := pc.ConnConfig.RuntimeParams["statement_timeout"]; ok {
		t.Fatal("zero timeout should leave the server default")
	}
}

func TestPoolConfigRejectsBadDSN(t *testing.T) {
	cfg := config.Default().Database
	cfg.DSN = "postgres://%zz"
	if _, err := poolConfig(cfg, "x"); err == nil {
		t.Fatal("expected a parse error")
	}
}
