package stores

import (
	"context"
	"testing"

	"liquidity-mining-lab/internal/storage/memory"
)

func TestMemory(t *testing.T) {
	s := Memory()
	defer s.Close()

	if _, ok := s.Scenarios.(*memory.ScenarioStore); !ok {
		t.Errorf("expected memory scenario store, got %T", s.Scenarios)
	}
	if _, ok := s.Expectations.(*memory.ExpectationStore); !ok {
		t.Errorf("expected memory expectation store, got %T", s.Expectations)
	}

	list, err := s.Scenarios.List(context.Background())
	if err != nil || len(list) != 0 {
		t.Errorf("expected empty store, got %d (%v)", len(list), err)
	}
}

func TestOpen_BadDSN(t *testing.T) {
	if _, err := Open(context.Background(), "not a dsn", "clickhouse://localhost/x", false); err == nil {
		t.Fatal("expected error for invalid postgres dsn")
	}
}
