// Package stores opens the storage backends shared by the commands.
package stores

import (
	"context"
	"fmt"

	"liquidity-mining-lab/internal/storage"
	chstore "liquidity-mining-lab/internal/storage/clickhouse"
	"liquidity-mining-lab/internal/storage/memory"
	"liquidity-mining-lab/internal/storage/migrations"
	pgstore "liquidity-mining-lab/internal/storage/postgres"
)

// Set holds every store used by the simulator, verifier and API.
type Set struct {
	Scenarios    storage.ScenarioStore
	Actions      storage.ActionStore
	Claims       storage.ClaimStore
	Expectations storage.ExpectationStore

	close func()
}

// Close releases the underlying connections.
func (s *Set) Close() {
	if s.close != nil {
		s.close()
	}
}

// Memory returns a set of empty in-memory stores.
func Memory() *Set {
	return &Set{
		Scenarios:    memory.NewScenarioStore(),
		Actions:      memory.NewActionStore(),
		Claims:       memory.NewClaimStore(),
		Expectations: memory.NewExpectationStore(),
	}
}

// Open connects to PostgreSQL (scenarios, actions, claims) and ClickHouse
// (expectations). With migrate set the schemas are applied first.
func Open(ctx context.Context, postgresDSN, clickhouseDSN string, migrate bool) (*Set, error) {
	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	// ClickHouse
	var chConn *chstore.Conn
	if migrate {
		chConn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	} else {
		chConn, err = chstore.NewConn(ctx, clickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	return &Set{
		// PostgreSQL stores (inputs and observations)
		Scenarios: pgstore.NewScenarioStore(pool),
		Actions:   pgstore.NewActionStore(pool),
		Claims:    pgstore.NewClaimStore(pool),

		// ClickHouse stores (simulated ledgers)
		Expectations: chstore.NewExpectationStore(chConn),

		close: func() {
			chConn.Close()
			pool.Close()
		},
	}, nil
}
