package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"liquidity-mining-lab/internal/domain"
	"liquidity-mining-lab/internal/observability"
	"liquidity-mining-lab/internal/storage"
)

// TableClaims is the rows-stored metric label of observed claims.
const TableClaims = "reward_claims"

// ErrClaimOutsideScenario is returned for a claim by a user the scenario does
// not have.
var ErrClaimOutsideScenario = errors.New("claim outside scenario")

// ClaimResult counts the claims handled by one Ingest call.
type ClaimResult struct {
	Stored     int
	Duplicates int // already recorded for the same user and epoch
}

// ClaimIngester records observed claims of stored scenarios so the verifier
// can compare them with the simulation.
type ClaimIngester struct {
	scenarioStore storage.ScenarioStore
	claimStore    storage.ClaimStore

	metrics *observability.Metrics
	logger  *log.Logger
	clock   func() time.Time
}

// NewClaimIngester creates an ingester over the given stores.
func NewClaimIngester(scenarioStore storage.ScenarioStore, claimStore storage.ClaimStore) *ClaimIngester {
	return &ClaimIngester{
		scenarioStore: scenarioStore,
		claimStore:    claimStore,
		logger:        log.New(io.Discard, "", 0),
		clock:         func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics records stored rows.
func (c *ClaimIngester) WithMetrics(m *observability.Metrics) *ClaimIngester {
	c.metrics = m
	return c
}

// WithLogger sets the progress logger.
func (c *ClaimIngester) WithLogger(logger *log.Logger) *ClaimIngester {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// WithClock sets the clock used for claims without an observation time.
func (c *ClaimIngester) WithClock(clock func() time.Time) *ClaimIngester {
	c.clock = clock
	return c
}

// Ingest stores claims under scenarioID, which must exist. Every claim is
// checked against the scenario before anything is written; claims already
// recorded are counted as duplicates and left unchanged.
func (c *ClaimIngester) Ingest(ctx context.Context, scenarioID string, claims []*domain.ClaimObservation) (ClaimResult, error) {
	var res ClaimResult

	sc, err := c.scenarioStore.GetByID(ctx, scenarioID)
	if err != nil {
		return res, fmt.Errorf("scenario %s: %w", scenarioID, err)
	}

	now := c.clock().UnixMilli()
	batch := make([]*domain.ClaimObservation, 0, len(claims))
	for i, claim := range claims {
		if claim == nil || claim.Amount == nil {
			return res, fmt.Errorf("claim %d: %w", i, storage.ErrInvalidInput)
		}
		if claim.UserID < 0 || claim.UserID >= sc.Users {
			return res, fmt.Errorf("%w: claim %d by user %d, scenario has %d users", ErrClaimOutsideScenario, i, claim.UserID, sc.Users)
		}
		cp := *claim
		cp.ScenarioID = scenarioID
		if cp.ObservedAt == 0 {
			cp.ObservedAt = now
		}
		batch = append(batch, &cp)
	}

	for _, claim := range batch {
		err := c.claimStore.Insert(ctx, claim)
		switch {
		case err == nil:
			res.Stored++
		case errors.Is(err, storage.ErrDuplicateKey):
			res.Duplicates++
		default:
			return res, fmt.Errorf("store %s: %w", TableClaims, err)
		}
	}

	if res.Stored > 0 {
		c.metrics.RecordRowsStored(TableClaims, res.Stored)
	}
	c.logger.Printf("scenario %s: %d claims stored, %d already recorded", scenarioID, res.Stored, res.Duplicates)
	return res, nil
}
