package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"risklab/internal/domain"
	"risklab/internal/storage"
)

// ScenarioStore implements storage.ScenarioStore using PostgreSQL.
type ScenarioStore struct {
	pool *Pool
}

// NewScenarioStore creates a new ScenarioStore.
func NewScenarioStore(pool *Pool) *ScenarioStore {
	return &ScenarioStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ScenarioStore = (*ScenarioStore)(nil)

const insertScenarioQuery = `
	INSERT INTO risk_scenarios (
		scenario_id, name, probability_annual,
		impact_min, impact_likely, impact_max, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

const selectScenarioColumns = `
	scenario_id, name, probability_annual,
	impact_min, impact_likely, impact_max, created_at
`

// Insert adds a new scenario. Returns ErrDuplicateKey if scenario_id exists.
func (s *ScenarioStore) Insert(ctx context.Context, sc *domain.RiskScenario) error {
	_, err := s.pool.Exec(ctx, insertScenarioQuery,
		sc.ScenarioID, sc.Name, sc.ProbabilityAnnual,
		sc.Impact.Min, sc.Impact.Likely, sc.Impact.Max, sc.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert scenario: %w", err)
	}
	return nil
}

// InsertBulk adds multiple scenarios atomically. Fails entire batch on any duplicate.
func (s *ScenarioStore) InsertBulk(ctx context.Context, scenarios []*domain.RiskScenario) error {
	if len(scenarios) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, sc := range scenarios {
		_, err := tx.Exec(ctx, insertScenarioQuery,
			sc.ScenarioID, sc.Name, sc.ProbabilityAnnual,
			sc.Impact.Min, sc.Impact.Likely, sc.Impact.Max, sc.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert scenario in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a scenario by its ID. Returns ErrNotFound if not exists.
func (s *ScenarioStore) GetByID(ctx context.Context, scenarioID string) (*domain.RiskScenario, error) {
	query := `
		SELECT ` + selectScenarioColumns + `
		FROM risk_scenarios
		WHERE scenario_id = $1
	`

	row := s.pool.QueryRow(ctx, query, scenarioID)
	sc, err := scanScenario(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get scenario by id: %w", err)
	}
	return sc, nil
}

// GetByName retrieves all scenarios with a given name, ordered by created_at ASC.
func (s *ScenarioStore) GetByName(ctx context.Context, name string) ([]*domain.RiskScenario, error) {
	query := `
		SELECT ` + selectScenarioColumns + `
		FROM risk_scenarios
		WHERE name = $1
		ORDER BY created_at ASC, scenario_id ASC
	`

	rows, err := s.pool.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("get scenarios by name: %w", err)
	}
	defer rows.Close()

	return scanScenarios(rows)
}

// GetAll retrieves all scenarios, ordered by created_at ASC, scenario_id ASC.
func (s *ScenarioStore) GetAll(ctx context.Context) ([]*domain.RiskScenario, error) {
	query := `
		SELECT ` + selectScenarioColumns + `
		FROM risk_scenarios
		ORDER BY created_at ASC, scenario_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all scenarios: %w", err)
	}
	defer rows.Close()

	return scanScenarios(rows)
}

// scanScenario scans a single row into a RiskScenario.
func scanScenario(row pgx.Row) (*domain.RiskScenario, error) {
	var sc domain.RiskScenario

	err := row.Scan(
		&sc.ScenarioID, &sc.Name, &sc.ProbabilityAnnual,
		&sc.Impact.Min, &sc.Impact.Likely, &sc.Impact.Max, &sc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &sc, nil
}

// scanScenarios scans multiple rows into a slice of RiskScenario.
func scanScenarios(rows pgx.Rows) ([]*domain.RiskScenario, error) {
	var scenarios []*domain.RiskScenario

	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scenario row: %w", err)
		}
		scenarios = append(scenarios, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenario rows: %w", err)
	}

	return scenarios, nil
}
