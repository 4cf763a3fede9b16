package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/artpar/bgplan/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// =============================================================================
// Executor Interface - Shared by DB and Transaction
// =============================================================================

// executor abstracts database operations that can be performed on both
// a database connection and a transaction.
type executor interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	// Open database connection
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	// Every connection to :memory: is a separate database
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	// Run migrations
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStoreError("Ping", "", "", err.Error(), ErrConnectionFailed)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Plan Operations
// =============================================================================

// planRow represents a plan row in the database.
type planRow struct {
	ID                string  `db:"id"`
	Service           string  `db:"service"`
	Action            string  `db:"action"`
	DockerImageDigest string  `db:"docker_image_digest"`
	TaskDefinitionArn string  `db:"task_definition_arn"`
	CurrentState      string  `db:"current_state"`
	FutureState       *string `db:"future_state"`
	Status            string  `db:"status"`
	ErrorMessage      string  `db:"error_message"`
	SnapshotSerial    int64   `db:"snapshot_serial"`
	CreatedAt         string  `db:"created_at"`
	RequestedBy       string  `db:"requested_by"`
}

func (s *SQLiteStore) CreatePlan(ctx context.Context, plan *domain.PlanRecord) error {
	return createPlan(ctx, s.db, plan)
}

func (s *SQLiteStore) GetPlan(ctx context.Context, id string) (*domain.PlanRecord, error) {
	return getPlan(ctx, s.db, id)
}

func (s *SQLiteStore) ListPlans(ctx context.Context, opts ListOptions) ([]domain.PlanRecord, error) {
	return listPlans(ctx, s.db, opts)
}

func (s *SQLiteStore) ListPlansByService(ctx context.Context, service string, opts ListOptions) ([]domain.PlanRecord, error) {
	return listPlansByService(ctx, s.db, service, opts)
}

func (s *SQLiteStore) CountPlansByService(ctx context.Context, service string) (int, error) {
	return countPlansByService(ctx, s.db, service)
}

// =============================================================================
// Transaction Support
// =============================================================================

func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return NewStoreError("WithTx", "", "", "failed to begin transaction", ErrTxFailed)
	}

	txS := &txSQLiteStore{tx: tx}

	if err := fn(txS); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return NewStoreError("WithTx", "", "", fmt.Sprintf("rollback failed after error: %v", err), ErrTxFailed)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewStoreError("WithTx", "", "", "failed to commit transaction", ErrTxFailed)
	}

	return nil
}

// =============================================================================
// Transaction Store
// =============================================================================

// txSQLiteStore implements Store within a transaction.
type txSQLiteStore struct {
	tx *sqlx.Tx
}

func (s *txSQLiteStore) CreatePlan(ctx context.Context, plan *domain.PlanRecord) error {
	return createPlan(ctx, s.tx, plan)
}

func (s *txSQLiteStore) GetPlan(ctx context.Context, id string) (*domain.PlanRecord, error) {
	return getPlan(ctx, s.tx, id)
}

func (s *txSQLiteStore) ListPlans(ctx context.Context, opts ListOptions) ([]domain.PlanRecord, error) {
	return listPlans(ctx, s.tx, opts)
}

func (s *txSQLiteStore) ListPlansByService(ctx context.Context, service string, opts ListOptions) ([]domain.PlanRecord, error) {
	return listPlansByService(ctx, s.tx, service, opts)
}

func (s *txSQLiteStore) CountPlansByService(ctx context.Context, service string) (int, error) {
	return countPlansByService(ctx, s.tx, service)
}

func (s *txSQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	// Already in a transaction, just run the function
	return fn(s)
}

func (s *txSQLiteStore) Ping(ctx context.Context) error {
	return nil
}

func (s *txSQLiteStore) Close() error {
	// No-op for tx store
	return nil
}

// =============================================================================
// Shared Implementation Functions
// =============================================================================

func createPlan(ctx context.Context, exec executor, plan *domain.PlanRecord) error {
	currentJSON, err := json.Marshal(plan.Current)
	if err != nil {
		return NewStoreError("CreatePlan", "plan", plan.ID, "failed to serialize current state", ErrInvalidData)
	}

	var futureJSON *string
	if plan.Future != nil {
		data, err := json.Marshal(plan.Future)
		if err != nil {
			return NewStoreError("CreatePlan", "plan", plan.ID, "failed to serialize future state", ErrInvalidData)
		}
		s := string(data)
		futureJSON = &s
	}

	query := `
		INSERT INTO plans (
			id, service, action, docker_image_digest, task_definition_arn,
			current_state, future_state, status, error_message,
			snapshot_serial, created_at, requested_by
		) VALUES (
			:id, :service, :action, :docker_image_digest, :task_definition_arn,
			:current_state, :future_state, :status, :error_message,
			:snapshot_serial, :created_at, :requested_by
		)`

	row := map[string]any{
		"id":                  plan.ID,
		"service":             plan.Service,
		"action":              string(plan.Request.Action),
		"docker_image_digest": plan.Request.DockerImageDigest,
		"task_definition_arn": plan.Request.TaskDefinitionArn,
		"current_state":       string(currentJSON),
		"future_state":        futureJSON,
		"status":              string(plan.Status),
		"error_message":       plan.ErrorMessage,
		"snapshot_serial":     plan.SnapshotSerial,
		"created_at":          plan.CreatedAt.UTC().Format(timeLayout),
		"requested_by":        plan.RequestedBy,
	}

	_, err = exec.NamedExecContext(ctx, query, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: plans.id") {
			return NewStoreError("CreatePlan", "plan", plan.ID, "plan with this ID already exists", ErrDuplicateID)
		}
		return NewStoreError("CreatePlan", "plan", plan.ID, err.Error(), err)
	}

	return nil
}

func getPlan(ctx context.Context, exec executor, id string) (*domain.PlanRecord, error) {
	query := `SELECT * FROM plans WHERE id = ?`

	var row planRow
	err := exec.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetPlan", "plan", id, "plan not found", ErrNotFound)
		}
		return nil, NewStoreError("GetPlan", "plan", id, err.Error(), err)
	}

	return rowToPlan(&row)
}

func listPlans(ctx context.Context, exec executor, opts ListOptions) ([]domain.PlanRecord, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM plans ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`

	var rows []planRow
	if err := exec.SelectContext(ctx, &rows, query, opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("ListPlans", "plan", "", err.Error(), err)
	}

	return rowsToPlans("ListPlans", rows)
}

func listPlansByService(ctx context.Context, exec executor, service string, opts ListOptions) ([]domain.PlanRecord, error) {
	opts = opts.Normalize()
	query := `SELECT * FROM plans WHERE service = ? ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`

	var rows []planRow
	if err := exec.SelectContext(ctx, &rows, query, service, opts.Limit, opts.Offset); err != nil {
		return nil, NewStoreError("ListPlansByService", "plan", "", err.Error(), err)
	}

	return rowsToPlans("ListPlansByService", rows)
}

func countPlansByService(ctx context.Context, exec executor, service string) (int, error) {
	var count int
	if err := exec.GetContext(ctx, &count, `SELECT COUNT(*) FROM plans WHERE service = ?`, service); err != nil {
		return 0, NewStoreError("CountPlansByService", "plan", "", err.Error(), err)
	}
	return count, nil
}

// =============================================================================
// Row Conversion
// =============================================================================

func rowsToPlans(op string, rows []planRow) ([]domain.PlanRecord, error) {
	plans := make([]domain.PlanRecord, 0, len(rows))
	for i := range rows {
		plan, err := rowToPlan(&rows[i])
		if err != nil {
			return nil, NewStoreError(op, "plan", rows[i].ID, err.Error(), ErrInvalidData)
		}
		plans = append(plans, *plan)
	}
	return plans, nil
}

func rowToPlan(row *planRow) (*domain.PlanRecord, error) {
	plan := &domain.PlanRecord{
		ID:      row.ID,
		Service: row.Service,
		Request: domain.DeploymentRequest{
			Action:            domain.Action(row.Action),
			DockerImageDigest: row.DockerImageDigest,
			TaskDefinitionArn: row.TaskDefinitionArn,
		},
		Status:         domain.PlanStatus(row.Status),
		ErrorMessage:   row.ErrorMessage,
		SnapshotSerial: row.SnapshotSerial,
		RequestedBy:    row.RequestedBy,
	}

	if err := json.Unmarshal([]byte(row.CurrentState), &plan.Current); err != nil {
		return nil, NewStoreError("rowToPlan", "plan", row.ID, "failed to parse current state", ErrInvalidData)
	}

	if row.FutureState != nil {
		var future domain.FutureDeploymentState
		if err := json.Unmarshal([]byte(*row.FutureState), &future); err != nil {
			return nil, NewStoreError("rowToPlan", "plan", row.ID, "failed to parse future state", ErrInvalidData)
		}
		plan.Future = &future
	}

	createdAt, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return nil, NewStoreError("rowToPlan", "plan", row.ID, "failed to parse created_at", ErrInvalidData)
	}
	plan.CreatedAt = createdAt

	return plan, nil
}
