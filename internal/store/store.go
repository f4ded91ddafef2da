package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/carebridge/phi-sentinel/internal/export"
	"github.com/carebridge/phi-sentinel/internal/logger"
)

// Store persists anonymized risk payloads in PostgreSQL
type Store struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// Config contains database configuration
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
}

// BatchInsertResult summarizes one batch insert
type BatchInsertResult struct {
	Inserted int64
	Skipped  int64
	Duration time.Duration
}

// TierStats is the per-tier payload count
type TierStats struct {
	Tier  string `db:"risk_tier"`
	Count int64  `db:"count"`
}

const schema = `
CREATE TABLE IF NOT EXISTS risk_payloads (
	patient_token   TEXT PRIMARY KEY,
	risk_score      DOUBLE PRECISION NOT NULL,
	risk_tier       TEXT NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	procedure_codes TEXT[] NOT NULL DEFAULT '{}',
	compliance_rate DOUBLE PRECISION NOT NULL,
	org_hash        TEXT NOT NULL,
	computed_at     TIMESTAMPTZ NOT NULL,
	exported_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_risk_payloads_org_tier ON risk_payloads (org_hash, risk_tier);`

// NewStore connects to PostgreSQL and ensures the payload schema exists
func NewStore(config *Config, log *logger.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	store := &Store{
		db:     db,
		logger: log,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	log.Info("Payload store initialized successfully",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns))

	return store, nil
}

func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure payload schema: %w", err)
	}

	return nil
}

// Insert stores one payload, replacing any previous export of the same token
func (s *Store) Insert(ctx context.Context, p *export.AnonymizedRiskPayload) error {
	query := `
		INSERT INTO risk_payloads
			(patient_token, risk_score, risk_tier, confidence, procedure_codes,
			 compliance_rate, org_hash, computed_at, exported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (patient_token) DO UPDATE SET
			risk_score = EXCLUDED.risk_score,
			risk_tier = EXCLUDED.risk_tier,
			confidence = EXCLUDED.confidence,
			procedure_codes = EXCLUDED.procedure_codes,
			compliance_rate = EXCLUDED.compliance_rate,
			computed_at = EXCLUDED.computed_at,
			exported_at = EXCLUDED.exported_at`

	_, err := s.db.ExecContext(ctx, query,
		p.PatientToken,
		p.RiskScore,
		p.RiskTier,
		p.Confidence,
		pq.Array(p.ProcedureCodes),
		p.ComplianceRate,
		p.OrgHash,
		p.ComputedAt,
		p.ExportedAt,
	)
	if err != nil {
		s.logger.Error("Failed to insert payload",
			zap.Error(err),
			zap.String("patient_token", p.PatientToken))
		return fmt.Errorf("failed to insert payload: %w", err)
	}

	return nil
}

// BatchInsert stores multiple payloads in one statement
func (s *Store) BatchInsert(ctx context.Context, payloads []*export.AnonymizedRiskPayload) (*BatchInsertResult, error) {
	if len(payloads) == 0 {
		return &BatchInsertResult{}, nil
	}

	start := time.Now()

	valueStrings := make([]string, 0, len(payloads))
	valueArgs := make([]interface{}, 0, len(payloads)*9)

	for i, p := range payloads {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			i*9+1, i*9+2, i*9+3, i*9+4, i*9+5, i*9+6, i*9+7, i*9+8, i*9+9))
		valueArgs = append(valueArgs,
			p.PatientToken,
			p.RiskScore,
			p.RiskTier,
			p.Confidence,
			pq.Array(p.ProcedureCodes),
			p.ComplianceRate,
			p.OrgHash,
			p.ComputedAt,
			p.ExportedAt,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO risk_payloads
			(patient_token, risk_score, risk_tier, confidence, procedure_codes,
			 compliance_rate, org_hash, computed_at, exported_at)
		VALUES %s
		ON CONFLICT (patient_token) DO NOTHING`,
		strings.Join(valueStrings, ","))

	res, err := s.db.ExecContext(ctx, query, valueArgs...)
	if err != nil {
		s.logger.Error("Batch insert failed", zap.Error(err))
		return nil, fmt.Errorf("batch insert failed: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("Could not get rows affected", zap.Error(err))
		inserted = int64(len(payloads))
	}

	result := &BatchInsertResult{
		Inserted: inserted,
		Skipped:  int64(len(payloads)) - inserted,
		Duration: time.Since(start),
	}

	s.logger.Info("Batch insert completed",
		zap.Int64("inserted", result.Inserted),
		zap.Int64("duplicates_skipped", result.Skipped),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// GetTierStats returns payload counts grouped by risk tier
func (s *Store) GetTierStats(ctx context.Context) ([]TierStats, error) {
	var stats []TierStats
	query := `
		SELECT risk_tier, COUNT(*) as count
		FROM risk_payloads
		GROUP BY risk_tier
		ORDER BY count DESC`

	if err := s.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get tier stats: %w", err)
	}
	return stats, nil
}

// Count returns the total number of stored payloads
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM risk_payloads"); err != nil {
		return 0, fmt.Errorf("failed to count payloads: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks the password in a database URL for logging
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
