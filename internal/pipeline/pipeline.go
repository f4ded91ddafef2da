package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/carebridge/phi-sentinel/internal/export"
	"github.com/carebridge/phi-sentinel/internal/logger"
	"github.com/carebridge/phi-sentinel/internal/monitor"
	"github.com/carebridge/phi-sentinel/internal/store"
)

// csvColumns is the required CSV layout, in order
var csvColumns = []string{
	"patient_id", "national_id", "risk_score", "risk_tier",
	"clinical", "medication", "utilization", "adherence", "social",
	"confidence", "computed_at", "procedure_codes", "compliance_rate",
	"organization_id",
}

// Pipeline drives batch enterprise exports: read input records, anonymize
// through the exporter, persist payloads, archive, and report progress.
type Pipeline struct {
	exporter *export.Exporter
	store    *store.Store
	hub      *monitor.Hub
	config   *Config
	logger   *logger.Logger
	limiter  *rate.Limiter
}

// archiveRow is the flat Parquet shape of a successful payload
type archiveRow struct {
	PatientToken   string   `parquet:"patient_token"`
	RiskScore      float64  `parquet:"risk_score"`
	RiskTier       string   `parquet:"risk_tier"`
	Clinical       float64  `parquet:"clinical"`
	Medication     float64  `parquet:"medication"`
	Utilization    float64  `parquet:"utilization"`
	Adherence      float64  `parquet:"adherence"`
	Social         float64  `parquet:"social"`
	Confidence     float64  `parquet:"confidence"`
	ProcedureCodes []string `parquet:"procedure_codes,list"`
	ComplianceRate float64  `parquet:"compliance_rate"`
	OrgHash        string   `parquet:"org_hash"`
	ComputedAt     int64    `parquet:"computed_at"`
	ExportedAt     int64    `parquet:"exported_at"`
}

// NewPipeline creates an export pipeline. store and hub may be nil, which
// disables persistence and telemetry respectively.
func NewPipeline(exporter *export.Exporter, payloadStore *store.Store, hub *monitor.Hub, config *Config, log *logger.Logger) *Pipeline {
	var limiter *rate.Limiter
	if config.RecordsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RecordsPerSec), config.BatchSize)
	}

	return &Pipeline{
		exporter: exporter,
		store:    payloadStore,
		hub:      hub,
		config:   config,
		logger:   log.WithComponent("pipeline"),
		limiter:  limiter,
	}
}

// ProcessFile runs one export over an input file (CSV, JSON lines, or
// Parquet). Per-record failures are tallied, not fatal.
func (p *Pipeline) ProcessFile(ctx context.Context, filePath string) (*ProcessingResult, error) {
	runID := uuid.New().String()
	log := p.logger.WithRunID(runID)

	format := DetectFileFormat(filePath)
	log.Info("Starting export pipeline",
		zap.String("file", filePath),
		zap.String("format", string(format)),
		zap.Int("batch_size", p.config.BatchSize))

	start := time.Now()
	result := &ProcessingResult{RunID: runID}

	var archive *parquet.Writer
	if p.config.ArchivePath != "" {
		f, err := os.Create(p.config.ArchivePath)
		if err != nil {
			return result, fmt.Errorf("failed to create archive file: %w", err)
		}
		defer f.Close()
		archive = parquet.NewWriter(f, parquet.SchemaOf(archiveRow{}))
		defer archive.Close()
	}

	var err error
	switch format {
	case FormatCSV:
		err = p.processCSV(ctx, filePath, runID, archive, result)
	case FormatParquet:
		err = p.processParquet(ctx, filePath, runID, archive, result)
	case FormatJSON:
		err = p.processJSON(ctx, filePath, runID, archive, result)
	default:
		err = fmt.Errorf("unsupported file format: %s", format)
	}
	if err != nil {
		return result, err
	}

	result.Duration = time.Since(start)

	log.Info("Export pipeline completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("exported", result.Exported),
		zap.Int64("rejected", result.Rejected),
		zap.Int64("stored", result.Stored),
		zap.Duration("total_duration", result.Duration),
		zap.Duration("export_time", result.ExportTime),
		zap.Duration("database_time", result.DatabaseTime))

	return result, nil
}

func (p *Pipeline) processCSV(ctx context.Context, filePath, runID string, archive *parquet.Writer, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(csvColumns)

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i, want := range csvColumns {
		if i >= len(header) || strings.TrimSpace(header[i]) != want {
			return fmt.Errorf("unexpected CSV header: column %d should be %q", i, want)
		}
	}

	return p.processBatches(ctx, runID, archive, result, func() ([]*ExportRecord, error) {
		var batch []*ExportRecord
		for len(batch) < p.config.BatchSize {
			row, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Error(err))
				continue
			}

			record, err := parseCSVRecord(row)
			if err != nil {
				p.logger.Warn("Skipping malformed CSV record", zap.Error(err))
				continue
			}
			if p.validateRecord(record) {
				batch = append(batch, record)
			}
		}
		return batch, nil
	})
}

func parseCSVRecord(row []string) (*ExportRecord, error) {
	floats := make(map[string]float64)
	for _, col := range []struct {
		name string
		idx  int
	}{
		{"risk_score", 2}, {"clinical", 4}, {"medication", 5},
		{"utilization", 6}, {"adherence", 7}, {"social", 8},
		{"confidence", 9}, {"compliance_rate", 12},
	} {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[col.idx]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", col.name, err)
		}
		floats[col.name] = v
	}

	var codes []string
	if raw := strings.TrimSpace(row[11]); raw != "" {
		for _, c := range strings.Split(raw, ";") {
			if c = strings.TrimSpace(c); c != "" {
				codes = append(codes, c)
			}
		}
	}

	return &ExportRecord{
		PatientID:      row[0],
		NationalID:     row[1],
		RiskScore:      floats["risk_score"],
		RiskTier:       row[3],
		Clinical:       floats["clinical"],
		Medication:     floats["medication"],
		Utilization:    floats["utilization"],
		Adherence:      floats["adherence"],
		Social:         floats["social"],
		Confidence:     floats["confidence"],
		ComputedAt:     row[10],
		ProcedureCodes: codes,
		ComplianceRate: floats["compliance_rate"],
		OrganizationID: row[13],
	}, nil
}

func (p *Pipeline) processParquet(ctx context.Context, filePath, runID string, archive *parquet.Writer, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	return p.processBatches(ctx, runID, archive, result, func() ([]*ExportRecord, error) {
		var batch []*ExportRecord
		for len(batch) < p.config.BatchSize {
			var record ExportRecord
			err := reader.Read(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read Parquet record", zap.Error(err))
				continue
			}
			if p.validateRecord(&record) {
				batch = append(batch, &record)
			}
		}
		return batch, nil
	})
}

func (p *Pipeline) processJSON(ctx context.Context, filePath, runID string, archive *parquet.Writer, result *ProcessingResult) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)

	return p.processBatches(ctx, runID, archive, result, func() ([]*ExportRecord, error) {
		var batch []*ExportRecord
		for len(batch) < p.config.BatchSize {
			var record ExportRecord
			err := decoder.Decode(&record)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read JSON record", zap.Error(err))
				continue
			}
			if p.validateRecord(&record) {
				batch = append(batch, &record)
			}
		}
		return batch, nil
	})
}

func (p *Pipeline) processBatches(ctx context.Context, runID string, archive *parquet.Writer, result *ProcessingResult, readBatch func() ([]*ExportRecord, error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := readBatch()
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		if p.limiter != nil {
			if err := p.limiter.WaitN(ctx, len(batch)); err != nil {
				return fmt.Errorf("rate limit wait interrupted: %w", err)
			}
		}

		if err := p.processBatch(ctx, batch, runID, archive, result); err != nil {
			p.logger.Error("Batch processing failed", zap.Error(err))
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		if p.config.ProgressReport > 0 && result.TotalRecords%int64(p.config.ProgressReport) == 0 {
			p.reportProgress(runID, result)
		}
	}

	p.reportProgress(runID, result)
	return nil
}

func (p *Pipeline) processBatch(ctx context.Context, batch []*ExportRecord, runID string, archive *parquet.Writer, result *ProcessingResult) error {
	inputs := make([]export.PatientExportInput, len(batch))
	for i, record := range batch {
		inputs[i] = record.ToInput()
	}

	exportStart := time.Now()
	batchResult := p.exporter.BatchExportForEnterprise(inputs)
	result.ExportTime += time.Since(exportStart)

	result.TotalRecords += int64(len(batch))
	result.Exported += int64(len(batchResult.Successful))
	result.Rejected += int64(len(batchResult.Failed))

	if p.hub != nil {
		for _, failed := range batchResult.Failed {
			if failed.Pattern == "" {
				continue
			}
			// Violations carry field path and pattern name only, never the
			// matched text or patient id
			p.hub.BroadcastEvent(monitor.Event{
				Type:      monitor.EventTypeViolation,
				Timestamp: time.Now(),
				RunID:     runID,
				Data: monitor.ViolationEvent{
					RunID:   runID,
					Field:   failed.Field,
					Pattern: failed.Pattern,
				},
			})
		}
	}

	if p.store != nil && len(batchResult.Successful) > 0 {
		dbStart := time.Now()
		insertResult, err := p.store.BatchInsert(ctx, batchResult.Successful)
		if err != nil {
			return fmt.Errorf("database batch insert failed: %w", err)
		}
		result.DatabaseTime += time.Since(dbStart)
		result.Stored += insertResult.Inserted
	}

	if archive != nil {
		for _, payload := range batchResult.Successful {
			if err := archive.Write(toArchiveRow(payload)); err != nil {
				return fmt.Errorf("archive write failed: %w", err)
			}
			result.Archived++
		}
	}

	return nil
}

func toArchiveRow(p *export.AnonymizedRiskPayload) *archiveRow {
	return &archiveRow{
		PatientToken:   p.PatientToken,
		RiskScore:      p.RiskScore,
		RiskTier:       p.RiskTier,
		Clinical:       p.Domains.Clinical,
		Medication:     p.Domains.Medication,
		Utilization:    p.Domains.Utilization,
		Adherence:      p.Domains.Adherence,
		Social:         p.Domains.Social,
		Confidence:     p.Confidence,
		ProcedureCodes: p.ProcedureCodes,
		ComplianceRate: p.ComplianceRate,
		OrgHash:        p.OrgHash,
		ComputedAt:     p.ComputedAt.UnixMilli(),
		ExportedAt:     p.ExportedAt.UnixMilli(),
	}
}

// validateRecord rejects records the exporter would fail on anyway, before
// they consume rate budget
func (p *Pipeline) validateRecord(record *ExportRecord) bool {
	if !p.config.ValidateData {
		return true
	}

	if strings.TrimSpace(record.PatientID) == "" {
		p.logger.Debug("Invalid record: empty patient_id")
		return false
	}
	if strings.TrimSpace(record.OrganizationID) == "" {
		p.logger.Debug("Invalid record: empty organization_id")
		return false
	}
	if record.RiskScore < 0 || record.RiskScore > 1 {
		p.logger.Debug("Invalid record: risk_score out of range",
			zap.Float64("risk_score", record.RiskScore))
		return false
	}
	return true
}

func (p *Pipeline) reportProgress(runID string, result *ProcessingResult) {
	p.logger.Info("Export progress",
		zap.String("run_id", runID),
		zap.Int64("records_processed", result.TotalRecords),
		zap.Int64("exported", result.Exported),
		zap.Int64("rejected", result.Rejected))

	if p.hub != nil {
		p.hub.BroadcastEvent(monitor.Event{
			Type:      monitor.EventTypeExportProgress,
			Timestamp: time.Now(),
			RunID:     runID,
			Data: monitor.ExportProgressEvent{
				RunID:      runID,
				Processed:  int(result.TotalRecords),
				Successful: int(result.Exported),
				Failed:     int(result.Rejected),
				Total:      int(result.TotalRecords),
			},
		})
	}
}
