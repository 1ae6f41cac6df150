package service

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/fvu-intake/pkg/clock"
	"github.com/noah-isme/fvu-intake/pkg/config"
)

// Engine bundles the I/O-free stages shared by the API and the CLI.
type Engine struct {
	Calculation *CalculationService
	Validation  *ValidationService
	Documents   *DocumentService
}

// NewEngine builds the calculation, validation and document stages from configuration.
func NewEngine(cfg *config.Config, clk clock.Clock, logger *zap.Logger) (*Engine, error) {
	zone, err := time.LoadLocation(cfg.Calculation.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Calculation.Timezone, err)
	}
	calc := NewCalculationService(clk, CalculationConfig{
		Location: zone,
		UploadRetention: RetentionPolicy{
			CriticalDays: cfg.Calculation.RetentionCriticalDays,
			UrgentDays:   cfg.Calculation.RetentionUrgentUpload,
			AdvisoryDays: cfg.Calculation.RetentionAdvisoryDays,
		},
		RecoveryRetention: RetentionPolicy{
			CriticalDays: cfg.Calculation.RetentionCriticalDays,
			UrgentDays:   cfg.Calculation.RetentionUrgentRecov,
			AdvisoryDays: cfg.Calculation.RetentionAdvisoryDays,
		},
		OffsetAlertThreshold: cfg.Calculation.OffsetAlertThreshold,
	})
	validation := NewValidationService(validator.New(), calc, ValidationConfig{
		EmailDomain:      cfg.Validation.EmailDomain,
		OccurrencePrefix: cfg.Validation.OccurrencePrefix,
		LockerMin:        cfg.Validation.LockerMin,
		LockerMax:        cfg.Validation.LockerMax,
	}, logger)
	documents := NewDocumentService(calc, validation, DocumentConfig{SchemaVersion: cfg.Record.SchemaVersion}, logger)
	return &Engine{Calculation: calc, Validation: validation, Documents: documents}, nil
}
