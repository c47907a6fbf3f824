package service

import (
	"context"
	"fmt"

	"github.com/garyjia/claim-review/internal/application/dispatcher"
	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/event"
)

// ReportService renders the admission report once a claim is decided
type ReportService struct {
	claims    ClaimReader
	generator port.ReportGenerator
	logger    Logger
}

// NewReportService creates a new ReportService
func NewReportService(claims ClaimReader, generator port.ReportGenerator, logger Logger) *ReportService {
	return &ReportService{
		claims:    claims,
		generator: generator,
		logger:    logger,
	}
}

// Register subscribes the service to claim decisions
func (s *ReportService) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeClaimDecided, "admission-report", s.GenerateReport)
}

// GenerateReport renders the report from the claim and its full audit trail
func (s *ReportService) GenerateReport(ctx context.Context, evt *event.Event) error {
	c, err := s.claims.GetState(ctx, evt.ClaimID)
	if err != nil {
		return fmt.Errorf("get claim: %w", err)
	}
	if !c.Status.IsTerminal() {
		// reopened before the report ran
		s.logger.Info("Skipping report for reopened claim", "claim_id", c.ID, "status", c.Status)
		return nil
	}

	trail, err := s.claims.AuditTrail(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("get audit trail: %w", err)
	}

	docID, err := s.generator.Generate(ctx, c, trail)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	s.logger.Info("Admission report generated",
		"claim_id", c.ID,
		"status", c.Status,
		"document_id", docID,
		"audit_entries", len(trail),
	)
	return nil
}
