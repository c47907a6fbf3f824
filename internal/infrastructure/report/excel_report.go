// Package report renders the admission report of a decided claim as an Excel
// workbook and stores it through a document writer.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/claim-review/internal/application/port"
	"github.com/garyjia/claim-review/internal/domain/audit"
	"github.com/garyjia/claim-review/internal/domain/claim"
	"github.com/garyjia/claim-review/internal/domain/ledger"
)

const (
	summarySheet = "Summary"
	trailSheet   = "Audit Trail"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// built-in number format "#,##0.00"
	moneyNumFmt = 4
)

// ExcelGenerator implements port.ReportGenerator
type ExcelGenerator struct {
	writer port.DocumentWriter
	prefix string
	now    func() time.Time
	logger *zap.Logger
}

var _ port.ReportGenerator = (*ExcelGenerator)(nil)

// NewExcelGenerator creates a generator storing reports under prefix
func NewExcelGenerator(writer port.DocumentWriter, prefix string, logger *zap.Logger) *ExcelGenerator {
	if prefix == "" {
		prefix = "reports"
	}
	return &ExcelGenerator{
		writer: writer,
		prefix: prefix,
		now:    time.Now,
		logger: logger,
	}
}

// Generate renders the report for c and returns the stored document id
func (g *ExcelGenerator) Generate(ctx context.Context, c *claim.Claim, trail []audit.Entry) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	money, err := f.NewStyle(&excelize.Style{NumFmt: moneyNumFmt})
	if err != nil {
		return "", fmt.Errorf("failed to create style: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("failed to create style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return "", fmt.Errorf("failed to rename sheet: %w", err)
	}
	s := &sheetWriter{f: f, sheet: summarySheet, money: money, bold: bold, logger: g.logger}
	writeSummary(s, c)

	if _, err := f.NewSheet(trailSheet); err != nil {
		return "", fmt.Errorf("failed to add sheet: %w", err)
	}
	t := &sheetWriter{f: f, sheet: trailSheet, money: money, bold: bold, logger: g.logger}
	writeTrail(t, trail)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("failed to render workbook: %w", err)
	}

	generatedAt := g.now().UTC()
	doc := &port.Document{
		ID:          fmt.Sprintf("%s/%s/admission-%s.xlsx", g.prefix, c.ID, generatedAt.Format("20060102T150405Z")),
		Name:        fmt.Sprintf("admission-report-%s.xlsx", c.ID),
		ContentType: xlsxContentType,
		Content:     buf.Bytes(),
	}
	if err := g.writer.Put(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to store report: %w", err)
	}

	g.logger.Info("Admission report generated",
		zap.String("claim_id", c.ID),
		zap.String("document_id", doc.ID),
		zap.Int("audit_entries", len(trail)))
	return doc.ID, nil
}

func writeSummary(s *sheetWriter, c *claim.Claim) {
	s.header(1, "Claim Admission Report")
	s.row(3, "Claim ID", c.ID)
	s.row(4, "Claimant", fmt.Sprintf("%s (%s)", c.Claimant.Name, c.Claimant.ID))
	s.row(5, "Category", string(c.Category))
	s.row(6, "Status", c.Status.String())
	s.row(7, "Submitted", formatTime(c.SubmittedAt))
	s.row(8, "Decided", formatTime(c.DecidedAt))
	s.row(9, "Two-stage review", yesNo(c.Terms.TwoStage))

	s.header(11, "Figure", "Amount", "Source", "Remarks")
	line := c.Amounts
	s.figure(12, "As per submitter", decimal.NewNullDecimal(line.AsPerSubmitter), ledger.SourceSubmitter, "")
	s.figure(13, "As per platform", line.AsPerPlatform, ledger.SourcePlatform, strings.Join(line.PlatformRemarks, "; "))
	s.figure(14, "As per verifier", line.AsPerVerifier, line.VerifierSource, line.VerifierRemarks)
	s.figure(15, "As per admittor", line.AsPerAdmittor, line.AdmittorSource, line.AdmittorRemarks)
	s.figure(16, "Final", line.Final(), ledger.SourceNone, "")

	if c.Admission != nil && c.Admission.Breakdown != nil {
		b := c.Admission.Breakdown
		s.header(18, "Sub-ledger", "Amount")
		rows := []struct {
			label  string
			amount decimal.Decimal
		}{
			{"Security", b.Security},
			{"Principal", b.Principal},
			{"Interest", b.Interest},
			{"Penal interest", b.PenalInterest},
			{"Disputed", b.Disputed},
			{"Set-off", b.SetOff},
			{"Admissible", b.Admissible()},
		}
		for i, r := range rows {
			s.figure(19+i, r.label, decimal.NewNullDecimal(r.amount), ledger.SourceNone, "")
		}
	}

	s.width("A", 22)
	s.width("B", 20)
	s.width("D", 60)
}

func writeTrail(s *sheetWriter, trail []audit.Entry) {
	s.header(1, "Seq", "Timestamp", "Action", "Category", "Actioner", "Comment", "Hash")
	for i, e := range trail {
		actioner := e.Actioner.Label
		if e.Actioner.Name != "" {
			actioner = fmt.Sprintf("%s (%s)", e.Actioner.Label, e.Actioner.Name)
		}
		s.values(i+2, e.Seq, e.Timestamp.UTC().Format(time.RFC3339), e.Action.String(), e.Action.Category(), actioner, e.Comment, e.Hash)
	}
	s.width("B", 22)
	s.width("C", 22)
	s.width("F", 70)
}

// sheetWriter logs cell errors instead of failing the report
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	money  int
	bold   int
	logger *zap.Logger
}

func (s *sheetWriter) cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func (s *sheetWriter) set(col, row int, value interface{}) {
	if err := s.f.SetCellValue(s.sheet, s.cell(col, row), value); err != nil {
		s.logger.Warn("Failed to set cell value",
			zap.String("sheet", s.sheet),
			zap.String("cell", s.cell(col, row)),
			zap.Error(err))
	}
}

func (s *sheetWriter) style(col, row, style int) {
	cell := s.cell(col, row)
	if err := s.f.SetCellStyle(s.sheet, cell, cell, style); err != nil {
		s.logger.Warn("Failed to set cell style", zap.String("cell", cell), zap.Error(err))
	}
}

func (s *sheetWriter) values(row int, values ...interface{}) {
	for i, v := range values {
		s.set(i+1, row, v)
	}
}

func (s *sheetWriter) header(row int, labels ...string) {
	for i, l := range labels {
		s.set(i+1, row, l)
		s.style(i+1, row, s.bold)
	}
}

func (s *sheetWriter) row(row int, label, value string) {
	s.set(1, row, label)
	s.set(2, row, value)
}

func (s *sheetWriter) figure(row int, label string, amount decimal.NullDecimal, source ledger.Source, remarks string) {
	s.set(1, row, label)
	if amount.Valid {
		s.set(2, row, amount.Decimal.InexactFloat64())
		s.style(2, row, s.money)
	}
	s.set(3, row, string(source))
	s.set(4, row, remarks)
}

func (s *sheetWriter) width(col string, w float64) {
	if err := s.f.SetColWidth(s.sheet, col, col, w); err != nil {
		s.logger.Warn("Failed to set column width", zap.String("col", col), zap.Error(err))
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
