package reporting

import (
	"bytes"
	"fmt"
	"time"

	"github.com/openteams/taskflow/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// HistoryExporter renders a task's phase-history audit trail as an
// Excel workbook for offline review.
type HistoryExporter struct {
	logger *zap.Logger
}

// NewHistoryExporter creates a new history exporter
func NewHistoryExporter(logger *zap.Logger) *HistoryExporter {
	return &HistoryExporter{logger: logger}
}

// Export writes one row per history record, oldest-first, resolving
// phase ids to names through the workflow. Records referencing phases
// that were since deleted keep the raw id.
func (e *HistoryExporter) Export(task *entity.Task, wf *entity.Workflow, records []*entity.PhaseHistory) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Phase History"
	f.SetSheetName(f.GetSheetName(0), sheetName)

	headers := []string{"Timestamp", "From Phase", "To Phase", "Moved By", "Comment"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, record := range records {
		from := ""
		if record.FromPhaseID != nil {
			from = phaseName(wf, *record.FromPhaseID)
		}
		comment := ""
		if record.Comment != nil {
			comment = *record.Comment
		}
		values := []interface{}{
			record.Timestamp.Format(time.RFC3339),
			from,
			phaseName(wf, record.ToPhaseID),
			record.MovedByID,
			comment,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	e.logger.Info("History exported",
		zap.String("task_id", task.ID),
		zap.Int("records", len(records)))
	return buf.Bytes(), nil
}

func phaseName(wf *entity.Workflow, phaseID string) string {
	if p := wf.PhaseByID(phaseID); p != nil {
		return p.Name
	}
	return phaseID
}
