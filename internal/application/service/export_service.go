package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/expensehub/approval-workflow/internal/application/port"
	"github.com/expensehub/approval-workflow/internal/domain/entity"
)

// ExportService renders approved tax returns as a spreadsheet for the
// accounting handoff.
type ExportService interface {
	ExportApproved(ctx context.Context) ([]byte, error)
}

type exportServiceImpl struct {
	expenseRepo port.ExpenseRepository
	logger      Logger
}

// NewExportService creates a new ExportService
func NewExportService(expenseRepo port.ExpenseRepository, logger Logger) ExportService {
	return &exportServiceImpl{
		expenseRepo: expenseRepo,
		logger:      logger,
	}
}

var exportHeaders = []string{
	"Supplier Name",
	"Total Amount",
	"Purchase Date",
	"User Selected Approval",
	"Final Approval Type",
	"Requires Director Approval",
	"Status",
	"Notes",
	"Created Date",
	"Updated Date",
}

// ExportApproved writes all APPROVED tax returns into an XLSX workbook and
// returns the serialized file.
func (s *exportServiceImpl) ExportApproved(ctx context.Context) ([]byte, error) {
	expenses, err := s.expenseRepo.ListByStatus(ctx, entity.ExpenseApproved)
	if err != nil {
		s.logger.Error("Failed to list approved tax returns", "error", err)
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Approved Expenses"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("set header: %w", err)
		}
	}

	for i, expense := range expenses {
		director := "No"
		if expense.RequiresDirectorApproval {
			director = "Yes"
		}
		values := []interface{}{
			expense.SupplierName,
			expense.TotalAmount(),
			expense.PurchaseDate.Format("2006-01-02"),
			string(expense.UserSelectedApproval),
			string(expense.FinalApprovalType),
			director,
			expense.Status.String(),
			expense.Notes,
			expense.CreatedAt.Format("2006-01-02"),
			expense.UpdatedAt.Format("2006-01-02"),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("set value: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("Approved tax returns exported", "count", len(expenses))
	return buf.Bytes(), nil
}
