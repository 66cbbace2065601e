package core

// import.go implements the bulk spreadsheet import. Each row is an
// independent upsert keyed on the serial number; a bad row is recorded as
// "Row <n>: <message>" and the batch moves on. Only an unreadable file
// fails the whole request, and it does so before any row is touched.

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Column positions are a contract with the registry that produces the
// spreadsheets and must be preserved exactly.
const (
	colSrNo          = 0
	colDairyNo       = 1
	colName          = 2
	colContact       = 3
	colMarkedTo      = 4
	colDate          = 5
	colMarkedBy      = 6
	colTimeline      = 7
	colPoliceStation = 8
	colDivision      = 9
	colCategory      = 10
	colDays          = 12
	colDairyPs       = 14
)

// rowOutcome is what happened to a single data row.
type rowOutcome int

const (
	rowSkipped rowOutcome = iota
	rowCreated
	rowUpdated
)

// ImportExcel parses the uploaded workbook and reconciles every data row
// into the record store. The first row of the first sheet is a header and
// is skipped; a row with an empty serial number is skipped silently.
func (s *Service) ImportExcel(ctx context.Context, caller *User, fileName string, r io.Reader) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext != ".xlsx" && ext != ".xls" {
		return nil, InvalidInput("File must be Excel format (.xlsx or .xls)")
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, BadFile(fmt.Sprintf("Error processing file: %v", err))
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, BadFile("Error processing file: workbook has no sheets")
	}

	// Raw cell values keep Excel serial dates numeric instead of
	// formatted, which ParseCellDate relies on.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, BadFile(fmt.Sprintf("Error processing file: %v", err))
	}

	result := &ImportResult{
		Message: "Excel file processed successfully",
		Errors:  []string{},
	}

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		rowNum := i + 1

		outcome, err := s.importRow(ctx, caller, row)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		switch outcome {
		case rowCreated:
			result.Created++
		case rowUpdated:
			result.Updated++
		}
	}

	return result, nil
}

// importRow maps one spreadsheet row onto a record and upserts it by
// serial number.
func (s *Service) importRow(ctx context.Context, caller *User, row []string) (rowOutcome, error) {
	srNo := CleanCell(cell(row, colSrNo))
	if srNo == "" {
		return rowSkipped, nil
	}

	date := ParseCellDate(cell(row, colDate))
	days := ParseCellDays(cell(row, colDays))
	now := time.Now().UTC()

	existing, err := s.store.GetApplicationBySrNo(ctx, srNo)
	switch {
	case err == nil:
		existing.DairyNo = cell(row, colDairyNo)
		existing.Name = cell(row, colName)
		existing.Contact = cell(row, colContact)
		existing.MarkedTo = cell(row, colMarkedTo)
		existing.Date = date
		existing.MarkedBy = cell(row, colMarkedBy)
		existing.Timeline = cell(row, colTimeline)
		existing.PoliceStation = cell(row, colPoliceStation)
		existing.Division = cell(row, colDivision)
		existing.Category = cell(row, colCategory)
		existing.Days = days
		existing.DairyPs = cell(row, colDairyPs)
		if s.cfg.ResetWorkflowOnUpdate {
			existing.Status = StatusPending
			existing.Feedback = FeedbackPending
		}
		existing.CreatedBy = caller.ID
		existing.UpdatedAt = now

		if err := s.store.UpdateApplication(ctx, existing); err != nil {
			return rowSkipped, err
		}
		return rowUpdated, nil

	case IsNotFound(err):
		rec := &ApplicationRecord{
			ID:            uuid.NewString(),
			SrNo:          srNo,
			DairyNo:       cell(row, colDairyNo),
			Name:          cell(row, colName),
			Contact:       cell(row, colContact),
			MarkedTo:      cell(row, colMarkedTo),
			Date:          date,
			MarkedBy:      cell(row, colMarkedBy),
			Timeline:      cell(row, colTimeline),
			PoliceStation: cell(row, colPoliceStation),
			Division:      cell(row, colDivision),
			Category:      cell(row, colCategory),
			Status:        StatusPending,
			Days:          days,
			Feedback:      FeedbackPending,
			DairyPs:       cell(row, colDairyPs),
			CreatedBy:     caller.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.store.CreateApplication(ctx, rec); err != nil {
			return rowSkipped, err
		}
		return rowCreated, nil

	default:
		return rowSkipped, err
	}
}

// cell returns the trimmed value at position i, or "" when the row is
// shorter. Rows narrower than the optional trailing columns are normal.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return CleanCell(row[i])
}
