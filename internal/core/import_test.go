package core_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"opencourt/internal/core"
	"opencourt/internal/store"
)

var importHeader = []interface{}{
	"Sr No", "Dairy No", "Name", "Contact", "Marked To", "Date", "Marked By",
	"Timeline", "Police Station", "Division", "Category", "Reserved", "Days",
	"Reserved", "Dairy PS",
}

// buildWorkbook writes the header plus the given data rows into a fresh
// workbook and returns its serialized bytes.
func buildWorkbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &importHeader); err != nil {
		t.Fatalf("SetSheetRow header: %v", err)
	}
	for i, row := range rows {
		axis, err := excelize.JoinCellName("A", i+2)
		if err != nil {
			t.Fatalf("JoinCellName: %v", err)
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			t.Fatalf("SetSheetRow row %d: %v", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf
}

func dataRow(srNo, name, station, date, days string) []interface{} {
	return []interface{}{
		srNo, "D-" + srNo, name, "0300-0000000", "SP City", date, "Reader",
		"7 days", station, "City", "Theft", "", days, "", "PS " + station,
	}
}

func TestImportExcel_CreatesRecords(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	buf := buildWorkbook(t,
		dataRow("1001", "Asif Khan", "Mall Road", "2024-03-15", "15"),
		dataRow("1002", "Bilal Ahmed", "Civil Lines", "15/03/2024", "7"),
	)

	result, err := svc.ImportExcel(ctx, adminUser, "records.xlsx", buf)
	if err != nil {
		t.Fatalf("ImportExcel error = %v", err)
	}

	if result.Message != "Excel file processed successfully" {
		t.Errorf("Message = %q", result.Message)
	}
	if result.Created != 2 || result.Updated != 0 {
		t.Errorf("created/updated = %d/%d, want 2/0", result.Created, result.Updated)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want none", result.Errors)
	}

	records, err := svc.ListApplications(ctx, adminUser, core.ListQuery{Search: "Asif"})
	if err != nil {
		t.Fatalf("ListApplications error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.SrNo != "1001" {
		t.Errorf("SrNo = %q, want 1001", rec.SrNo)
	}
	if rec.Status != core.StatusPending || rec.Feedback != core.FeedbackPending {
		t.Errorf("status/feedback = %s/%s, want PENDING/PENDING", rec.Status, rec.Feedback)
	}
	if rec.Date == nil || rec.Date.Format("2006-01-02") != "2024-03-15" {
		t.Errorf("Date = %v, want 2024-03-15", rec.Date)
	}
	if rec.Days == nil || *rec.Days != 15 {
		t.Errorf("Days = %v, want 15", rec.Days)
	}
	if rec.CreatedBy != adminUser.ID {
		t.Errorf("CreatedBy = %q, want %q", rec.CreatedBy, adminUser.ID)
	}
}

func TestImportExcel_UpsertBySrNo(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first := buildWorkbook(t, dataRow("1001", "Asif Khan", "Mall Road", "2024-03-15", "15"))
	if _, err := svc.ImportExcel(ctx, adminUser, "records.xlsx", first); err != nil {
		t.Fatalf("first import error = %v", err)
	}

	// Move the record through the workflow, then re-import the same serial
	// number with changed fields.
	records, _ := svc.ListApplications(ctx, adminUser, core.ListQuery{})
	if _, err := svc.UpdateStatus(ctx, adminUser, records[0].ID, core.StatusHeard); err != nil {
		t.Fatalf("UpdateStatus error = %v", err)
	}

	second := buildWorkbook(t, dataRow("1001", "Asif Ullah Khan", "Saddar", "2024-04-01", "20"))
	result, err := svc.ImportExcel(ctx, adminUser, "records.xlsx", second)
	if err != nil {
		t.Fatalf("second import error = %v", err)
	}
	if result.Created != 0 || result.Updated != 1 {
		t.Errorf("created/updated = %d/%d, want 0/1", result.Created, result.Updated)
	}

	records, _ = svc.ListApplications(ctx, adminUser, core.ListQuery{})
	if len(records) != 1 {
		t.Fatalf("got %d records after re-import, want 1", len(records))
	}
	rec := records[0]
	if rec.Name != "Asif Ullah Khan" || rec.PoliceStation != "Saddar" {
		t.Errorf("fields not overwritten: %+v", rec)
	}
	if rec.Status != core.StatusPending {
		t.Errorf("Status = %q, want reset to PENDING", rec.Status)
	}
}

func TestImportExcel_PreserveWorkflowWhenConfigured(t *testing.T) {
	st := store.NewMemory()
	svc := core.NewService(st, core.ServiceConfig{ResetWorkflowOnUpdate: false})
	ctx := context.Background()

	first := buildWorkbook(t, dataRow("1001", "Asif Khan", "Mall Road", "2024-03-15", "15"))
	if _, err := svc.ImportExcel(ctx, adminUser, "records.xlsx", first); err != nil {
		t.Fatalf("first import error = %v", err)
	}
	records, _ := svc.ListApplications(ctx, adminUser, core.ListQuery{})
	if _, err := svc.UpdateStatus(ctx, adminUser, records[0].ID, core.StatusHeard); err != nil {
		t.Fatalf("UpdateStatus error = %v", err)
	}

	second := buildWorkbook(t, dataRow("1001", "Asif Khan", "Mall Road", "2024-03-15", "15"))
	if _, err := svc.ImportExcel(ctx, adminUser, "records.xlsx", second); err != nil {
		t.Fatalf("second import error = %v", err)
	}

	records, _ = svc.ListApplications(ctx, adminUser, core.ListQuery{})
	if records[0].Status != core.StatusHeard {
		t.Errorf("Status = %q, want HEARD preserved", records[0].Status)
	}
}

func TestImportExcel_MessyCells(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	buf := buildWorkbook(t,
		dataRow("1001", "Asif Khan", "Mall Road", "not a date", "abc"),
	)

	result, err := svc.ImportExcel(ctx, adminUser, "records.xlsx", buf)
	if err != nil {
		t.Fatalf("ImportExcel error = %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("Created = %d, want 1; errors: %v", result.Created, result.Errors)
	}

	records, _ := svc.ListApplications(ctx, adminUser, core.ListQuery{})
	if records[0].Date != nil {
		t.Errorf("Date = %v, want nil for unparseable cell", records[0].Date)
	}
	if records[0].Days != nil {
		t.Errorf("Days = %v, want nil for non-numeric cell", records[0].Days)
	}
}

// faultyStore wraps Memory and rejects inserts for one serial number, to
// stand in for a row that fails at the persistence layer.
type faultyStore struct {
	*store.Memory
	failSrNo string
}

func (s *faultyStore) CreateApplication(ctx context.Context, rec *core.ApplicationRecord) error {
	if rec.SrNo == s.failSrNo {
		return errors.New("insert application: connection reset by peer")
	}
	return s.Memory.CreateApplication(ctx, rec)
}

func TestImportExcel_RowFailureIsolated(t *testing.T) {
	st := &faultyStore{Memory: store.NewMemory(), failSrNo: "1001"}
	svc := core.NewService(st, core.ServiceConfig{ResetWorkflowOnUpdate: true})
	ctx := context.Background()

	buf := buildWorkbook(t,
		dataRow("1001", "Asif Khan", "Mall Road", "2024-03-15", "15"),
		dataRow("1002", "Bilal Ahmed", "Civil Lines", "2024-03-16", "7"),
	)

	result, err := svc.ImportExcel(ctx, adminUser, "records.xlsx", buf)
	if err != nil {
		t.Fatalf("ImportExcel error = %v", err)
	}

	// The failed row is reported with its spreadsheet row number and the
	// batch carries on to the next row.
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", result.Errors)
	}
	if !strings.HasPrefix(result.Errors[0], "Row 2: ") {
		t.Errorf("error = %q, want Row 2 prefix", result.Errors[0])
	}
	if result.Created != 1 || result.Updated != 0 {
		t.Errorf("created/updated = %d/%d, want 1/0", result.Created, result.Updated)
	}

	records, err := svc.ListApplications(ctx, adminUser, core.ListQuery{})
	if err != nil {
		t.Fatalf("ListApplications error = %v", err)
	}
	if len(records) != 1 || records[0].SrNo != "1002" {
		t.Errorf("surviving records = %+v, want only 1002", records)
	}
}

func TestImportExcel_SkipsEmptySrNo(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	buf := buildWorkbook(t,
		dataRow("", "No Serial", "Mall Road", "", ""),
		dataRow("   ", "Blank Serial", "Mall Road", "", ""),
		dataRow("1001", "Asif Khan", "Mall Road", "", ""),
	)

	result, err := svc.ImportExcel(ctx, adminUser, "records.xlsx", buf)
	if err != nil {
		t.Fatalf("ImportExcel error = %v", err)
	}
	if result.Created != 1 {
		t.Errorf("Created = %d, want 1", result.Created)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want none for skipped rows", result.Errors)
	}
}

func TestImportExcel_ShortRows(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	// A row that stops before the optional trailing columns.
	buf := buildWorkbook(t, []interface{}{"1001", "D-1001", "Asif Khan"})

	result, err := svc.ImportExcel(ctx, adminUser, "records.xlsx", buf)
	if err != nil {
		t.Fatalf("ImportExcel error = %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("Created = %d, want 1; errors: %v", result.Created, result.Errors)
	}

	records, _ := svc.ListApplications(ctx, adminUser, core.ListQuery{})
	if records[0].PoliceStation != "" || records[0].Days != nil {
		t.Errorf("short row fields should be empty: %+v", records[0])
	}
}

func TestImportExcel_RejectsNonExcel(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.ImportExcel(context.Background(), adminUser, "records.csv", strings.NewReader("a,b,c"))
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
	if err.Error() != "File must be Excel format (.xlsx or .xls)" {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestImportExcel_CorruptFile(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.ImportExcel(context.Background(), adminUser, "records.xlsx", strings.NewReader("this is not a zip"))
	if !errors.Is(err, core.ErrBadFile) {
		t.Fatalf("error = %v, want ErrBadFile", err)
	}
	if !strings.HasPrefix(err.Error(), "Error processing file:") {
		t.Errorf("error message = %q", err.Error())
	}
}
