package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ServiceConfig holds the behavior switches for the service.
type ServiceConfig struct {
	// ResetWorkflowOnUpdate controls whether an import upsert that hits an
	// existing record resets its status and feedback to PENDING. This
	// mirrors the source system's behavior; turn it off to preserve
	// workflow progress across re-imports.
	ResetWorkflowOnUpdate bool
}

// Service implements the application-record operations over a Store.
// Every operation takes the caller explicitly; there is no ambient
// request state.
type Service struct {
	store Store
	cfg   ServiceConfig
}

// NewService creates a Service backed by st.
func NewService(st Store, cfg ServiceConfig) *Service {
	return &Service{store: st, cfg: cfg}
}

// ApplicationInput is the validated payload for creating or fully
// updating a record.
type ApplicationInput struct {
	SrNo          string   `json:"sr_no"`
	DairyNo       string   `json:"dairy_no"`
	Name          string   `json:"name"`
	Contact       string   `json:"contact"`
	MarkedTo      string   `json:"marked_to"`
	Date          *string  `json:"date"`
	MarkedBy      string   `json:"marked_by"`
	Timeline      string   `json:"timeline"`
	PoliceStation string   `json:"police_station"`
	Division      string   `json:"division"`
	Category      string   `json:"category"`
	Status        Status   `json:"status"`
	Days          *int     `json:"days"`
	Feedback      Feedback `json:"feedback"`
	Remarks       string   `json:"remarks"`
	DairyPs       string   `json:"dairy_ps"`
}

// Validate checks field constraints and applies enum defaults.
func (in *ApplicationInput) Validate() error {
	if CleanCell(in.SrNo) == "" {
		return InvalidInput("sr_no is required")
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !in.Status.Valid() {
		return InvalidInput("Invalid status")
	}
	if in.Feedback == "" {
		in.Feedback = FeedbackPending
	}
	if !in.Feedback.Valid() {
		return InvalidInput("Invalid feedback")
	}
	if in.Days != nil && *in.Days < 0 {
		return InvalidInput("days must be non-negative")
	}
	if in.Date != nil && *in.Date != "" && ParseCellDate(*in.Date) == nil {
		return InvalidInput("invalid date")
	}
	return nil
}

// date resolves the optional date string to a calendar date.
func (in *ApplicationInput) date() *time.Time {
	if in.Date == nil || *in.Date == "" {
		return nil
	}
	return ParseCellDate(*in.Date)
}

// CreateApplication validates the input and inserts a new record with the
// caller stamped as creator.
func (s *Service) CreateApplication(ctx context.Context, caller *User, in ApplicationInput) (*ApplicationRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkSrNoFree(ctx, CleanCell(in.SrNo)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &ApplicationRecord{
		ID:            uuid.NewString(),
		SrNo:          CleanCell(in.SrNo),
		DairyNo:       in.DairyNo,
		Name:          in.Name,
		Contact:       in.Contact,
		MarkedTo:      in.MarkedTo,
		Date:          in.date(),
		MarkedBy:      in.MarkedBy,
		Timeline:      in.Timeline,
		PoliceStation: in.PoliceStation,
		Division:      in.Division,
		Category:      in.Category,
		Status:        in.Status,
		Days:          in.Days,
		Feedback:      in.Feedback,
		Remarks:       in.Remarks,
		DairyPs:       in.DairyPs,
		CreatedBy:     caller.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateApplication(ctx, rec); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}
	return rec, nil
}

// GetApplication returns a record visible to the caller, or ErrNotFound.
func (s *Service) GetApplication(ctx context.Context, caller *User, id string) (*ApplicationRecord, error) {
	return s.getScoped(ctx, caller, id)
}

// UpdateApplication validates the input and overwrites a record visible to
// the caller.
func (s *Service) UpdateApplication(ctx context.Context, caller *User, id string, in ApplicationInput) (*ApplicationRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	rec, err := s.getScoped(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if srNo := CleanCell(in.SrNo); srNo != rec.SrNo {
		if err := s.checkSrNoFree(ctx, srNo); err != nil {
			return nil, err
		}
	}

	rec.SrNo = CleanCell(in.SrNo)
	rec.DairyNo = in.DairyNo
	rec.Name = in.Name
	rec.Contact = in.Contact
	rec.MarkedTo = in.MarkedTo
	rec.Date = in.date()
	rec.MarkedBy = in.MarkedBy
	rec.Timeline = in.Timeline
	rec.PoliceStation = in.PoliceStation
	rec.Division = in.Division
	rec.Category = in.Category
	rec.Status = in.Status
	rec.Days = in.Days
	rec.Feedback = in.Feedback
	rec.Remarks = in.Remarks
	rec.DairyPs = in.DairyPs
	rec.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateApplication(ctx, rec); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	return rec, nil
}

// ApplicationPatch is a partial update; nil fields are left untouched.
type ApplicationPatch struct {
	DairyNo       *string   `json:"dairy_no"`
	Name          *string   `json:"name"`
	Contact       *string   `json:"contact"`
	MarkedTo      *string   `json:"marked_to"`
	Date          *string   `json:"date"`
	MarkedBy      *string   `json:"marked_by"`
	Timeline      *string   `json:"timeline"`
	PoliceStation *string   `json:"police_station"`
	Division      *string   `json:"division"`
	Category      *string   `json:"category"`
	Status        *Status   `json:"status"`
	Days          *int      `json:"days"`
	Feedback      *Feedback `json:"feedback"`
	Remarks       *string   `json:"remarks"`
	DairyPs       *string   `json:"dairy_ps"`
}

// PatchApplication applies the non-nil fields of the patch to a record
// visible to the caller. Enum fields are validated before anything is
// written.
func (s *Service) PatchApplication(ctx context.Context, caller *User, id string, p ApplicationPatch) (*ApplicationRecord, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, InvalidInput("Invalid status")
	}
	if p.Feedback != nil && !p.Feedback.Valid() {
		return nil, InvalidInput("Invalid feedback")
	}
	if p.Days != nil && *p.Days < 0 {
		return nil, InvalidInput("days must be non-negative")
	}
	if p.Date != nil && *p.Date != "" && ParseCellDate(*p.Date) == nil {
		return nil, InvalidInput("invalid date")
	}

	rec, err := s.getScoped(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setString(&rec.DairyNo, p.DairyNo)
	setString(&rec.Name, p.Name)
	setString(&rec.Contact, p.Contact)
	setString(&rec.MarkedTo, p.MarkedTo)
	setString(&rec.MarkedBy, p.MarkedBy)
	setString(&rec.Timeline, p.Timeline)
	setString(&rec.PoliceStation, p.PoliceStation)
	setString(&rec.Division, p.Division)
	setString(&rec.Category, p.Category)
	setString(&rec.Remarks, p.Remarks)
	setString(&rec.DairyPs, p.DairyPs)
	if p.Date != nil {
		if *p.Date == "" {
			rec.Date = nil
		} else {
			rec.Date = ParseCellDate(*p.Date)
		}
	}
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.Days != nil {
		rec.Days = p.Days
	}
	if p.Feedback != nil {
		rec.Feedback = *p.Feedback
	}
	rec.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateApplication(ctx, rec); err != nil {
		return nil, fmt.Errorf("patch application: %w", err)
	}
	return rec, nil
}

// DeleteApplication removes a record visible to the caller.
func (s *Service) DeleteApplication(ctx context.Context, caller *User, id string) error {
	if _, err := s.getScoped(ctx, caller, id); err != nil {
		return err
	}
	if err := s.store.DeleteApplication(ctx, id); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}

// checkSrNoFree rejects a serial number that already identifies another
// record. The database UNIQUE constraint backs this up for races.
func (s *Service) checkSrNoFree(ctx context.Context, srNo string) error {
	_, err := s.store.GetApplicationBySrNo(ctx, srNo)
	switch {
	case err == nil:
		return InvalidInput("sr_no already exists")
	case IsNotFound(err):
		return nil
	default:
		return fmt.Errorf("check sr_no: %w", err)
	}
}

// getScoped loads a record and hides it behind ErrNotFound when the
// caller's scope does not cover it.
func (s *Service) getScoped(ctx context.Context, caller *User, id string) (*ApplicationRecord, error) {
	rec, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ScopeFor(caller).Allows(rec) {
		return nil, ErrNotFound
	}
	return rec, nil
}
