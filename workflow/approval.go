package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/paradixe/oit_backend/config"
	"bitbucket.org/paradixe/oit_backend/models"
	"bitbucket.org/paradixe/oit_backend/utils"
	"gorm.io/gorm"
)

var (
	// ErrPlanHasGaps rejects approval while demand is uncovered.
	ErrPlanHasGaps = errors.New("plan has unresolved gaps")

	// ErrBookingConflict means a booking landed between planning and
	// approval. The caller must re-plan.
	ErrBookingConflict = errors.New("booking conflict detected at approval")
)

// PlanResult is what planning and confirmation return to handlers.
type PlanResult struct {
	Document *models.OitDocument `json:"document"`
	Plan     Plan                `json:"plan"`
	Gaps     []Gap               `json:"gaps"`
}

// PlanStore persists planning and approval decisions. Production runs
// on the gorm store; tests substitute an in-memory one.
type PlanStore interface {
	GetDocument(ctx context.Context, id int) (*models.OitDocument, error)
	Transact(ctx context.Context, fn func(tx PlanTx) error) error
}

// PlanTx is the write surface of one planning or confirmation commit.
// A non-nil error from the Transact callback rolls the whole commit
// back.
type PlanTx interface {
	HasOverlappingBooking(resourceID int, start, end time.Time) (bool, error)
	InsertBooking(booking *models.Booking) error
	CancelBookings(documentID int) error
	UpdateDocument(document *models.OitDocument, updates map[string]interface{}) error
	SaveHistory(id int, before, after *models.OitDocument, description string) error
}

type gormPlanStore struct{}

func (gormPlanStore) GetDocument(ctx context.Context, id int) (*models.OitDocument, error) {
	return models.GetOitDocument(ctx, id)
}

func (gormPlanStore) Transact(ctx context.Context, fn func(tx PlanTx) error) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(gormPlanTx{tx: tx})
	})
}

type gormPlanTx struct {
	tx *gorm.DB
}

func (g gormPlanTx) HasOverlappingBooking(resourceID int, start, end time.Time) (bool, error) {
	return models.HasOverlappingBooking(g.tx, resourceID, start, end)
}

func (g gormPlanTx) InsertBooking(booking *models.Booking) error {
	return models.InsertBooking(g.tx, booking)
}

func (g gormPlanTx) CancelBookings(documentID int) error {
	return models.CancelBookingsForDocument(g.tx, documentID)
}

func (g gormPlanTx) UpdateDocument(document *models.OitDocument, updates map[string]interface{}) error {
	return g.tx.Model(document).Updates(updates).Error
}

func (g gormPlanTx) SaveHistory(id int, before, after *models.OitDocument, description string) error {
	return models.SaveHistoryUpdate(g.tx, id, "oit_documents", before, after, description)
}

// PlanResources builds a fresh allocation for the document and
// wholesale-replaces any previous plan. The document always drops back
// to pending; booked rows from an earlier approval are cancelled.
func PlanResources(ctx context.Context, documentID int, requests []ResourceRequest, slot *Slot, notes string) (*PlanResult, error) {
	return planResources(ctx, gormPlanStore{}, NewPlanner(), documentID, requests, slot, notes)
}

func planResources(ctx context.Context, store PlanStore, planner *Planner, documentID int, requests []ResourceRequest, slot *Slot, notes string) (*PlanResult, error) {
	ctx, span := tracer.Start(ctx, "workflow.PlanResources")
	defer span.End()

	document, err := store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	plan, gaps, err := planner.BuildPlan(ctx, requests, slot)
	if err != nil {
		return nil, err
	}

	planJSON, err := utils.MarshalToJSON(plan)
	if err != nil {
		return nil, err
	}
	gapsJSON, err := utils.MarshalToJSON(gaps)
	if err != nil {
		return nil, err
	}

	before := *document

	err = store.Transact(ctx, func(tx PlanTx) error {
		if err := tx.CancelBookings(documentID); err != nil {
			return err
		}
		if err := tx.UpdateDocument(document, map[string]interface{}{
			"ApprovalStatus":       models.ApprovalStatusPending,
			"ResourcePlan":         planJSON,
			"ResourceGaps":         gapsJSON,
			"ApprovedScheduleDate": nil,
			"ApprovalNotes":        notes,
		}); err != nil {
			return err
		}
		description := fmt.Sprintf("Resource plan rebuilt: %d assignments, %d gaps.", len(plan.Assignments), len(gaps))
		return tx.SaveHistory(documentID, &before, document, description)
	})
	if err != nil {
		return nil, err
	}

	return &PlanResult{Document: document, Plan: plan, Gaps: gaps}, nil
}

// ConfirmInput carries the reviewer's decision. Plan and Gaps, when
// present, replace the stored plan before the gap check (reviewers can
// trim an assignment or waive a gap at approval time).
type ConfirmInput struct {
	Approved     bool       `json:"approved"`
	ScheduleDate *time.Time `json:"schedule_date"`
	Notes        string     `json:"notes"`
	PlanOverride *Plan      `json:"plan"`
	GapsOverride *[]Gap     `json:"gaps"`
}

// ConfirmPlan applies the reviewer's decision.
//
// Approval re-verifies every assignment window against the ledger
// inside one transaction; a row inserted since planning rolls the
// whole approval back with ErrBookingConflict. A per-document Redis
// lock narrows the race window, but the transactional re-check is what
// guarantees no double booking.
//
// Rejection moves the document to needs_revision and clears the
// schedule.
func ConfirmPlan(ctx context.Context, documentID int, input ConfirmInput) (*PlanResult, error) {
	return confirmPlan(ctx, gormPlanStore{}, documentID, input)
}

func confirmPlan(ctx context.Context, store PlanStore, documentID int, input ConfirmInput) (*PlanResult, error) {
	ctx, span := tracer.Start(ctx, "workflow.ConfirmPlan")
	defer span.End()

	document, err := store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if document.ResourcePlan != "" {
		if err := utils.UnmarshalFromJSON([]byte(document.ResourcePlan), &plan); err != nil {
			return nil, fmt.Errorf("stored plan is unreadable: %v", err)
		}
	}
	var gaps []Gap
	if document.ResourceGaps != "" {
		if err := utils.UnmarshalFromJSON([]byte(document.ResourceGaps), &gaps); err != nil {
			return nil, fmt.Errorf("stored gaps are unreadable: %v", err)
		}
	}

	overrides := map[string]interface{}{}
	if input.PlanOverride != nil {
		plan = *input.PlanOverride
		planJSON, err := utils.MarshalToJSON(plan)
		if err != nil {
			return nil, err
		}
		overrides["ResourcePlan"] = planJSON
	}
	if input.GapsOverride != nil {
		gaps = *input.GapsOverride
		gapsJSON, err := utils.MarshalToJSON(gaps)
		if err != nil {
			return nil, err
		}
		overrides["ResourceGaps"] = gapsJSON
	}

	if !input.Approved {
		return rejectPlan(ctx, store, document, plan, gaps, input.Notes, overrides)
	}

	for _, gap := range gaps {
		if gap.Quantity > 0 {
			return nil, ErrPlanHasGaps
		}
	}

	release, err := utils.DocumentLock(ctx, documentID, "ConfirmPlan", "workflow", "ConfirmPlan")
	if err != nil {
		return nil, err
	}
	defer release()

	before := *document

	err = store.Transact(ctx, func(tx PlanTx) error {
		for _, assignment := range plan.Assignments {
			if assignment.Quantity <= 0 || assignment.Slot == nil {
				continue
			}
			conflict, err := tx.HasOverlappingBooking(assignment.ResourceId, assignment.Slot.Start, assignment.Slot.End)
			if err != nil {
				return err
			}
			if conflict {
				return ErrBookingConflict
			}
			booking := models.Booking{
				ResourceId:    assignment.ResourceId,
				OitDocumentId: documentID,
				Status:        models.BookingStatusBooked,
				StartTime:     assignment.Slot.Start,
				EndTime:       assignment.Slot.End,
				AllocatedQty:  assignment.Quantity,
			}
			if err := tx.InsertBooking(&booking); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"ApprovalStatus":       models.ApprovalStatusApproved,
			"ApprovedScheduleDate": input.ScheduleDate,
			"ApprovalNotes":        input.Notes,
		}
		for column, value := range overrides {
			updates[column] = value
		}
		if err := tx.UpdateDocument(document, updates); err != nil {
			return err
		}
		return tx.SaveHistory(documentID, &before, document, "Resource plan approved.")
	})
	if err != nil {
		return nil, err
	}

	notifyDecision(ctx, document, "plan_approved", "Plan approved",
		fmt.Sprintf("Resource plan for %s was approved.", document.Filename))

	return &PlanResult{Document: document, Plan: plan, Gaps: gaps}, nil
}

func rejectPlan(ctx context.Context, store PlanStore, document *models.OitDocument, plan Plan, gaps []Gap, notes string, overrides map[string]interface{}) (*PlanResult, error) {
	before := *document

	err := store.Transact(ctx, func(tx PlanTx) error {
		updates := map[string]interface{}{
			"ApprovalStatus":       models.ApprovalStatusNeedsRevision,
			"ApprovedScheduleDate": nil,
			"ReviewNotes":          notes,
		}
		for column, value := range overrides {
			updates[column] = value
		}
		if err := tx.UpdateDocument(document, updates); err != nil {
			return err
		}
		return tx.SaveHistory(document.ID, &before, document, "Resource plan sent back for revision.")
	})
	if err != nil {
		return nil, err
	}

	notifyDecision(ctx, document, "plan_rejected", "Plan needs revision",
		fmt.Sprintf("Resource plan for %s needs revision.", document.Filename))

	return &PlanResult{Document: document, Plan: plan, Gaps: gaps}, nil
}

// best effort; the approval itself already committed
func notifyDecision(ctx context.Context, document *models.OitDocument, eventType, title, body string) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return
	}
	if _, err := models.CreateNotification(ctx, userId, document.ID, eventType, title, body); err != nil {
		config.LogError(config.GetLogger(), "workflow", "notifyDecision", "creating notification", document.ID, err)
	}
}
