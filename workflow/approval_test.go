package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/paradixe/oit_backend/models"
	"bitbucket.org/paradixe/oit_backend/utils"
)

type memoryPlanStore struct {
	document     *models.OitDocument
	bookings     []models.Booking
	conflicts    map[int]bool
	histories    []string
	transactions int
}

func (s *memoryPlanStore) GetDocument(_ context.Context, id int) (*models.OitDocument, error) {
	if s.document == nil || s.document.ID != id {
		return nil, utils.ErrorRecordNotFound
	}
	return s.document, nil
}

func (s *memoryPlanStore) Transact(_ context.Context, fn func(tx PlanTx) error) error {
	s.transactions++
	snapshot := *s.document
	bookingCount := len(s.bookings)
	if err := fn(&memoryPlanTx{store: s}); err != nil {
		*s.document = snapshot
		s.bookings = s.bookings[:bookingCount]
		return err
	}
	return nil
}

type memoryPlanTx struct {
	store *memoryPlanStore
}

func (t *memoryPlanTx) HasOverlappingBooking(resourceID int, _, _ time.Time) (bool, error) {
	return t.store.conflicts[resourceID], nil
}

func (t *memoryPlanTx) InsertBooking(booking *models.Booking) error {
	t.store.bookings = append(t.store.bookings, *booking)
	return nil
}

func (t *memoryPlanTx) CancelBookings(documentID int) error {
	for i := range t.store.bookings {
		if t.store.bookings[i].OitDocumentId == documentID &&
			t.store.bookings[i].Status != models.BookingStatusCancelled {
			t.store.bookings[i].Status = models.BookingStatusCancelled
		}
	}
	return nil
}

func (t *memoryPlanTx) UpdateDocument(document *models.OitDocument, updates map[string]interface{}) error {
	for field, value := range updates {
		switch field {
		case "ApprovalStatus":
			document.ApprovalStatus = value.(models.ApprovalStatus)
		case "ApprovedScheduleDate":
			if value == nil {
				document.ApprovedScheduleDate = nil
			} else {
				document.ApprovedScheduleDate = value.(*time.Time)
			}
		case "ApprovalNotes":
			document.ApprovalNotes = value.(string)
		case "ReviewNotes":
			document.ReviewNotes = value.(string)
		case "ResourcePlan":
			document.ResourcePlan = value.(string)
		case "ResourceGaps":
			document.ResourceGaps = value.(string)
		}
	}
	return nil
}

func (t *memoryPlanTx) SaveHistory(_ int, _, _ *models.OitDocument, description string) error {
	t.store.histories = append(t.store.histories, description)
	return nil
}

func storedDocument(t *testing.T, plan Plan, gaps []Gap) *models.OitDocument {
	t.Helper()
	planJSON, err := utils.MarshalToJSON(plan)
	if err != nil {
		t.Fatal(err)
	}
	gapsJSON, err := utils.MarshalToJSON(gaps)
	if err != nil {
		t.Fatal(err)
	}
	return &models.OitDocument{
		ID:             1,
		Filename:       "oit-acme.pdf",
		ApprovalStatus: models.ApprovalStatusPending,
		ResourcePlan:   planJSON,
		ResourceGaps:   gapsJSON,
	}
}

func TestConfirmPlanRejectsApprovalWithGaps(t *testing.T) {
	store := &memoryPlanStore{
		document: storedDocument(t, Plan{Assignments: []Assignment{}}, []Gap{
			{Type: "vehiculo", Quantity: 2, Reason: GapReasonInsufficient},
		}),
	}

	_, err := confirmPlan(context.Background(), store, 1, ConfirmInput{Approved: true})
	if !errors.Is(err, ErrPlanHasGaps) {
		t.Fatalf("err = %v, want ErrPlanHasGaps", err)
	}
	if store.transactions != 0 {
		t.Errorf("gap rejection opened %d transactions, want 0", store.transactions)
	}
	if store.document.ApprovalStatus != models.ApprovalStatusPending {
		t.Errorf("status mutated to %s", store.document.ApprovalStatus)
	}
	if len(store.bookings) != 0 {
		t.Errorf("bookings written: %+v", store.bookings)
	}
}

func TestConfirmPlanCommitsOneBookingPerAssignment(t *testing.T) {
	slot := slotAt(day, 9, 11)
	store := &memoryPlanStore{
		document: storedDocument(t, Plan{Assignments: []Assignment{
			{ResourceId: 1, ResourceName: "Camioneta", ResourceType: "vehiculo", Quantity: 2, Slot: slot},
			{ResourceId: 2, ResourceName: "Bomba", ResourceType: "equipo", Quantity: 0, Slot: slot},
			{ResourceId: 3, ResourceName: "Inspector", ResourceType: "personal", Quantity: 1},
		}}, []Gap{}),
	}

	schedule := day.Add(9 * time.Hour)
	result, err := confirmPlan(context.Background(), store, 1, ConfirmInput{
		Approved:     true,
		ScheduleDate: &schedule,
		Notes:        "confirmado",
	})
	if err != nil {
		t.Fatal(err)
	}

	// only the assignment with both a positive quantity and a window
	// produces a ledger row
	if len(store.bookings) != 1 {
		t.Fatalf("got %d bookings, want 1: %+v", len(store.bookings), store.bookings)
	}
	booking := store.bookings[0]
	if booking.ResourceId != 1 || booking.OitDocumentId != 1 || booking.AllocatedQty != 2 {
		t.Errorf("unexpected booking: %+v", booking)
	}
	if booking.Status != models.BookingStatusBooked {
		t.Errorf("booking status = %s, want %s", booking.Status, models.BookingStatusBooked)
	}
	if !booking.StartTime.Equal(slot.Start) || !booking.EndTime.Equal(slot.End) {
		t.Errorf("booking window = [%v, %v), want [%v, %v)", booking.StartTime, booking.EndTime, slot.Start, slot.End)
	}

	if result.Document.ApprovalStatus != models.ApprovalStatusApproved {
		t.Errorf("status = %s, want approved", result.Document.ApprovalStatus)
	}
	if result.Document.ApprovedScheduleDate == nil || !result.Document.ApprovedScheduleDate.Equal(schedule) {
		t.Errorf("schedule date = %v, want %v", result.Document.ApprovedScheduleDate, schedule)
	}
	if result.Document.ApprovalNotes != "confirmado" {
		t.Errorf("notes = %q", result.Document.ApprovalNotes)
	}
}

func TestConfirmPlanDetectsLateConflict(t *testing.T) {
	slot := slotAt(day, 9, 11)
	store := &memoryPlanStore{
		document: storedDocument(t, Plan{Assignments: []Assignment{
			{ResourceId: 1, ResourceName: "Camioneta", ResourceType: "vehiculo", Quantity: 1, Slot: slot},
		}}, []Gap{}),
		conflicts: map[int]bool{1: true},
	}

	_, err := confirmPlan(context.Background(), store, 1, ConfirmInput{Approved: true})
	if !errors.Is(err, ErrBookingConflict) {
		t.Fatalf("err = %v, want ErrBookingConflict", err)
	}
	// the whole commit rolls back
	if len(store.bookings) != 0 {
		t.Errorf("bookings survived rollback: %+v", store.bookings)
	}
	if store.document.ApprovalStatus != models.ApprovalStatusPending {
		t.Errorf("status = %s, want pending", store.document.ApprovalStatus)
	}
}

func TestConfirmPlanRejectionClearsSchedule(t *testing.T) {
	slot := slotAt(day, 9, 11)
	document := storedDocument(t, Plan{Assignments: []Assignment{
		{ResourceId: 1, ResourceName: "Camioneta", ResourceType: "vehiculo", Quantity: 1, Slot: slot},
	}}, []Gap{})
	schedule := day.Add(9 * time.Hour)
	document.ApprovedScheduleDate = &schedule
	store := &memoryPlanStore{document: document}

	result, err := confirmPlan(context.Background(), store, 1, ConfirmInput{
		Approved: false,
		Notes:    "falta evidencia de calibracion",
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.Document.ApprovalStatus != models.ApprovalStatusNeedsRevision {
		t.Errorf("status = %s, want needs_revision", result.Document.ApprovalStatus)
	}
	if result.Document.ApprovedScheduleDate != nil {
		t.Errorf("schedule date not cleared: %v", result.Document.ApprovedScheduleDate)
	}
	if result.Document.ReviewNotes != "falta evidencia de calibracion" {
		t.Errorf("review notes = %q", result.Document.ReviewNotes)
	}
	if len(store.bookings) != 0 {
		t.Errorf("rejection wrote bookings: %+v", store.bookings)
	}
}

func TestConfirmPlanGapOverrideWaivesGaps(t *testing.T) {
	store := &memoryPlanStore{
		document: storedDocument(t, Plan{Assignments: []Assignment{}}, []Gap{
			{Type: "insumo", Quantity: 1, Reason: GapReasonInsufficient},
		}),
	}

	waived := []Gap{}
	result, err := confirmPlan(context.Background(), store, 1, ConfirmInput{
		Approved:     true,
		GapsOverride: &waived,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Document.ApprovalStatus != models.ApprovalStatusApproved {
		t.Errorf("status = %s, want approved", result.Document.ApprovalStatus)
	}
	if result.Document.ResourceGaps != "[]" {
		t.Errorf("stored gaps = %q, want []", result.Document.ResourceGaps)
	}
}

func TestConfirmPlanUnknownDocument(t *testing.T) {
	store := &memoryPlanStore{}

	_, err := confirmPlan(context.Background(), store, 42, ConfirmInput{Approved: true})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("err = %v, want record not found", err)
	}
}

func TestPlanResourcesResetsToPending(t *testing.T) {
	slot := slotAt(day, 9, 11)
	document := storedDocument(t, Plan{Assignments: []Assignment{}}, []Gap{})
	document.ApprovalStatus = models.ApprovalStatusApproved
	schedule := day.Add(9 * time.Hour)
	document.ApprovedScheduleDate = &schedule

	store := &memoryPlanStore{
		document: document,
		bookings: []models.Booking{
			{ResourceId: 1, OitDocumentId: 1, Status: models.BookingStatusBooked,
				StartTime: slot.Start, EndTime: slot.End, AllocatedQty: 1},
		},
	}
	planner := newTestPlanner([]models.Resource{
		resource(1, "Camioneta", models.ResourceTypeVehiculo, 2, true, models.ResourceStatusAvailable),
	}, nil)

	result, err := planResources(context.Background(), store, planner, 1,
		[]ResourceRequest{{Type: "vehiculo", Quantity: 2}}, slot, "replanificado")
	if err != nil {
		t.Fatal(err)
	}

	if result.Document.ApprovalStatus != models.ApprovalStatusPending {
		t.Errorf("status = %s, want pending", result.Document.ApprovalStatus)
	}
	if result.Document.ApprovedScheduleDate != nil {
		t.Errorf("schedule date not cleared: %v", result.Document.ApprovedScheduleDate)
	}
	if store.bookings[0].Status != models.BookingStatusCancelled {
		t.Errorf("earlier booking not cancelled: %+v", store.bookings[0])
	}
	if len(result.Plan.Assignments) != 1 || result.Plan.Assignments[0].Quantity != 2 {
		t.Errorf("unexpected plan: %+v", result.Plan)
	}

	var stored Plan
	if err := utils.UnmarshalFromJSON([]byte(result.Document.ResourcePlan), &stored); err != nil {
		t.Fatal(err)
	}
	if len(stored.Assignments) != 1 {
		t.Errorf("persisted plan: %+v", stored)
	}
	if len(store.histories) != 1 {
		t.Errorf("history entries = %d, want 1", len(store.histories))
	}
}
