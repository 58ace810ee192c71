package workflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"bitbucket.org/paradixe/oit_backend/models"
	"bitbucket.org/paradixe/oit_backend/utils"
)

type fakeInventory struct {
	resources []models.Resource
}

func (f *fakeInventory) QueryResources(_ context.Context, resourceType string, name string) ([]models.Resource, error) {
	var results []models.Resource
	for _, resource := range f.resources {
		if !strings.EqualFold(string(resource.Type), strings.TrimSpace(resourceType)) {
			continue
		}
		if name != "" && !strings.EqualFold(resource.Name, strings.TrimSpace(name)) {
			continue
		}
		results = append(results, resource)
	}
	return results, nil
}

type fakeLedger struct {
	bookings map[int][]models.Booking
}

func (f *fakeLedger) ActiveBookings(_ context.Context, resourceID int) ([]models.Booking, error) {
	return f.bookings[resourceID], nil
}

func newTestPlanner(resources []models.Resource, bookings map[int][]models.Booking) *Planner {
	if bookings == nil {
		bookings = map[int][]models.Booking{}
	}
	return &Planner{
		Inventory: &fakeInventory{resources: resources},
		Ledger:    &fakeLedger{bookings: bookings},
	}
}

func resource(id int, name string, rtype models.ResourceType, qty int, available bool, status models.ResourceStatus) models.Resource {
	return models.Resource{
		ID:        id,
		Name:      name,
		Type:      rtype,
		Quantity:  qty,
		Available: &available,
		Status:    status,
	}
}

func slotAt(day time.Time, fromHour, toHour int) *Slot {
	return &Slot{
		Start: day.Add(time.Duration(fromHour) * time.Hour),
		End:   day.Add(time.Duration(toHour) * time.Hour),
	}
}

var day = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func TestBuildPlanAllocatesAndReportsGap(t *testing.T) {
	planner := newTestPlanner([]models.Resource{
		resource(1, "Camioneta Norte", models.ResourceTypeVehiculo, 2, true, models.ResourceStatusAvailable),
	}, nil)

	plan, gaps, err := planner.BuildPlan(context.Background(),
		[]ResourceRequest{{Type: "vehiculo", Quantity: 3}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(plan.Assignments) != 1 {
		t.Fatalf("got %d assignments, want 1", len(plan.Assignments))
	}
	if plan.Assignments[0].Quantity != 2 {
		t.Errorf("allocated %d, want 2", plan.Assignments[0].Quantity)
	}
	if len(gaps) != 1 {
		t.Fatalf("got %d gaps, want 1", len(gaps))
	}
	if gaps[0].Quantity != 1 || gaps[0].Reason != GapReasonInsufficient {
		t.Errorf("unexpected gap: %+v", gaps[0])
	}
}

func TestBuildPlanSpansMultipleResources(t *testing.T) {
	planner := newTestPlanner([]models.Resource{
		resource(1, "Bomba A", models.ResourceTypeEquipo, 1, true, models.ResourceStatusAvailable),
		resource(2, "Bomba B", models.ResourceTypeEquipo, 3, true, models.ResourceStatusAvailable),
	}, nil)

	plan, gaps, err := planner.BuildPlan(context.Background(),
		[]ResourceRequest{{Type: "equipo", Quantity: 4}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(gaps) != 0 {
		t.Fatalf("unexpected gaps: %+v", gaps)
	}
	if len(plan.Assignments) != 2 {
		t.Fatalf("got %d assignments, want 2", len(plan.Assignments))
	}
	// bigger pool first
	if plan.Assignments[0].ResourceId != 2 || plan.Assignments[0].Quantity != 3 {
		t.Errorf("first assignment: %+v", plan.Assignments[0])
	}
	if plan.Assignments[1].ResourceId != 1 || plan.Assignments[1].Quantity != 1 {
		t.Errorf("second assignment: %+v", plan.Assignments[1])
	}
}

func TestBuildPlanSkipsMaintenanceAndUnavailable(t *testing.T) {
	planner := newTestPlanner([]models.Resource{
		resource(1, "Bomba rota", models.ResourceTypeEquipo, 10, true, models.ResourceStatusMaintenance),
		resource(2, "Bomba apartada", models.ResourceTypeEquipo, 10, false, models.ResourceStatusAvailable),
		resource(3, "Bomba lista", models.ResourceTypeEquipo, 1, true, models.ResourceStatusAvailable),
	}, nil)

	plan, gaps, err := planner.BuildPlan(context.Background(),
		[]ResourceRequest{{Type: "equipo", Quantity: 2}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(plan.Assignments) != 1 || plan.Assignments[0].ResourceId != 3 {
		t.Fatalf("unexpected assignments: %+v", plan.Assignments)
	}
	if len(gaps) != 1 || gaps[0].Quantity != 1 {
		t.Fatalf("unexpected gaps: %+v", gaps)
	}
}

func TestBuildPlanExcludesWholeResourceOnOverlap(t *testing.T) {
	planner := newTestPlanner([]models.Resource{
		resource(1, "Camioneta", models.ResourceTypeVehiculo, 5, true, models.ResourceStatusAvailable),
	}, map[int][]models.Booking{
		1: {{ResourceId: 1, Status: models.BookingStatusBooked,
			StartTime: day.Add(9 * time.Hour), EndTime: day.Add(11 * time.Hour)}},
	})

	plan, gaps, err := planner.BuildPlan(context.Background(),
		[]ResourceRequest{{Type: "vehiculo", Quantity: 1}}, slotAt(day, 10, 12))
	if err != nil {
		t.Fatal(err)
	}

	if len(plan.Assignments) != 0 {
		t.Fatalf("conflicted resource was allocated: %+v", plan.Assignments)
	}
	if len(gaps) != 1 || gaps[0].Reason != GapReasonSlotConflict {
		t.Fatalf("unexpected gaps: %+v", gaps)
	}
}

func TestBuildPlanAllowsTouchingWindows(t *testing.T) {
	planner := newTestPlanner([]models.Resource{
		resource(1, "Camioneta", models.ResourceTypeVehiculo, 1, true, models.ResourceStatusAvailable),
	}, map[int][]models.Booking{
		1: {{ResourceId: 1, Status: models.BookingStatusBooked,
			StartTime: day.Add(8 * time.Hour), EndTime: day.Add(10 * time.Hour)}},
	})

	plan, gaps, err := planner.BuildPlan(context.Background(),
		[]ResourceRequest{{Type: "vehiculo", Quantity: 1}}, slotAt(day, 10, 12))
	if err != nil {
		t.Fatal(err)
	}

	if len(gaps) != 0 {
		t.Fatalf("touching window reported as conflict: %+v", gaps)
	}
	if len(plan.Assignments) != 1 {
		t.Fatalf("got %d assignments, want 1", len(plan.Assignments))
	}
}

func TestBuildPlanCaseInsensitiveTypeAndName(t *testing.T) {
	planner := newTestPlanner([]models.Resource{
		resource(1, "Camioneta Norte", models.ResourceTypeVehiculo, 1, true, models.ResourceStatusAvailable),
	}, nil)

	plan, gaps, err := planner.BuildPlan(context.Background(),
		[]ResourceRequest{{Type: "VEHICULO", Name: "CAMIONETA norte", Quantity: 1}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(gaps) != 0 || len(plan.Assignments) != 1 {
		t.Fatalf("case-insensitive match failed: plan=%+v gaps=%+v", plan, gaps)
	}
}

func TestBuildPlanNameMatchIsExact(t *testing.T) {
	planner := newTestPlanner([]models.Resource{
		resource(1, "Camioneta Norte", models.ResourceTypeVehiculo, 1, true, models.ResourceStatusAvailable),
	}, nil)

	// a partial name must not pick up a resource
	plan, gaps, err := planner.BuildPlan(context.Background(),
		[]ResourceRequest{{Type: "vehiculo", Name: "Norte", Quantity: 1}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Assignments) != 0 {
		t.Fatalf("partial name matched: %+v", plan.Assignments)
	}
	if len(gaps) != 1 || gaps[0].Reason != GapReasonNoResources {
		t.Fatalf("unexpected gaps: %+v", gaps)
	}
}

func TestBuildPlanUnknownTypeGap(t *testing.T) {
	planner := newTestPlanner(nil, nil)

	plan, gaps, err := planner.BuildPlan(context.Background(),
		[]ResourceRequest{{Type: "vehiculo", Quantity: 2}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Assignments) != 0 {
		t.Fatalf("unexpected assignments: %+v", plan.Assignments)
	}
	if len(gaps) != 1 || gaps[0].Reason != GapReasonNoResources || gaps[0].Quantity != 2 {
		t.Fatalf("unexpected gaps: %+v", gaps)
	}
}

func TestBuildPlanZeroRequests(t *testing.T) {
	planner := newTestPlanner([]models.Resource{
		resource(1, "Camioneta", models.ResourceTypeVehiculo, 1, true, models.ResourceStatusAvailable),
	}, nil)

	plan, gaps, err := planner.BuildPlan(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Assignments) != 0 || len(gaps) != 0 {
		t.Fatalf("empty request set produced output: plan=%+v gaps=%+v", plan, gaps)
	}
}

func TestBuildPlanDefaultsQuantityToOne(t *testing.T) {
	planner := newTestPlanner([]models.Resource{
		resource(1, "Camioneta", models.ResourceTypeVehiculo, 3, true, models.ResourceStatusAvailable),
	}, nil)

	plan, gaps, err := planner.BuildPlan(context.Background(),
		[]ResourceRequest{{Type: "vehiculo"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(gaps) != 0 || len(plan.Assignments) != 1 || plan.Assignments[0].Quantity != 1 {
		t.Fatalf("quantity default not applied: plan=%+v gaps=%+v", plan, gaps)
	}
}

func TestNormalizeSlotDefaultDuration(t *testing.T) {
	start := day.Add(9 * time.Hour)

	normalized := NormalizeSlot(&Slot{Start: start})
	if normalized == nil {
		t.Fatal("normalized slot is nil")
	}
	if !normalized.End.Equal(start.Add(DefaultSlotDuration)) {
		t.Errorf("end = %v, want %v", normalized.End, start.Add(DefaultSlotDuration))
	}

	if NormalizeSlot(nil) != nil {
		t.Error("nil slot should stay nil")
	}
	if NormalizeSlot(&Slot{}) != nil {
		t.Error("zero slot should normalize to nil")
	}

	full := &Slot{Start: start, End: start.Add(time.Hour)}
	if got := NormalizeSlot(full); !got.End.Equal(full.End) {
		t.Errorf("explicit end was overwritten: %v", got.End)
	}
}

func TestPendingGapCount(t *testing.T) {
	gapsJSON, err := utils.MarshalToJSON([]Gap{
		{Type: "vehiculo", Quantity: 2, Reason: GapReasonInsufficient},
		{Type: "equipo", Quantity: 0, Reason: GapReasonInsufficient},
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := PendingGapCount(gapsJSON); got != 1 {
		t.Errorf("PendingGapCount = %d, want 1", got)
	}
	if got := PendingGapCount(""); got != 0 {
		t.Errorf("PendingGapCount(empty) = %d, want 0", got)
	}
	if got := PendingGapCount("not json"); got != 0 {
		t.Errorf("PendingGapCount(garbage) = %d, want 0", got)
	}
}
