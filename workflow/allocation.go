package workflow

import (
	"context"
	"sort"
	"strings"
	"time"

	"bitbucket.org/paradixe/oit_backend/models"
	"bitbucket.org/paradixe/oit_backend/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("bitbucket.org/paradixe/oit_backend/workflow")

// DefaultSlotDuration is applied when a request carries only a start time.
const DefaultSlotDuration = 2 * time.Hour

// Slot is a half-open execution window [Start, End).
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ResourceRequest asks for a quantity of one resource type, optionally
// narrowed to an exact name. Matching is case-insensitive. An omitted
// quantity means 1; negative quantities fail binding.
type ResourceRequest struct {
	Type     string `json:"type" binding:"required"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity" binding:"omitempty,min=1"`
}

// Assignment is one allocation of a concrete resource to a request.
type Assignment struct {
	ResourceId   int    `json:"resource_id"`
	ResourceName string `json:"resource_name"`
	ResourceType string `json:"resource_type"`
	Quantity     int    `json:"quantity"`
	Slot         *Slot  `json:"slot,omitempty"`
}

// Gap records demand the inventory could not cover.
type Gap struct {
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// Gap reasons.
const (
	GapReasonNoResources  = "no_matching_resources"
	GapReasonInsufficient = "insufficient_quantity"
	GapReasonSlotConflict = "slot_conflict"
)

// Plan is the full allocation answer for one document.
type Plan struct {
	Assignments []Assignment `json:"assignments"`
}

// InventoryStore supplies planner candidates.
type InventoryStore interface {
	QueryResources(ctx context.Context, resourceType string, name string) ([]models.Resource, error)
}

// BookingLedger supplies the live holds on a resource.
type BookingLedger interface {
	ActiveBookings(ctx context.Context, resourceID int) ([]models.Booking, error)
}

// Planner allocates inventory to requests against the booking ledger.
type Planner struct {
	Inventory InventoryStore
	Ledger    BookingLedger
}

type gormInventoryStore struct{}

func (gormInventoryStore) QueryResources(ctx context.Context, resourceType string, name string) ([]models.Resource, error) {
	return models.QueryResources(ctx, resourceType, name)
}

type gormBookingLedger struct{}

func (gormBookingLedger) ActiveBookings(ctx context.Context, resourceID int) ([]models.Booking, error) {
	return models.ActiveBookings(ctx, resourceID)
}

// NewPlanner returns a Planner backed by the database.
func NewPlanner() *Planner {
	return &Planner{Inventory: gormInventoryStore{}, Ledger: gormBookingLedger{}}
}

// NormalizeSlot fills in the default duration when only a start is
// given. Returns nil for a nil or zero slot.
func NormalizeSlot(slot *Slot) *Slot {
	if slot == nil || slot.Start.IsZero() {
		return nil
	}
	normalized := *slot
	if normalized.End.IsZero() {
		normalized.End = normalized.Start.Add(DefaultSlotDuration)
	}
	return &normalized
}

// BuildPlan walks the requests in declaration order and allocates
// greedily. Candidates are ranked available first, then by quantity
// descending. A resource under maintenance never serves; a resource
// with any booking overlapping the slot is excluded whole, regardless
// of its quantity. Remainders become gaps.
func (p *Planner) BuildPlan(ctx context.Context, requests []ResourceRequest, slot *Slot) (Plan, []Gap, error) {
	ctx, span := tracer.Start(ctx, "workflow.BuildPlan")
	defer span.End()
	span.SetAttributes(attribute.Int("requests", len(requests)))

	slot = NormalizeSlot(slot)

	plan := Plan{Assignments: []Assignment{}}
	gaps := []Gap{}

	for _, request := range requests {
		wanted := request.Quantity
		if wanted <= 0 {
			wanted = 1
		}

		candidates, err := p.Inventory.QueryResources(ctx, request.Type, request.Name)
		if err != nil {
			return Plan{}, nil, err
		}

		// available first, then larger pools first
		sort.SliceStable(candidates, func(i, j int) bool {
			ai := candidates[i].Available != nil && *candidates[i].Available
			aj := candidates[j].Available != nil && *candidates[j].Available
			if ai != aj {
				return ai
			}
			return candidates[i].Quantity > candidates[j].Quantity
		})

		remaining := wanted
		conflicts := 0
		for _, candidate := range candidates {
			if remaining == 0 {
				break
			}
			if candidate.Status == models.ResourceStatusMaintenance {
				continue
			}
			available := 0
			if candidate.Available != nil && *candidate.Available {
				available = candidate.Quantity
			}
			if available <= 0 {
				continue
			}

			if slot != nil {
				bookings, err := p.Ledger.ActiveBookings(ctx, candidate.ID)
				if err != nil {
					return Plan{}, nil, err
				}
				conflicted := false
				for _, booking := range bookings {
					if models.Overlaps(booking.StartTime, booking.EndTime, slot.Start, slot.End) {
						conflicted = true
						break
					}
				}
				if conflicted {
					conflicts++
					continue
				}
			}

			take := available
			if take > remaining {
				take = remaining
			}
			plan.Assignments = append(plan.Assignments, Assignment{
				ResourceId:   candidate.ID,
				ResourceName: candidate.Name,
				ResourceType: string(candidate.Type),
				Quantity:     take,
				Slot:         slot,
			})
			remaining -= take
		}

		if remaining > 0 {
			reason := GapReasonInsufficient
			if len(candidates) == 0 {
				reason = GapReasonNoResources
			} else if remaining == wanted && conflicts > 0 {
				reason = GapReasonSlotConflict
			}
			gaps = append(gaps, Gap{
				Type:     strings.ToLower(strings.TrimSpace(request.Type)),
				Name:     strings.TrimSpace(request.Name),
				Quantity: remaining,
				Reason:   reason,
			})
		}
	}

	span.SetAttributes(
		attribute.Int("assignments", len(plan.Assignments)),
		attribute.Int("gaps", len(gaps)),
	)
	return plan, gaps, nil
}

// PendingGapCount counts gap entries with outstanding quantity in a
// serialized gap list.
func PendingGapCount(serializedGaps string) int {
	if strings.TrimSpace(serializedGaps) == "" {
		return 0
	}
	var gaps []Gap
	if err := utils.UnmarshalFromJSON([]byte(serializedGaps), &gaps); err != nil {
		return 0
	}
	count := 0
	for _, gap := range gaps {
		if gap.Quantity > 0 {
			count++
		}
	}
	return count
}
