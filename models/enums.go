package models

// ResourceType classifies inventory entries.
type ResourceType string

const (
	ResourceTypeVehiculo ResourceType = "vehiculo"
	ResourceTypeEquipo   ResourceType = "equipo"
	ResourceTypePersonal ResourceType = "personal"
	ResourceTypeInsumo   ResourceType = "insumo"
)

func (t ResourceType) IsValid() bool {
	switch t {
	case ResourceTypeVehiculo, ResourceTypeEquipo, ResourceTypePersonal, ResourceTypeInsumo:
		return true
	}
	return false
}

// ResourceStatus is the operational state of a resource.
type ResourceStatus string

const (
	ResourceStatusAvailable   ResourceStatus = "available"
	ResourceStatusMaintenance ResourceStatus = "maintenance"
)

func (s ResourceStatus) IsValid() bool {
	return s == ResourceStatusAvailable || s == ResourceStatusMaintenance
}

// BookingStatus is the state of a ledger row. Rows are never deleted;
// cancellation flips the status.
type BookingStatus string

const (
	BookingStatusBooked      BookingStatus = "booked"
	BookingStatusMaintenance BookingStatus = "maintenance"
	BookingStatusCancelled   BookingStatus = "cancelled"
)

// ReviewStatus is the automated review verdict of a document.
type ReviewStatus string

const (
	ReviewStatusCheck  ReviewStatus = "check"
	ReviewStatusAlerta ReviewStatus = "alerta"
	ReviewStatusError  ReviewStatus = "error"
)

// ApprovalStatus is the human approval state of a document's plan.
type ApprovalStatus string

const (
	ApprovalStatusPending       ApprovalStatus = "pending"
	ApprovalStatusApproved      ApprovalStatus = "approved"
	ApprovalStatusNeedsRevision ApprovalStatus = "needs_revision"
)

// UserRole controls endpoint access.
type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"
	UserRoleInspector UserRole = "inspector"
)
