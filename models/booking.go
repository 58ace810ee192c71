package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/paradixe/oit_backend/config"
	"gorm.io/gorm"
)

// Booking is one time-windowed hold on a resource. Windows are
// half-open [start, end). The ledger is append-only: rows are
// cancelled, never deleted.
type Booking struct {
	ID            int           `gorm:"primary_key" json:"id"`
	ResourceId    int           `gorm:"index;not null" json:"resource_id"`
	OitDocumentId int           `gorm:"index" json:"oit_document_id"`
	Status        BookingStatus `gorm:"type:enum('booked','maintenance','cancelled');not null;default:booked;index" json:"status"`
	StartTime     time.Time     `gorm:"not null" json:"start_time"`
	EndTime       time.Time     `gorm:"not null" json:"end_time"`
	AllocatedQty  int           `gorm:"not null;default:1" json:"allocated_qty"`
	CreatedAt     time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

// Overlaps reports whether two half-open windows intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func (b *Booking) validate() error {
	if !b.EndTime.After(b.StartTime) {
		return errors.New("booking end must be after start")
	}
	if b.AllocatedQty <= 0 {
		return errors.New("allocated quantity must be positive")
	}
	return nil
}

// QueryBookings returns the ledger rows for one resource in the given
// statuses, oldest first.
func QueryBookings(ctx context.Context, resourceID int, statuses []BookingStatus) ([]Booking, error) {
	db := config.GetDB()
	var results []Booking

	dbCtx := db.WithContext(ctx).Where("resource_id = ?", resourceID)
	if len(statuses) > 0 {
		dbCtx = dbCtx.Where("status IN ?", statuses)
	}
	if err := dbCtx.Order("start_time").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ActiveBookings returns non-cancelled rows for one resource.
func ActiveBookings(ctx context.Context, resourceID int) ([]Booking, error) {
	return QueryBookings(ctx, resourceID, []BookingStatus{BookingStatusBooked, BookingStatusMaintenance})
}

// InsertBooking appends a row inside the caller's transaction.
func InsertBooking(tx *gorm.DB, booking *Booking) error {
	if err := booking.validate(); err != nil {
		return err
	}
	if booking.Status == "" {
		booking.Status = BookingStatusBooked
	}
	return tx.Create(booking).Error
}

// HasOverlappingBooking checks the ledger inside the caller's
// transaction for any non-cancelled row crossing the window.
func HasOverlappingBooking(tx *gorm.DB, resourceID int, start, end time.Time) (bool, error) {
	var count int64
	err := tx.Model(&Booking{}).
		Where("resource_id = ? AND status <> ?", resourceID, BookingStatusCancelled).
		Where("start_time < ? AND ? < end_time", end, start).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CancelBookingsForDocument flips a document's booked rows to
// cancelled. Used when an approved plan is rebuilt.
func CancelBookingsForDocument(tx *gorm.DB, documentID int) error {
	return tx.Model(&Booking{}).
		Where("oit_document_id = ? AND status = ?", documentID, BookingStatusBooked).
		Update("status", BookingStatusCancelled).Error
}

// ListBookingsForDocument returns every row a document's plan created.
func ListBookingsForDocument(ctx context.Context, documentID int) ([]Booking, error) {
	db := config.GetDB()
	var results []Booking
	err := db.WithContext(ctx).
		Where("oit_document_id = ?", documentID).
		Order("start_time").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
