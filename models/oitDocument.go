package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/paradixe/oit_backend/config"
	"bitbucket.org/paradixe/oit_backend/utils"
	"gorm.io/gorm"
)

// OitDocument is one inspection document moving through the lifecycle:
// upload, automated review, resource planning, approval, sampling,
// final report.
type OitDocument struct {
	ID           int          `gorm:"primary_key" json:"id"`
	Filename     string       `gorm:"size:255;not null" json:"filename"`
	OriginalName string       `gorm:"size:255" json:"original_name"`
	ObjectKey    string       `gorm:"size:500" json:"object_key"`
	Status       ReviewStatus `gorm:"type:enum('check','alerta','error');not null;default:check;index" json:"status"`
	Summary      string       `gorm:"type:text" json:"summary"`

	// review output, serialized JSON arrays
	Alerts   string `gorm:"type:text" json:"alerts"`
	Missing  string `gorm:"type:text" json:"missing"`
	Evidence string `gorm:"type:text" json:"evidence"`

	ComplianceBundlePath string `gorm:"size:500" json:"compliance_bundle_path"`
	ComplianceReportPath string `gorm:"size:500" json:"compliance_report_path"`

	// planning & approval
	ApprovalStatus       ApprovalStatus `gorm:"type:enum('pending','approved','needs_revision');not null;default:pending;index" json:"approval_status"`
	ApprovedScheduleDate *time.Time     `json:"approved_schedule_date"`
	ResourcePlan         string         `gorm:"type:text" json:"resource_plan"`
	ResourceGaps         string         `gorm:"type:text" json:"resource_gaps"`
	ApprovalNotes        string         `gorm:"type:text" json:"approval_notes"`
	ReviewNotes          string         `gorm:"type:text" json:"review_notes"`

	// sampling & reporting
	SamplingCompletedAt  *time.Time `json:"sampling_completed_at"`
	SamplingExportPath   string     `gorm:"size:500" json:"sampling_export_path"`
	SamplingDownloadDate *time.Time `json:"sampling_download_date"`
	AnalysisPath         string     `gorm:"size:500" json:"analysis_path"`
	AnalysisUploadedAt   *time.Time `json:"analysis_uploaded_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOitDocument struct {
	Filename     string       `json:"filename" binding:"required"`
	OriginalName string       `json:"original_name"`
	ObjectKey    string       `json:"object_key"`
	Status       ReviewStatus `json:"status"`
	Summary      string       `json:"summary"`
	Alerts       []string     `json:"alerts"`
	Missing      []string     `json:"missing"`
	Evidence     []string     `json:"evidence"`
}

func marshalStringList(items []string) string {
	if items == nil {
		items = []string{}
	}
	s, err := utils.MarshalToJSON(items)
	if err != nil {
		return "[]"
	}
	return s
}

// UnmarshalStringList decodes a serialized JSON array column; bad or
// empty data yields an empty list.
func UnmarshalStringList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	var items []string
	if err := utils.UnmarshalFromJSON([]byte(raw), &items); err != nil {
		return []string{}
	}
	return items
}

func CreateOitDocument(ctx context.Context, input *NewOitDocument) (*OitDocument, error) {

	if input.Status == "" {
		input.Status = ReviewStatusCheck
	}

	document := OitDocument{
		Filename:       input.Filename,
		OriginalName:   input.OriginalName,
		ObjectKey:      input.ObjectKey,
		Status:         input.Status,
		Summary:        input.Summary,
		Alerts:         marshalStringList(input.Alerts),
		Missing:        marshalStringList(input.Missing),
		Evidence:       marshalStringList(input.Evidence),
		ApprovalStatus: ApprovalStatusPending,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&document).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, document.ID, "oit_documents", &document, "Document uploaded.")
	})
	if err != nil {
		return nil, err
	}
	return &document, nil
}

func GetOitDocument(ctx context.Context, id int) (*OitDocument, error) {
	return utils.FetchSingleModel[OitDocument](ctx, id)
}

func ListOitDocuments(ctx context.Context, status *string, approvalStatus *string) ([]*OitDocument, error) {

	db := config.GetDB()
	var results []*OitDocument

	dbCtx := db.WithContext(ctx)
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if approvalStatus != nil && *approvalStatus != "" {
		dbCtx = dbCtx.Where("approval_status = ?", *approvalStatus)
	}
	err := dbCtx.Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func DeleteOitDocument(ctx context.Context, id int) (*OitDocument, error) {

	db := config.GetDB()
	result, err := utils.FetchSingleModel[OitDocument](ctx, id)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&Booking{}).
		Where("oit_document_id = ? AND status = ?", id, BookingStatusBooked).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("document has active bookings")
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&result).Error; err != nil {
			return err
		}
		return SaveHistoryDelete(tx, result.ID, "oit_documents", result, "Document deleted.")
	})
	if err != nil {
		return nil, err
	}

	result.purgeStoredArtifacts(ctx)
	return result, nil
}

// purgeStoredArtifacts removes the stored objects tied to a deleted
// document. Best effort; the row is already gone.
func (document *OitDocument) purgeStoredArtifacts(ctx context.Context) {
	keys := []string{document.ObjectKey}
	if document.SamplingExportPath != "" {
		keys = append(keys, fmt.Sprintf("oit/%d/sampling.xlsx", document.ID))
	}
	if document.ComplianceBundlePath != "" || document.ComplianceReportPath != "" {
		keys = append(keys,
			fmt.Sprintf("oit/%d/compliance-readme.md", document.ID),
			fmt.Sprintf("oit/%d/compliance-report.txt", document.ID))
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := utils.DeleteObject(ctx, key); err != nil {
			config.LogError(config.GetLogger(), "models", "DeleteOitDocument", "removing stored artifact", key, err)
		}
	}
}

// UpdateReview persists a fresh automated review verdict.
func (document *OitDocument) UpdateReview(ctx context.Context, status ReviewStatus, summary string, alerts, missing, evidence []string) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(document).Updates(map[string]interface{}{
		"Status":   status,
		"Summary":  summary,
		"Alerts":   marshalStringList(alerts),
		"Missing":  marshalStringList(missing),
		"Evidence": marshalStringList(evidence),
	}).Error
}

// UpdateCompliancePaths records where the compliance artifacts were
// written. Blank values are kept blank (write failures are tolerated).
func (document *OitDocument) UpdateCompliancePaths(ctx context.Context, bundlePath, reportPath string) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(document).Updates(map[string]interface{}{
		"ComplianceBundlePath": bundlePath,
		"ComplianceReportPath": reportPath,
	}).Error
}
