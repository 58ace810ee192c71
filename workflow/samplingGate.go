package workflow

import (
	"fmt"
	"strings"
	"time"

	"bitbucket.org/paradixe/oit_backend/models"
)

// SamplingStatus is the gate answer the frontend polls.
type SamplingStatus struct {
	CanSample          bool       `json:"can_sample"`
	ExportAvailable    bool       `json:"export_available"`
	FinalReportAllowed bool       `json:"final_report_allowed"`
	PendingGapCount    int        `json:"pending_gap_count"`
	ApprovalStatus     string     `json:"approval_status"`
	ScheduleDate       *time.Time `json:"schedule_date"`
	CompletedAt        *time.Time `json:"completed_at"`
}

// CanSample allows field sampling once the plan is approved, has no
// outstanding gaps, and the scheduled date (if any) has arrived.
func CanSample(document *models.OitDocument, pendingGaps int, now time.Time) bool {
	if document.ApprovalStatus != models.ApprovalStatusApproved {
		return false
	}
	if pendingGaps > 0 {
		return false
	}
	if document.ApprovedScheduleDate != nil && now.Before(*document.ApprovedScheduleDate) {
		return false
	}
	return true
}

// ExportAvailable allows downloading the sampling workbook once it
// exists and any download hold has passed.
func ExportAvailable(document *models.OitDocument, now time.Time) bool {
	if document.SamplingExportPath == "" {
		return false
	}
	if document.SamplingDownloadDate != nil && now.Before(*document.SamplingDownloadDate) {
		return false
	}
	return true
}

// FinalReportAllowed requires the lab analysis upload.
func FinalReportAllowed(document *models.OitDocument) bool {
	return document.AnalysisUploadedAt != nil
}

// EvaluateSamplingGate computes the whole gate from persisted metadata
// and an injected clock.
func EvaluateSamplingGate(document *models.OitDocument, now func() time.Time) SamplingStatus {
	pendingGaps := PendingGapCount(document.ResourceGaps)
	t := now()
	return SamplingStatus{
		CanSample:          CanSample(document, pendingGaps, t),
		ExportAvailable:    ExportAvailable(document, t),
		FinalReportAllowed: FinalReportAllowed(document),
		PendingGapCount:    pendingGaps,
		ApprovalStatus:     string(document.ApprovalStatus),
		ScheduleDate:       document.ApprovedScheduleDate,
		CompletedAt:        document.SamplingCompletedAt,
	}
}

// RenderFinalReport produces the plain-text closing report. Callers
// must check FinalReportAllowed first.
func RenderFinalReport(document *models.OitDocument, records []models.SamplingRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "INFORME FINAL OIT\n")
	fmt.Fprintf(&b, "=================\n\n")
	fmt.Fprintf(&b, "Documento: %s\n", document.OriginalName)
	fmt.Fprintf(&b, "Archivo: %s\n", document.Filename)
	fmt.Fprintf(&b, "Estado de revision: %s\n", document.Status)
	fmt.Fprintf(&b, "Estado de aprobacion: %s\n", document.ApprovalStatus)
	if document.ApprovedScheduleDate != nil {
		fmt.Fprintf(&b, "Fecha programada: %s\n", document.ApprovedScheduleDate.Format("2006-01-02"))
	}
	if document.Summary != "" {
		fmt.Fprintf(&b, "\nResumen:\n%s\n", document.Summary)
	}

	if alerts := models.UnmarshalStringList(document.Alerts); len(alerts) > 0 {
		fmt.Fprintf(&b, "\nAlertas:\n")
		for _, alert := range alerts {
			fmt.Fprintf(&b, "  - %s\n", alert)
		}
	}
	if missing := models.UnmarshalStringList(document.Missing); len(missing) > 0 {
		fmt.Fprintf(&b, "\nFaltantes:\n")
		for _, item := range missing {
			fmt.Fprintf(&b, "  - %s\n", item)
		}
	}

	fmt.Fprintf(&b, "\nMuestreo:\n")
	if document.SamplingCompletedAt != nil {
		fmt.Fprintf(&b, "Completado: %s\n", document.SamplingCompletedAt.Format(time.RFC3339))
	}
	for _, record := range records {
		unit := record.Unit
		if unit != "" {
			unit = " " + unit
		}
		fmt.Fprintf(&b, "  %s: %s%s\n", record.Parameter, record.Value.String(), unit)
	}

	if document.AnalysisUploadedAt != nil {
		fmt.Fprintf(&b, "\nAnalisis de laboratorio recibido: %s\n", document.AnalysisUploadedAt.Format(time.RFC3339))
	}

	return b.String()
}
