package workflow

import (
	"testing"
	"time"

	"bitbucket.org/paradixe/oit_backend/models"
	"bitbucket.org/paradixe/oit_backend/utils"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func approvedDocument() *models.OitDocument {
	return &models.OitDocument{
		ID:             1,
		Filename:       "oit-001.pdf",
		ApprovalStatus: models.ApprovalStatusApproved,
		ResourceGaps:   "[]",
	}
}

func TestCanSampleRequiresApproval(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	document := approvedDocument()
	if !CanSample(document, 0, now) {
		t.Error("approved document without gaps should allow sampling")
	}

	document.ApprovalStatus = models.ApprovalStatusPending
	if CanSample(document, 0, now) {
		t.Error("pending document allowed sampling")
	}

	document.ApprovalStatus = models.ApprovalStatusNeedsRevision
	if CanSample(document, 0, now) {
		t.Error("needs_revision document allowed sampling")
	}
}

func TestCanSampleBlocksOnGaps(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	if CanSample(approvedDocument(), 1, now) {
		t.Error("pending gaps should block sampling")
	}
}

func TestCanSampleScheduleBoundary(t *testing.T) {
	schedule := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	document := approvedDocument()
	document.ApprovedScheduleDate = &schedule

	if CanSample(document, 0, schedule.Add(-time.Second)) {
		t.Error("sampling allowed before the scheduled date")
	}
	if !CanSample(document, 0, schedule) {
		t.Error("sampling blocked exactly at the scheduled date")
	}
	if !CanSample(document, 0, schedule.Add(time.Hour)) {
		t.Error("sampling blocked after the scheduled date")
	}
}

func TestExportAvailable(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	document := approvedDocument()

	if ExportAvailable(document, now) {
		t.Error("export available without an artifact")
	}

	document.SamplingExportPath = "oit/1/sampling.xlsx"
	if !ExportAvailable(document, now) {
		t.Error("export blocked with artifact and no hold")
	}

	hold := now.Add(time.Hour)
	document.SamplingDownloadDate = &hold
	if ExportAvailable(document, now) {
		t.Error("export available before the download hold")
	}
	if !ExportAvailable(document, hold) {
		t.Error("export blocked at the download hold")
	}
}

func TestFinalReportAllowed(t *testing.T) {
	document := approvedDocument()
	if FinalReportAllowed(document) {
		t.Error("final report allowed without analysis upload")
	}

	uploaded := time.Now()
	document.AnalysisUploadedAt = &uploaded
	if !FinalReportAllowed(document) {
		t.Error("final report blocked after analysis upload")
	}
}

func TestEvaluateSamplingGate(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	document := approvedDocument()

	gapsJSON, err := utils.MarshalToJSON([]Gap{{Type: "vehiculo", Quantity: 1, Reason: GapReasonInsufficient}})
	if err != nil {
		t.Fatal(err)
	}
	document.ResourceGaps = gapsJSON

	status := EvaluateSamplingGate(document, fixedClock(now))
	if status.CanSample {
		t.Error("gate allowed sampling with a pending gap")
	}
	if status.PendingGapCount != 1 {
		t.Errorf("PendingGapCount = %d, want 1", status.PendingGapCount)
	}
	if status.ApprovalStatus != string(models.ApprovalStatusApproved) {
		t.Errorf("ApprovalStatus = %q", status.ApprovalStatus)
	}

	document.ResourceGaps = "[]"
	status = EvaluateSamplingGate(document, fixedClock(now))
	if !status.CanSample {
		t.Error("gate blocked sampling with no gaps")
	}
}
