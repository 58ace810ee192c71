package main

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"bitbucket.org/paradixe/oit_backend/aireview"
	"bitbucket.org/paradixe/oit_backend/config"
	"bitbucket.org/paradixe/oit_backend/models"
	"bitbucket.org/paradixe/oit_backend/utils"
	"bitbucket.org/paradixe/oit_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func listDocumentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}

		status := utils.NilIfEmpty(c.Query("status"))
		approvalStatus := utils.NilIfEmpty(c.Query("approval_status"))

		documents, err := models.ListOitDocuments(c.Request.Context(), status, approvalStatus)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": documents})
	}
}

func getDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		document, err := models.GetOitDocument(c.Request.Context(), id)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": document})
	}
}

func deleteDocumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := requireAdmin(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		document, err := models.DeleteOitDocument(sessionContext(c, admin), id)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": document})
	}
}

func documentHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		referenceType := "oit_documents"
		histories, err := models.GetHistories(c.Request.Context(), &id, &referenceType, nil)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": histories})
	}
}

func documentBookingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		bookings, err := models.ListBookingsForDocument(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": bookings})
	}
}

// recommendationsHandler suggests a starting resource request set from
// the stored document text, falling back to the review summary when
// the original object is gone.
func recommendationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		document, err := models.GetOitDocument(c.Request.Context(), id)
		if err != nil {
			respondModelError(c, err)
			return
		}

		text := document.Summary
		if document.ObjectKey != "" {
			if data, err := utils.ReadObject(c.Request.Context(), document.ObjectKey); err == nil {
				text = extractDocumentText(data, "")
			}
		}

		c.JSON(http.StatusOK, gin.H{"data": aireview.RecommendResources(text)})
	}
}

type planResourcesRequest struct {
	Requests []workflow.ResourceRequest `json:"requests" binding:"required"`
	Slot     *workflow.Slot             `json:"slot"`
	Notes    string                     `json:"notes"`
}

func planResourcesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireSessionUser(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		var req planResourcesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}

		result, err := workflow.PlanResources(sessionContext(c, user), id, req.Requests, req.Slot, req.Notes)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func confirmPlanHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := requireAdmin(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		var input workflow.ConfirmInput
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}

		result, err := workflow.ConfirmPlan(sessionContext(c, admin), id, input)
		switch {
		case errors.Is(err, workflow.ErrBookingConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case errors.Is(err, workflow.ErrPlanHasGaps):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func samplingStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		document, err := models.GetOitDocument(c.Request.Context(), id)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": workflow.EvaluateSamplingGate(document, time.Now)})
	}
}

func listSamplingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		records, err := models.ListSamplingRecords(c.Request.Context(), id)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": records})
	}
}

type saveSamplingRequest struct {
	Records []models.NewSamplingRecord `json:"records" binding:"required"`
}

func saveSamplingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireSessionUser(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		document, err := models.GetOitDocument(c.Request.Context(), id)
		if err != nil {
			respondModelError(c, err)
			return
		}

		gate := workflow.EvaluateSamplingGate(document, time.Now)
		if !gate.CanSample {
			c.JSON(http.StatusConflict, gin.H{"error": "sampling is not enabled for this document", "gate": gate})
			return
		}

		var req saveSamplingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}

		records, err := models.SaveSamplingRecords(sessionContext(c, user), id, req.Records)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": records})
	}
}

func samplingExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		document, err := models.GetOitDocument(c.Request.Context(), id)
		if err != nil {
			respondModelError(c, err)
			return
		}

		if !workflow.ExportAvailable(document, time.Now()) {
			c.JSON(http.StatusConflict, gin.H{"error": "sampling export is not available yet"})
			return
		}

		objectKey := utils.ExtractObjectKeyFromURL(document.SamplingExportPath)
		data, err := utils.ReadObject(c.Request.Context(), objectKey)
		if err != nil {
			config.LogError(config.GetLogger(), "handlers_oit", "samplingExportHandler", "ReadObject", objectKey, err)
			c.JSON(http.StatusNotFound, gin.H{"error": "export artifact not found"})
			return
		}

		filename := fmt.Sprintf("sampling-oit-%d.xlsx", document.ID)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	}
}

type downloadDateRequest struct {
	DownloadDate *time.Time `json:"download_date"`
}

// samplingDownloadDateHandler sets (or clears) the earliest date the
// sampling workbook may be downloaded.
func samplingDownloadDateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := requireAdmin(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		var req downloadDateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}

		ctx := sessionContext(c, admin)
		document, err := models.GetOitDocument(ctx, id)
		if err != nil {
			respondModelError(c, err)
			return
		}

		db := config.GetDB()
		if err := db.WithContext(ctx).Model(document).
			Update("sampling_download_date", req.DownloadDate).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		document.SamplingDownloadDate = req.DownloadDate
		c.JSON(http.StatusOK, gin.H{"data": document})
	}
}

func finalReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		document, err := models.GetOitDocument(c.Request.Context(), id)
		if err != nil {
			respondModelError(c, err)
			return
		}

		if !workflow.FinalReportAllowed(document) {
			c.JSON(http.StatusConflict, gin.H{"error": "final report requires the analysis upload"})
			return
		}

		records, err := models.ListSamplingRecords(c.Request.Context(), id)
		if err != nil {
			respondModelError(c, err)
			return
		}

		report := workflow.RenderFinalReport(document, records)
		filename := fmt.Sprintf("informe-final-oit-%d.txt", document.ID)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(report))
	}
}

// complianceCheckHandler grades the stored document against a
// requirements README and persists both artifacts next to it.
func complianceCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireSessionUser(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		ctx := sessionContext(c, user)
		document, err := models.GetOitDocument(ctx, id)
		if err != nil {
			respondModelError(c, err)
			return
		}

		readme, err := readFormFile(c, "readme", maxImportSizeBytes)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "readme file is required"})
			return
		}

		var documentText string
		if document.ObjectKey != "" {
			if data, err := utils.ReadObject(ctx, document.ObjectKey); err == nil {
				documentText = extractDocumentText(data, "")
			}
		}
		if documentText == "" {
			documentText = document.Summary
		}

		result := aireview.EvaluateCompliance(string(readme), documentText)
		report := aireview.RenderComplianceReport(document.OriginalName, result)

		bundleKey := path.Join("oit", fmt.Sprint(document.ID), "compliance-readme.md")
		reportKey := path.Join("oit", fmt.Sprint(document.ID), "compliance-report.txt")

		logger := config.GetLogger()
		bundlePath, err := utils.StoreObject(ctx, bundleKey, readme, "text/markdown")
		if err != nil {
			config.LogError(logger, "handlers_oit", "complianceCheckHandler", "StoreObject readme", bundleKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store compliance bundle"})
			return
		}
		reportPath, err := utils.StoreObject(ctx, reportKey, []byte(report), "text/plain; charset=utf-8")
		if err != nil {
			config.LogError(logger, "handlers_oit", "complianceCheckHandler", "StoreObject report", reportKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store compliance report"})
			return
		}

		if err := document.UpdateCompliancePaths(ctx, bundlePath, reportPath); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logger.WithFields(logrus.Fields{
			"document_id":  document.ID,
			"status":       result.Status,
			"failed_count": result.FailedCount,
		}).Info("[compliance.check]")

		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"result":      result,
			"report":      report,
			"bundle_path": bundlePath,
			"report_path": reportPath,
		}})
	}
}
