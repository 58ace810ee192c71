package main

import (
	"net/http"

	"bitbucket.org/paradixe/oit_backend/aireview"
	"bitbucket.org/paradixe/oit_backend/config"
	"bitbucket.org/paradixe/oit_backend/middlewares"
	"bitbucket.org/paradixe/oit_backend/models"
	"bitbucket.org/paradixe/oit_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// requireServiceClaims gates the /internal/ops routes on a signed
// service JWT with the admin role (minted by cmd/issue-token).
func requireServiceClaims(c *gin.Context) bool {
	claims := middlewares.CtxValue(c.Request.Context())
	if claims == nil || claims.Role != string(models.UserRoleAdmin) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	return true
}

// rereviewDocumentHandler re-runs the automated review on a stored
// document. Used by batch jobs after a reviewer model upgrade.
func rereviewDocumentHandler(reviewer *aireview.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		if !requireServiceClaims(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		ctx := c.Request.Context()
		document, err := models.GetOitDocument(ctx, id)
		if err != nil {
			respondModelError(c, err)
			return
		}
		if document.ObjectKey == "" {
			c.JSON(http.StatusConflict, gin.H{"error": "document has no stored object"})
			return
		}

		data, err := utils.ReadObject(ctx, document.ObjectKey)
		if err != nil {
			config.LogError(logger, "handlers_internal", "rereviewDocumentHandler", "ReadObject", document.ObjectKey, err)
			c.JSON(http.StatusNotFound, gin.H{"error": "stored object not found"})
			return
		}

		text := extractDocumentText(data, "")
		review, usedFallback := reviewer.ReviewDocument(ctx, text, nil)

		if err := document.UpdateReview(ctx, models.ReviewStatus(review.Status), review.Summary, review.Alerts, review.Missing, review.Evidence); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logger.WithFields(logrus.Fields{
			"document_id":   document.ID,
			"status":        review.Status,
			"used_fallback": usedFallback,
		}).Info("[oit.rereview]")

		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"document":      document,
			"used_fallback": usedFallback,
		}})
	}
}
