package main

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"bitbucket.org/paradixe/oit_backend/models"
	"bitbucket.org/paradixe/oit_backend/utils"
	"github.com/gin-gonic/gin"
)

func listResourcesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}

		resourceType := utils.NilIfEmpty(c.Query("type"))
		name := utils.NilIfEmpty(c.Query("name"))

		resources, err := models.ListResources(c.Request.Context(), resourceType, name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": resources})
	}
}

func createResourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := requireAdmin(c)
		if !ok {
			return
		}

		var input models.NewResource
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}

		resource, err := models.CreateResource(sessionContext(c, admin), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": resource})
	}
}

func getResourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		resource, err := models.GetResource(c.Request.Context(), id)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": resource})
	}
}

func updateResourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := requireAdmin(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		var input models.NewResource
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}

		resource, err := models.UpdateResource(sessionContext(c, admin), id, &input)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": resource})
	}
}

func deleteResourceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := requireAdmin(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		resource, err := models.DeleteResource(sessionContext(c, admin), id)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": resource})
	}
}

func resourceBookingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		if err := utils.ValidateResourceId[models.Resource](c.Request.Context(), id); err != nil {
			respondModelError(c, err)
			return
		}

		var statuses []models.BookingStatus
		if status := c.Query("status"); status != "" {
			statuses = append(statuses, models.BookingStatus(status))
		}

		bookings, err := models.QueryBookings(c.Request.Context(), id, statuses)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": bookings})
	}
}

const maxImportSizeBytes int64 = 2 * 1024 * 1024

// importResourcesHandler accepts the inventory CSV either as a
// multipart "file" field or as the raw request body.
func importResourcesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := requireAdmin(c)
		if !ok {
			return
		}

		var data []byte
		if file, err := c.FormFile("file"); err == nil {
			if file.Size > maxImportSizeBytes {
				c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 2MB limit"})
				return
			}
			opened, err := file.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
				return
			}
			defer opened.Close()
			data, err = io.ReadAll(io.LimitReader(opened, maxImportSizeBytes+1))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
				return
			}
		} else {
			body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSizeBytes+1))
			if err != nil || len(body) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "csv body or file field is required"})
				return
			}
			data = body
		}
		if int64(len(data)) > maxImportSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 2MB limit"})
			return
		}

		inputs, err := models.ParseResourceCSV(data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := models.ImportResources(sessionContext(c, admin), inputs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func exportResourcesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}

		data, err := models.ExportResourcesExcel(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		filename := fmt.Sprintf("resources-%s.xlsx", time.Now().UTC().Format("20060102"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	}
}
