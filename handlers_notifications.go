package main

import (
	"net/http"
	"strings"

	"bitbucket.org/paradixe/oit_backend/models"
	"github.com/gin-gonic/gin"
)

func listNotificationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireSessionUser(c)
		if !ok {
			return
		}

		unreadOnly := strings.EqualFold(c.Query("unread"), "true")
		notifications, err := models.ListNotifications(c.Request.Context(), user.ID, unreadOnly)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": notifications})
	}
}

func markNotificationReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireSessionUser(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		notification, err := models.MarkNotificationRead(c.Request.Context(), user.ID, id)
		if err != nil {
			respondModelError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": notification})
	}
}
