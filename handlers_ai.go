package main

import (
	"net/http"

	"bitbucket.org/paradixe/oit_backend/aireview"
	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Messages []aireview.ChatMessage `json:"messages" binding:"required"`
}

func aiChatHandler(reviewer *aireview.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}

		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}
		if len(req.Messages) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at least one message is required"})
			return
		}

		reply, err := reviewer.Chat(c.Request.Context(), req.Messages)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "assistant is unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"reply": reply}})
	}
}

func aiModelsHandler(reviewer *aireview.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}

		names, err := reviewer.ListModels(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "assistant is unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": names})
	}
}

type checkDocumentRequest struct {
	Text       string   `json:"text" binding:"required"`
	References []string `json:"references"`
}

// aiCheckDocumentHandler runs a review over raw text without creating
// a document record. Useful for pre-flight checks from the frontend.
func aiCheckDocumentHandler(reviewer *aireview.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}

		var req checkDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}

		result, usedFallback := reviewer.ReviewDocument(c.Request.Context(), req.Text, req.References)
		c.JSON(http.StatusOK, gin.H{"data": gin.H{
			"result":        result,
			"used_fallback": usedFallback,
		}})
	}
}
