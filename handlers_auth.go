package main

import (
	"net/http"

	"bitbucket.org/paradixe/oit_backend/models"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}

		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": info})
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireSessionUser(c); !ok {
			return
		}
		if _, err := models.Logout(c.Request.Context()); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": true})
	}
}

func currentUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireSessionUser(c)
		if !ok {
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusOK, gin.H{"data": user})
	}
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func changePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireSessionUser(c)
		if !ok {
			return
		}

		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}

		updated, err := models.ChangePassword(sessionContext(c, user), req.OldPassword, req.NewPassword)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		updated.PrepareGive()
		c.JSON(http.StatusOK, gin.H{"data": updated})
	}
}

// signupHandler self-registers an inspector account. The role is
// forced; admin accounts are created by admins or cmd/seed-admin.
func signupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}
		input.Role = models.UserRoleInspector

		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusCreated, gin.H{"data": user})
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireAdmin(c); !ok {
			return
		}
		users, err := models.GetAllUsers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		for _, user := range users {
			user.PrepareGive()
		}
		c.JSON(http.StatusOK, gin.H{"data": users})
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := requireAdmin(c)
		if !ok {
			return
		}

		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			respondBindingError(c, err)
			return
		}

		user, err := models.CreateUser(sessionContext(c, admin), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusCreated, gin.H{"data": user})
	}
}
