// internal/handlers/auth.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"cardiopredict/internal/auth"
	"cardiopredict/internal/models"
	"cardiopredict/internal/repository"
	"cardiopredict/internal/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func Register(users repository.UserRepository, tokens *auth.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid registration data", err.Error())
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("failed to hash password", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to hash password")
			return
		}

		user := models.User{
			Email:     strings.ToLower(strings.TrimSpace(req.Email)),
			Password:  string(hashedPassword),
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
		}

		if err := users.Create(c.Request.Context(), &user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				response.Error(c, http.StatusConflict, "Email already registered")
				return
			}
			log.Error("failed to create user", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to create user")
			return
		}

		token, err := tokens.GenerateToken(user.ID, user.FirstName)
		if err != nil {
			log.Error("failed to generate token", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to generate token")
			return
		}

		response.JSON(c, http.StatusCreated, gin.H{
			"message": "User registered successfully",
			"token":   token,
			"user":    user,
		})
	}
}

func Login(users repository.UserRepository, tokens *auth.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithDetails(c, http.StatusBadRequest, "Invalid login data", err.Error())
			return
		}

		user, err := users.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				log.Error("failed to look up user", zap.Error(err))
			}
			response.Error(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			response.Error(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		token, err := tokens.GenerateToken(user.ID, user.FirstName)
		if err != nil {
			log.Error("failed to generate token", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to generate token")
			return
		}

		response.JSON(c, http.StatusOK, gin.H{
			"message": "Login successful",
			"token":   token,
			"user":    user,
		})
	}
}

func GetProfile(users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := currentUser(c)

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			response.Error(c, http.StatusNotFound, "User not found")
			return
		}

		response.JSON(c, http.StatusOK, gin.H{"user": user})
	}
}

// Logout is a no-op for bearer tokens; clients drop the token.
func Logout(c *gin.Context) {
	response.Message(c, http.StatusOK, "Logged out successfully")
}
