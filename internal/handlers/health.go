package handlers

import (
	"net/http"
	"time"

	"cardiopredict/internal/database"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "connected", http.StatusOK
		if err := database.Ping(c.Request.Context(), db); err != nil {
			status, code = "disconnected", http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"success":   code == http.StatusOK,
			"status":    "CardioPredict API",
			"database":  status,
			"timestamp": time.Now().UTC(),
		})
	}
}
