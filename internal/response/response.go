package response

import "github.com/gin-gonic/gin"

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Message(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"message": message,
	})
}

// JSON writes a success envelope with route-specific top-level keys.
func JSON(c *gin.Context, statusCode int, body gin.H) {
	body["success"] = true
	c.JSON(statusCode, body)
}

func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"message": message,
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, message string, details string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"message": message,
		"error":   details,
	})
}

func Abort(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"success": false,
		"message": message,
	})
}
