package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func success(data gin.H) gin.H {
	body := gin.H{"success": true}
	for k, v := range data {
		body[k] = v
	}
	return body
}

func JSON200(c *gin.Context, data gin.H) {
	c.JSON(http.StatusOK, success(data))
}

func JSON201(c *gin.Context, data gin.H) {
	c.JSON(http.StatusCreated, success(data))
}

func JSON202(c *gin.Context, data gin.H) {
	c.JSON(http.StatusAccepted, success(data))
}

// JSONError writes the failure envelope; extra fields are merged in.
func JSONError(c *gin.Context, status int, message string, extra gin.H) {
	body := gin.H{"success": false, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}

func JSON400(c *gin.Context, message string) {
	JSONError(c, http.StatusBadRequest, message, nil)
}

func JSON401(c *gin.Context, message string) {
	JSONError(c, http.StatusUnauthorized, message, nil)
}

func JSON403(c *gin.Context, message string) {
	JSONError(c, http.StatusForbidden, message, nil)
}

func JSON404(c *gin.Context, message string) {
	JSONError(c, http.StatusNotFound, message, nil)
}

func JSON409(c *gin.Context, message string) {
	JSONError(c, http.StatusConflict, message, nil)
}

func JSON500(c *gin.Context, message string) {
	JSONError(c, http.StatusInternalServerError, message, nil)
}

func JSON503(c *gin.Context, message string) {
	JSONError(c, http.StatusServiceUnavailable, message, nil)
}
