package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response envelope: { success, message?, data?, token? }.
// Errors are always non-2xx with success=false; validation failures carry an
// extra errors array with per-field detail.

func RespondError(ctx *gin.Context, status int, message string, details interface{}) {
	body := gin.H{
		"success": false,
		"message": message,
	}

	if details != nil {
		body["errors"] = details
	}

	ctx.JSON(status, body)
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, message, details)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, message, nil)
}

func RespondMessage(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{
		"success": true,
		"message": message,
	})
}

func RespondData(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}
