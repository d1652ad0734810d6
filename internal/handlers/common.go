package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/crisjonblvx/facultyflow/internal/auth"
	"github.com/crisjonblvx/facultyflow/internal/services"
	"github.com/crisjonblvx/facultyflow/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ListResponse wraps a page of results
type ListResponse struct {
	Items  interface{} `json:"items"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

// NewBaseHandler creates a new base handler with logging capability
func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

// LogRequest logs incoming HTTP requests with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"remote_addr", c.ClientIP(),
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", h.extractUserID(c),
		"timestamp", time.Now().Format(time.RFC3339),
	}
	fields = append(fields, additionalFields...)

	h.logger.Info(message, fields...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", h.extractUserID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	fields = append(fields, additionalFields...)

	h.logger.LogError(err, message, fields...)
}

// LogWarn logs warning messages with context
func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"request_id", c.GetHeader("X-Request-ID"),
		"user_id", h.extractUserID(c),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	fields = append(fields, additionalFields...)

	h.logger.Warn(message, fields...)
}

func (h *BaseHandler) extractUserID(c *gin.Context) interface{} {
	if userID, exists := c.Get("user_id"); exists {
		return userID
	}
	return nil
}

// currentIdentity returns the authenticated caller or writes a 401.
func (h *BaseHandler) currentIdentity(c *gin.Context) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFrom(c)
	if !ok || identity.UserID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return nil, false
	}
	return identity, true
}

// currentUser returns the authenticated user id or writes a 401.
func (h *BaseHandler) currentUser(c *gin.Context) (string, bool) {
	identity, ok := h.currentIdentity(c)
	if !ok {
		return "", false
	}
	return identity.UserID, true
}

// handleServiceError maps service errors onto HTTP status codes.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var stepErr *services.StepError
	switch {
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Bad request",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrCourseNotSynced):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Course not synced",
			Details: "Sync the course before requesting grades",
		})
	case errors.Is(err, services.ErrLMSAccountNotLinked):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "No LMS account is linked to this user",
			Code:    "lms_account_unlinked",
		})
	case services.IsUnauthorized(err):
		h.LogWarn(c, "LMS rejected credentials", "error", err.Error())
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: "LMS rejected the configured credentials",
			Code:    "lms_unauthorized",
		})
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Resource not found",
			Details: err.Error(),
		})
	case errors.As(err, &stepErr):
		h.LogError(c, err, "LMS call failed", "step", stepErr.Step)
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: "LMS request failed",
			Details: err.Error(),
			Code:    stepErr.Step,
		})
	case services.IsUpstream(err):
		h.LogError(c, err, "LMS call failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Message: "LMS request failed",
			Details: err.Error(),
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
