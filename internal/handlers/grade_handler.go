package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/crisjonblvx/facultyflow/internal/models"
	"github.com/crisjonblvx/facultyflow/internal/repositories"
	"github.com/crisjonblvx/facultyflow/internal/services"
	"github.com/crisjonblvx/facultyflow/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type GradeHandler struct {
	BaseHandler
	gradeService services.GradeService
}

func NewGradeHandler(gradeService services.GradeService, logger utils.Logger) *GradeHandler {
	return &GradeHandler{
		BaseHandler:  NewBaseHandler(logger),
		gradeService: gradeService,
	}
}

// Overview lists every synced course with its grade and a GPA estimate
// @Router /grades [get]
func (h *GradeHandler) Overview(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	overview, err := h.gradeService.Overview(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// SyncCourse pulls a course from the LMS and recomputes its grade
// @Router /grades/sync/{lms_course_id} [post]
func (h *GradeHandler) SyncCourse(c *gin.Context) {
	lmsCourseID := parseLMSIDParam(c, "lms_course_id")
	if lmsCourseID == 0 {
		return
	}
	identity, ok := h.currentIdentity(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Syncing course grades", "lms_course_id", lmsCourseID)

	student := services.Student{UserID: identity.UserID, LMSUserID: identity.LMSUserID}
	resp, err := h.gradeService.SyncCourse(c.Request.Context(), student, lmsCourseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CourseGrade returns the current grade of one synced course
// @Router /grades/courses/{course_id} [get]
func (h *GradeHandler) CourseGrade(c *gin.Context) {
	courseID := parseUintParam(c, "course_id")
	if courseID == 0 {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	resp, err := h.gradeService.CourseGrade(c.Request.Context(), userID, courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// WhatIf projects a grade for a target or hypothetical scores
// @Router /grades/what-if [post]
func (h *GradeHandler) WhatIf(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req models.WhatIfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.gradeService.WhatIf(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// History returns the daily grade snapshots of a course
// @Router /grades/history/{course_id} [get]
func (h *GradeHandler) History(c *gin.Context) {
	courseID := parseUintParam(c, "course_id")
	if courseID == 0 {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	filters := repositories.SnapshotFilters{Limit: queryInt(c, "limit", 0)}
	for key, dst := range map[string]**time.Time{"from": &filters.DateFrom, "to": &filters.DateTo} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid " + key,
				Details: "expected YYYY-MM-DD",
			})
			return
		}
		*dst = &t
	}

	history, err := h.gradeService.History(c.Request.Context(), userID, courseID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

// ExportGrades downloads every course grade as an xlsx workbook
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /grades/export [get]
func (h *GradeHandler) ExportGrades(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	data, err := h.gradeService.ExportGrades(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("grades_%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Calculate runs the calculator over posted categories
// @Router /grades/calculate [post]
func (h *GradeHandler) Calculate(c *gin.Context) {
	var req models.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	result, err := h.gradeService.Calculate(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
