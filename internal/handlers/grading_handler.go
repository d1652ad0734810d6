package handlers

import (
	"net/http"

	"github.com/crisjonblvx/facultyflow/internal/models"
	"github.com/crisjonblvx/facultyflow/internal/repositories"
	"github.com/crisjonblvx/facultyflow/internal/services"
	"github.com/crisjonblvx/facultyflow/internal/utils"
	"github.com/gin-gonic/gin"
)

type GradingSetupHandler struct {
	BaseHandler
	setupService services.GradingSetupService
}

// SetupBody is a setup request that may name a subject template instead of
// listing categories.
type SetupBody struct {
	models.SetupRequest
	Template string `json:"template,omitempty"`
}

func NewGradingSetupHandler(setupService services.GradingSetupService, logger utils.Logger) *GradingSetupHandler {
	return &GradingSetupHandler{
		BaseHandler:  NewBaseHandler(logger),
		setupService: setupService,
	}
}

// SetupWeightedGrading creates weighted assignment groups on a course
// @Summary Set up weighted grading
// @Tags grading
// @Accept json
// @Produce json
// @Param course_id path int true "LMS course ID"
// @Param setup body SetupBody true "Categories or template"
// @Success 200 {object} services.SetupResult
// @Failure 400 {object} services.SetupResult
// @Failure 502 {object} services.SetupResult
// @Router /courses/{course_id}/grading/setup [post]
func (h *GradingSetupHandler) SetupWeightedGrading(c *gin.Context) {
	courseID := parseLMSIDParam(c, "course_id")
	if courseID == 0 {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var body SetupBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if len(body.Categories) == 0 && body.Template != "" {
		if !services.HasTemplate(body.Template) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Unknown template",
				Details: body.Template,
			})
			return
		}
		body.Categories = services.Template(body.Template).Categories
	}

	h.LogRequest(c, "Setting up weighted grading", "course_id", courseID, "categories", len(body.Categories))

	result := h.setupService.SetupWeightedGrading(c.Request.Context(), courseID, &body.SetupRequest, userID)

	switch {
	case result.Status == services.StatusSuccess:
		c.JSON(http.StatusOK, result)
	case result.Step == services.StepValidate:
		c.JSON(http.StatusBadRequest, result)
	default:
		h.LogWarn(c, "Grading setup failed", "course_id", courseID, "step", result.Step)
		c.JSON(http.StatusBadGateway, result)
	}
}

// AnalyzeExistingSetup reports problems with a course's grading groups
// @Summary Analyze grading setup
// @Tags grading
// @Produce json
// @Param course_id path int true "LMS course ID"
// @Param cached query bool false "Accept a recently cached report"
// @Success 200 {object} services.AnalysisResult
// @Failure 502 {object} ErrorResponse
// @Router /courses/{course_id}/grading/analysis [get]
func (h *GradingSetupHandler) AnalyzeExistingSetup(c *gin.Context) {
	courseID := parseLMSIDParam(c, "course_id")
	if courseID == 0 {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	opts := services.AnalyzeOptions{AllowCached: c.Query("cached") == "true"}
	analysis, err := h.setupService.AnalyzeExistingSetup(c.Request.Context(), courseID, userID, opts)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// FixExistingSetup applies an automatic repair or a reset
// @Summary Fix grading setup
// @Tags grading
// @Accept json
// @Produce json
// @Param course_id path int true "LMS course ID"
// @Param fix body models.FixRequest true "Fix type"
// @Success 200 {object} services.FixResult
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /courses/{course_id}/grading/fix [post]
func (h *GradingSetupHandler) FixExistingSetup(c *gin.Context) {
	courseID := parseLMSIDParam(c, "course_id")
	if courseID == 0 {
		return
	}
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req models.FixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Fixing grading setup", "course_id", courseID, "fix_type", req.FixType)

	result, err := h.setupService.FixExistingSetup(c.Request.Context(), courseID, req.FixType, userID)
	if err != nil {
		if result != nil {
			// Some LMS writes went through; report what changed.
			h.LogError(c, err, "Fix partially applied", "course_id", courseID)
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Message: result.Message,
				Details: result,
				Code:    "partial_fix",
			})
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// VerifyGradingSetup re-reads the groups and checks the weight total
// @Router /courses/{course_id}/grading/verify [get]
func (h *GradingSetupHandler) VerifyGradingSetup(c *gin.Context) {
	courseID := parseLMSIDParam(c, "course_id")
	if courseID == 0 {
		return
	}

	verification, err := h.setupService.VerifyGradingSetup(c.Request.Context(), courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, verification)
}

// ListRuns returns the recorded setup, analyze and fix runs of a course
// @Router /courses/{course_id}/grading/runs [get]
func (h *GradingSetupHandler) ListRuns(c *gin.Context) {
	courseID := parseLMSIDParam(c, "course_id")
	if courseID == 0 {
		return
	}

	filters := repositories.SetupRunFilters{
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}
	if op := c.Query("operation"); op != "" {
		operation := models.SetupOperation(op)
		filters.Operation = &operation
	}
	if st := c.Query("status"); st != "" {
		status := models.RunStatus(st)
		filters.Status = &status
	}

	runs, total, err := h.setupService.ListRuns(c.Request.Context(), courseID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Items:  runs,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
}

// ListTemplates returns every subject template
// @Router /grading/templates [get]
func (h *GradingSetupHandler) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, services.Templates())
}

// GetTemplate returns one subject template; unknown subjects get Custom
// @Router /grading/templates/{subject} [get]
func (h *GradingSetupHandler) GetTemplate(c *gin.Context) {
	c.JSON(http.StatusOK, services.Template(c.Param("subject")))
}
