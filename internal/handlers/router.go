package handlers

import (
	"net/http"

	"github.com/crisjonblvx/facultyflow/internal/auth"
	"github.com/crisjonblvx/facultyflow/internal/services"
	"github.com/crisjonblvx/facultyflow/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	gradingSetupHandler *GradingSetupHandler
	gradeHandler        *GradeHandler
	verifier            auth.TokenVerifier
}

func NewHandlerManager(
	setupService services.GradingSetupService,
	gradeService services.GradeService,
	verifier auth.TokenVerifier,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		gradingSetupHandler: NewGradingSetupHandler(setupService, logger),
		gradeHandler:        NewGradeHandler(gradeService, logger),
		verifier:            verifier,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(auth.Middleware(hm.verifier))
	{
		// Educator: grading setup on an LMS course
		courses := v1.Group("/courses/:course_id/grading")
		courses.Use(auth.RequireRole(auth.RoleEducator, auth.RoleAdmin))
		{
			courses.POST("/setup", hm.gradingSetupHandler.SetupWeightedGrading)
			courses.GET("/analysis", hm.gradingSetupHandler.AnalyzeExistingSetup)
			courses.POST("/fix", hm.gradingSetupHandler.FixExistingSetup)
			courses.GET("/verify", hm.gradingSetupHandler.VerifyGradingSetup)
			courses.GET("/runs", hm.gradingSetupHandler.ListRuns)
		}

		templates := v1.Group("/grading/templates")
		{
			templates.GET("", hm.gradingSetupHandler.ListTemplates)
			templates.GET("/:subject", hm.gradingSetupHandler.GetTemplate)
		}

		// Student: synced grades
		grades := v1.Group("/grades")
		{
			grades.GET("", hm.gradeHandler.Overview)
			grades.GET("/export", hm.gradeHandler.ExportGrades)
			grades.POST("/sync/:lms_course_id", hm.gradeHandler.SyncCourse)
			grades.GET("/courses/:course_id", hm.gradeHandler.CourseGrade)
			grades.POST("/what-if", hm.gradeHandler.WhatIf)
			grades.GET("/history/:course_id", hm.gradeHandler.History)
			grades.POST("/calculate", hm.gradeHandler.Calculate)
		}
	}
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "facultyflow-grading",
	})
}
