package services

import (
	"sort"
	"strings"

	"github.com/crisjonblvx/facultyflow/internal/grading"
	"github.com/crisjonblvx/facultyflow/internal/models"
)

// CustomTemplate is the blank template unknown subjects fall back to.
const CustomTemplate = "Custom"

// GradingTemplate is a named starting point for SetupWeightedGrading.
type GradingTemplate struct {
	Subject    string                  `json:"subject"`
	Categories []models.CategoryConfig `json:"categories"`
}

func dropLowest(n int) grading.Rules {
	return grading.Rules{DropLowest: n}
}

var gradingTemplates = map[string][]models.CategoryConfig{
	"Mass Communications": {
		{Name: "Participation", Weight: 15},
		{Name: "Discussions", Weight: 20},
		{Name: "Assignments", Weight: 30},
		{Name: "Projects", Weight: 20},
		{Name: "Final Project", Weight: 15},
	},
	"Mathematics": {
		{Name: "Homework", Weight: 30},
		{Name: "Quizzes", Weight: 30, Rules: dropLowest(1)},
		{Name: "Exams", Weight: 40},
	},
	"English": {
		{Name: "Essays", Weight: 50},
		{Name: "Participation", Weight: 20},
		{Name: "Exams", Weight: 30},
	},
	"Science": {
		{Name: "Labs", Weight: 30},
		{Name: "Quizzes", Weight: 20, Rules: dropLowest(1)},
		{Name: "Exams", Weight: 50},
	},
	"History": {
		{Name: "Participation", Weight: 15},
		{Name: "Papers", Weight: 40},
		{Name: "Midterm", Weight: 20},
		{Name: "Final", Weight: 25},
	},
	"Business": {
		{Name: "Case Studies", Weight: 30},
		{Name: "Quizzes", Weight: 20, Rules: dropLowest(1)},
		{Name: "Project", Weight: 30},
		{Name: "Final Exam", Weight: 20},
	},
	"Computer Science": {
		{Name: "Programming Assignments", Weight: 40},
		{Name: "Quizzes", Weight: 20, Rules: dropLowest(2)},
		{Name: "Projects", Weight: 25},
		{Name: "Final Exam", Weight: 15},
	},
	CustomTemplate: {},
}

// Templates lists every subject template, Custom last.
func Templates() []GradingTemplate {
	subjects := make([]string, 0, len(gradingTemplates))
	for subject := range gradingTemplates {
		if subject != CustomTemplate {
			subjects = append(subjects, subject)
		}
	}
	sort.Strings(subjects)
	subjects = append(subjects, CustomTemplate)

	out := make([]GradingTemplate, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, Template(s))
	}
	return out
}

// Template returns a copy of the subject's categories. Matching ignores case;
// unknown subjects get the empty Custom template.
func Template(subject string) GradingTemplate {
	for name, categories := range gradingTemplates {
		if strings.EqualFold(name, strings.TrimSpace(subject)) {
			return GradingTemplate{Subject: name, Categories: copyCategories(categories)}
		}
	}
	return GradingTemplate{Subject: CustomTemplate, Categories: []models.CategoryConfig{}}
}

// HasTemplate reports whether subject names a known template.
func HasTemplate(subject string) bool {
	for name := range gradingTemplates {
		if strings.EqualFold(name, strings.TrimSpace(subject)) {
			return true
		}
	}
	return false
}

func copyCategories(in []models.CategoryConfig) []models.CategoryConfig {
	out := make([]models.CategoryConfig, len(in))
	copy(out, in)
	return out
}
