package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet    = "Summary"
	categoriesSheet = "Categories"
)

// ExportGrades writes every synced course of the user into a workbook with a
// summary sheet and a per-category sheet.
func (s *gradeService) ExportGrades(ctx context.Context, userID string) ([]byte, error) {
	overview, err := s.Overview(ctx, userID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	index, err := f.GetSheetIndex(summarySheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	// Summary
	writeRow(f, summarySheet, 1, []interface{}{
		"Course", "Code", "Percentage", "Letter", "Points Earned", "Points Possible", "Weighted", "Last Synced",
	})
	for i, c := range overview.Courses {
		code, synced := "", ""
		if c.CourseCode != nil {
			code = *c.CourseCode
		}
		if c.LastSyncedAt != nil {
			synced = c.LastSyncedAt.UTC().Format("2006-01-02 15:04")
		}
		writeRow(f, summarySheet, i+2, []interface{}{
			c.CourseName, code, c.Percentage, string(c.LetterGrade), c.PointsEarned, c.PointsPossible, c.Weighted, synced,
		})
	}
	if overview.GPAEstimate != nil {
		writeRow(f, summarySheet, len(overview.Courses)+3, []interface{}{"GPA Estimate", "", *overview.GPAEstimate})
	}

	// Categories
	if _, err := f.NewSheet(categoriesSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	writeRow(f, categoriesSheet, 1, []interface{}{
		"Course", "Category", "Weight", "Percentage", "Points Earned", "Points Possible", "Graded", "Total",
	})
	row := 2
	for _, c := range overview.Courses {
		names := make([]string, 0, len(c.CategoryScores))
		for name := range c.CategoryScores {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			cs := c.CategoryScores[name]
			writeRow(f, categoriesSheet, row, []interface{}{
				c.CourseName, name, cs.Weight, cs.Percentage, cs.PointsEarned, cs.PointsPossible, cs.GradedCount, cs.TotalCount,
			})
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Grades exported", "user_id", userID, "courses", len(overview.Courses))
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			continue
		}
		f.SetCellValue(sheet, cell, value)
	}
}
