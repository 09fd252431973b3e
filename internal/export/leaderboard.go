package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gokatarajesh/classroom-quiz/internal/leaderboard"
)

const (
	leaderboardSheet = "Leaderboard"
	summarySheet     = "Summary"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Report is the input of an end-of-game workbook.
type Report struct {
	SessionID     string
	QuestionCount int
	GeneratedAt   time.Time
	Standings     []leaderboard.Standing
}

// Filename is the suggested attachment name for a report.
func (r Report) Filename() string {
	return fmt.Sprintf("leaderboard-%s.xlsx", r.SessionID)
}

// LeaderboardXLSX renders the final standings of a session as an Excel workbook.
func LeaderboardXLSX(report Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leaderboardSheet); err != nil {
		return nil, fmt.Errorf("create leaderboard sheet: %w", err)
	}

	headers := []any{"Rank", "Participant ID", "Name", "Score", "Correct", "Wrong", "Accuracy (%)"}
	if err := f.SetSheetRow(leaderboardSheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("write headers: %w", err)
	}

	for i, s := range report.Standings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			s.Rank,
			s.ParticipantID.String(),
			s.DisplayName,
			s.Score,
			s.CorrectCount,
			s.WrongCount,
			s.Accuracy,
		}
		if err := f.SetSheetRow(leaderboardSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	generatedAt := report.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}
	summary := [][]any{
		{"Session", report.SessionID},
		{"Questions", report.QuestionCount},
		{"Participants", len(report.Standings)},
		{"Class accuracy (%)", leaderboard.ClassAccuracy(report.Standings)},
		{"Generated at", generatedAt.Format(time.RFC3339)},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
