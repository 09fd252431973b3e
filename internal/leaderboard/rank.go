package leaderboard

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Participant is the ranking input: one row per active participant.
type Participant struct {
	ID           uuid.UUID
	DisplayName  string
	Avatar       string
	Score        int
	CorrectCount int
	WrongCount   int
	JoinSeq      int
}

// Standing is a participant snapshot with its derived rank and accuracy.
type Standing struct {
	Rank          int       `json:"rank"`
	ParticipantID uuid.UUID `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	Avatar        string    `json:"avatar,omitempty"`
	Score         int       `json:"score"`
	CorrectCount  int       `json:"correct_count"`
	WrongCount    int       `json:"wrong_count"`
	Accuracy      float64   `json:"accuracy"`
	JoinSeq       int       `json:"join_seq"`
}

// Rank orders participants by score descending, earliest join first on ties.
// The input slice is not modified.
func Rank(participants []Participant) []Standing {
	sorted := make([]Participant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		if sorted[i].JoinSeq != sorted[j].JoinSeq {
			return sorted[i].JoinSeq < sorted[j].JoinSeq
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	standings := make([]Standing, len(sorted))
	for i, p := range sorted {
		standings[i] = Standing{
			Rank:          i + 1,
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Avatar:        p.Avatar,
			Score:         p.Score,
			CorrectCount:  p.CorrectCount,
			WrongCount:    p.WrongCount,
			Accuracy:      Accuracy(p.CorrectCount, p.WrongCount),
			JoinSeq:       p.JoinSeq,
		}
	}
	return standings
}

// Accuracy returns correct/(correct+wrong) as a percentage rounded to two decimals.
func Accuracy(correct, wrong int) float64 {
	total := correct + wrong
	if total <= 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*10000) / 100
}

// ClassAccuracy averages accuracy over participants that answered at least once.
func ClassAccuracy(standings []Standing) float64 {
	var sum float64
	var n int
	for _, s := range standings {
		if s.CorrectCount+s.WrongCount == 0 {
			continue
		}
		sum += s.Accuracy
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum/float64(n)*100) / 100
}

// Find returns the standing for a participant, if present.
func Find(standings []Standing, participantID uuid.UUID) (Standing, bool) {
	for _, s := range standings {
		if s.ParticipantID == participantID {
			return s, true
		}
	}
	return Standing{}, false
}
