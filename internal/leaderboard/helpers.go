package leaderboard

import ws "github.com/gokatarajesh/classroom-quiz/pkg/http/ws"

// ToWSEntries converts standings into the wire representation.
func ToWSEntries(standings []Standing) []ws.LeaderboardEntry {
	result := make([]ws.LeaderboardEntry, len(standings))
	for i, s := range standings {
		result[i] = ws.LeaderboardEntry{
			Rank:          s.Rank,
			ParticipantID: s.ParticipantID.String(),
			DisplayName:   s.DisplayName,
			Avatar:        s.Avatar,
			Score:         s.Score,
			CorrectCount:  s.CorrectCount,
			WrongCount:    s.WrongCount,
			Accuracy:      s.Accuracy,
		}
	}
	return result
}
