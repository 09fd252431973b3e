package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/classroom-quiz/internal/db/queries"
	"github.com/gokatarajesh/classroom-quiz/internal/leaderboard"
)

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func fromPGUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return uuid.UUID(id.Bytes)
}

func pgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func pgTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}

// standingsFromRows ranks participant rows already ordered by score and join time.
func standingsFromRows(rows []queries.SessionParticipant) []leaderboard.Standing {
	participants := make([]leaderboard.Participant, len(rows))
	for i, row := range rows {
		participants[i] = leaderboard.Participant{
			ID:           fromPGUUID(row.ParticipantID),
			DisplayName:  row.DisplayName,
			Avatar:       row.AvatarUrl.String,
			Score:        int(row.Score),
			CorrectCount: int(row.CorrectCount),
			WrongCount:   int(row.WrongCount),
			JoinSeq:      i,
		}
	}
	return leaderboard.Rank(participants)
}
