package session

import (
	"fmt"
	"strings"
)

// MatchPolicy decides how short-answer submissions are compared to the stored answer.
type MatchPolicy string

const (
	MatchExact             MatchPolicy = "exact"
	MatchTrimSpace         MatchPolicy = "trim_space"
	MatchFoldCase          MatchPolicy = "fold_case"
	MatchFoldCaseTrimSpace MatchPolicy = "fold_case_trim_space"
)

// ParseMatchPolicy validates a configured policy name. Empty means exact.
func ParseMatchPolicy(raw string) (MatchPolicy, error) {
	switch p := MatchPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return MatchExact, nil
	case MatchExact, MatchTrimSpace, MatchFoldCase, MatchFoldCaseTrimSpace:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMatchPolicy, raw)
	}
}

// Matches applies the policy. Whitespace trimming also collapses inner runs of spaces.
func (p MatchPolicy) Matches(submitted, expected string) bool {
	switch p {
	case MatchTrimSpace:
		return collapseSpace(submitted) == collapseSpace(expected)
	case MatchFoldCase:
		return strings.EqualFold(submitted, expected)
	case MatchFoldCaseTrimSpace:
		return strings.EqualFold(collapseSpace(submitted), collapseSpace(expected))
	default:
		return submitted == expected
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IsCorrect grades a submission. Empty submissions are always wrong; only
// short answers go through the policy, other types need the canonical option.
func IsCorrect(q Question, value string, policy MatchPolicy) bool {
	if value == "" {
		return false
	}
	if q.Type == QuestionShortAnswer {
		return policy.Matches(value, q.Answer)
	}
	return value == q.Answer
}
