package opportunity

import "strings"

// Ranking weights. Phone reachability dominates, then staleness in days,
// then fee in cents.
const (
	FeeWeight  = 0.6
	DayWeight  = 100.0
	PhoneBonus = 10000.0
)

// Score computes the priority of an opportunity. Higher ranks first.
func Score(totalFee int64, daysSincePlan int, hasPhone bool) float64 {
	score := float64(totalFee)*FeeWeight + float64(daysSincePlan)*DayWeight
	if hasPhone {
		score += PhoneBonus
	}
	return score
}

// HasPhone reports whether a phone value is usable: present and not blank.
func HasPhone(phone string) bool {
	return strings.TrimSpace(phone) != ""
}

// likePattern turns free text into a substring ILIKE pattern with the LIKE
// wildcards escaped.
func likePattern(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return ""
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}
