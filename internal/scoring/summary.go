package scoring

// Summary aggregates one scoring run for dashboards and events.
type Summary struct {
	Total        int     `json:"total"`
	HighCount    int     `json:"high_count"`
	MediumCount  int     `json:"medium_count"`
	LowCount     int     `json:"low_count"`
	AverageScore float64 `json:"average_score"`
	HighestItem  string  `json:"highest_item,omitempty"`
	HighestScore float64 `json:"highest_score"`
	LowestItem   string  `json:"lowest_item,omitempty"`
	LowestScore  float64 `json:"lowest_score"`
}

// Summarize computes tier counts, the average score, and the highest and
// lowest scored items. An empty input yields a zero-valued summary.
func Summarize(records []ScoreRecord) Summary {
	var s Summary
	if len(records) == 0 {
		return s
	}

	s.Total = len(records)
	var sum float64
	highest, lowest := records[0], records[0]
	for _, r := range records {
		sum += r.Score
		switch r.Tier {
		case TierHigh:
			s.HighCount++
		case TierMedium:
			s.MediumCount++
		default:
			s.LowCount++
		}
		if r.Score > highest.Score {
			highest = r
		}
		if r.Score < lowest.Score {
			lowest = r
		}
	}
	s.AverageScore = sum / float64(len(records))
	s.HighestItem = highest.ItemID
	s.HighestScore = highest.Score
	s.LowestItem = lowest.ItemID
	s.LowestScore = lowest.Score
	return s
}
