// Package scoring implements the QVF composite scorer: it combines
// AHP-derived criteria weights with batch-normalized work-item attributes
// into a composite priority score, a tier classification, and a
// per-criterion contribution breakdown for each item.
package scoring

import (
	"fmt"
	"log/slog"
	"math"
)

// Tier is the priority bucket assigned from the composite score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// TierThresholds holds the lower-inclusive score cutoffs for the High and
// Medium tiers. A score of exactly High classifies High; exactly Medium
// classifies Medium. Deployments recalibrate these, so they are config, not
// constants.
type TierThresholds struct {
	High   float64
	Medium float64
}

// DefaultTierThresholds returns the conventional 0.7/0.4 cutoffs.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{High: 0.7, Medium: 0.4}
}

// Validate checks the thresholds are ordered and inside [0,1].
func (t TierThresholds) Validate() error {
	if t.Medium < 0 || t.High > 1 || t.Medium > t.High {
		return fmt.Errorf("tier thresholds must satisfy 0 <= medium <= high <= 1, got medium=%.3f high=%.3f", t.Medium, t.High)
	}
	return nil
}

// Classify maps a composite score to its tier.
func (t TierThresholds) Classify(score float64) Tier {
	switch {
	case score >= t.High:
		return TierHigh
	case score >= t.Medium:
		return TierMedium
	default:
		return TierLow
	}
}

// Contribution is one criterion's share of an item's composite score.
type Contribution struct {
	CriterionID string  `json:"criterion_id"`
	RawValue    float64 `json:"raw_value"`
	Normalized  float64 `json:"normalized"`
	Weight      float64 `json:"weight"`
	Weighted    float64 `json:"weighted"`
}

// ScoreRecord is the derived output for one successfully scored work item.
// Records are created fresh on every scoring invocation and never mutated,
// so runs can be compared across reprioritizations.
type ScoreRecord struct {
	ItemID        string         `json:"item_id"`
	Title         string         `json:"title"`
	ItemType      WorkItemType   `json:"item_type"`
	Score         float64        `json:"score"`
	Tier          Tier           `json:"tier"`
	Contributions []Contribution `json:"contributions"`
}

// Scorer computes composite QVF scores for work-item batches.
type Scorer struct {
	thresholds TierThresholds
	logger     *slog.Logger
}

// NewScorer creates a Scorer with the given tier thresholds.
func NewScorer(thresholds TierThresholds, logger *slog.Logger) *Scorer {
	return &Scorer{thresholds: thresholds, logger: logger}
}

type criterionRange struct {
	min, max float64
}

// ScoreWorkItems scores a batch of work items against a weight vector.
// weights is keyed by criterion id and must cover every criterion, be
// non-negative, and sum to 1.0 (the shape DeriveWeights produces).
//
// Normalization is min-max per criterion across this batch only: QVF is a
// relative prioritization tool, so an item's score may change between
// batches even with unchanged raw values. Items missing a criterion value
// are skipped individually and reported; one malformed item never blocks
// the rest.
func (s *Scorer) ScoreWorkItems(items []WorkItem, weights map[string]float64, criteria []Criterion) ([]ScoreRecord, []SkippedItem, error) {
	if err := validateWeights(weights, criteria); err != nil {
		return nil, nil, err
	}

	// First pass: split scorable from skipped, collect per-criterion
	// min/max across the scorable items.
	var scorable []WorkItem
	var skipped []SkippedItem
	ranges := make(map[string]*criterionRange, len(criteria))

itemLoop:
	for _, item := range items {
		for _, c := range criteria {
			if _, ok := item.Values[c.ID]; !ok {
				err := &MissingCriterionValueError{ItemID: item.ID, CriterionID: c.ID}
				skipped = append(skipped, SkippedItem{ItemID: item.ID, Reason: err.Error()})
				if s.logger != nil {
					s.logger.Warn("skipping work item", "item_id", item.ID, "criterion", c.ID)
				}
				continue itemLoop
			}
		}
		scorable = append(scorable, item)
		for _, c := range criteria {
			v := item.Values[c.ID]
			r, ok := ranges[c.ID]
			if !ok {
				ranges[c.ID] = &criterionRange{min: v, max: v}
				continue
			}
			r.min = math.Min(r.min, v)
			r.max = math.Max(r.max, v)
		}
	}

	// Second pass: normalize and weight.
	records := make([]ScoreRecord, 0, len(scorable))
	for _, item := range scorable {
		rec := ScoreRecord{
			ItemID:        item.ID,
			Title:         item.Title,
			ItemType:      item.Type,
			Contributions: make([]Contribution, 0, len(criteria)),
		}
		var total float64
		for _, c := range criteria {
			v := item.Values[c.ID]
			w := weights[c.ID]
			norm := normalize(v, *ranges[c.ID], c.Direction)
			contrib := Contribution{
				CriterionID: c.ID,
				RawValue:    v,
				Normalized:  norm,
				Weight:      w,
				Weighted:    w * norm,
			}
			total += contrib.Weighted
			rec.Contributions = append(rec.Contributions, contrib)
		}
		rec.Score = clamp(total, 0, 1)
		rec.Tier = s.thresholds.Classify(rec.Score)
		records = append(records, rec)
	}

	return records, skipped, nil
}

// Thresholds returns the configured tier thresholds.
func (s *Scorer) Thresholds() TierThresholds { return s.thresholds }

// normalize min-max scales v into [0,1] for its criterion's batch range,
// inverting for lower-is-better criteria. A zero-variance criterion carries
// no discriminating information; every item gets 1.0 so the contribution
// equals the bare weight rather than dropping to zero.
func normalize(v float64, r criterionRange, d Direction) float64 {
	if r.max == r.min {
		return 1.0
	}
	norm := (v - r.min) / (r.max - r.min)
	if d == DirectionLowerBetter {
		norm = 1.0 - norm
	}
	return clamp(norm, 0, 1)
}

func validateWeights(weights map[string]float64, criteria []Criterion) error {
	if len(criteria) == 0 {
		return fmt.Errorf("criteria set is empty")
	}
	var sum float64
	for _, c := range criteria {
		if !c.Direction.Valid() {
			return fmt.Errorf("criterion %s has invalid direction %q", c.ID, c.Direction)
		}
		w, ok := weights[c.ID]
		if !ok {
			return fmt.Errorf("no weight for criterion %s", c.ID)
		}
		if w < 0 {
			return fmt.Errorf("negative weight %f for criterion %s", w, c.ID)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("weights sum to %.6f, must sum to 1.0", sum)
	}
	return nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
