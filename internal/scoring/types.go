package scoring

import "fmt"

// Direction states whether higher or lower raw values are better for a
// criterion. Business value is higher-better; risk and complexity are
// typically lower-better.
type Direction string

const (
	DirectionHigherBetter Direction = "higher_better"
	DirectionLowerBetter  Direction = "lower_better"
)

// Valid reports whether d is a recognized direction.
func (d Direction) Valid() bool {
	return d == DirectionHigherBetter || d == DirectionLowerBetter
}

// Criterion is one evaluation dimension in the active criteria set. The set
// is fixed per comparison session; judgments and work-item values both key
// off the same ordered list.
type Criterion struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
}

// WorkItemType classifies an item in the work hierarchy. Scoring treats
// every item independently regardless of type.
type WorkItemType string

const (
	ItemTypeEpic    WorkItemType = "epic"
	ItemTypeFeature WorkItemType = "feature"
	ItemTypeStory   WorkItemType = "story"
	ItemTypeTask    WorkItemType = "task"
)

// WorkItem is a read-only scoring input supplied by the work-tracking
// system. Values maps criterion id to the item's raw value for that
// criterion; every criterion in the active set must be present.
type WorkItem struct {
	ID     string             `json:"id"`
	Title  string             `json:"title"`
	Type   WorkItemType       `json:"type"`
	Values map[string]float64 `json:"values"`
}

// MissingCriterionValueError reports a work item that lacks a value for a
// required criterion. It is scoped to that single item; the rest of the
// batch still scores.
type MissingCriterionValueError struct {
	ItemID      string
	CriterionID string
}

func (e *MissingCriterionValueError) Error() string {
	return fmt.Sprintf("work item %s has no value for criterion %s", e.ItemID, e.CriterionID)
}

// SkippedItem records a work item dropped from a scoring batch and why, so
// callers can surface per-item diagnostics alongside the partial results.
type SkippedItem struct {
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}
