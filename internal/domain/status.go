package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Priority is both the alert tier and the decision priority.
type Priority string

const (
	PriorityLow       Priority = "LOW"
	PriorityMedium    Priority = "MEDIUM"
	PriorityHigh      Priority = "HIGH"
	PriorityUrgent    Priority = "URGENT"
	PriorityEmergency Priority = "EMERGENCY"
)

var priorityRanks = map[Priority]int{
	PriorityLow:       0,
	PriorityMedium:    1,
	PriorityHigh:      2,
	PriorityUrgent:    3,
	PriorityEmergency: 4,
}

// Rank orders priorities from LOW (0) to EMERGENCY (4). Unknown values rank -1.
func (p Priority) Rank() int {
	if r, ok := priorityRanks[p]; ok {
		return r
	}
	return -1
}

// Escalated reports whether the priority always needs a human in the loop.
func (p Priority) Escalated() bool {
	return p == PriorityEmergency || p == PriorityUrgent
}

// ParsePriority returns the priority for a given label (case-insensitive).
func ParsePriority(label string) (Priority, bool) {
	p := Priority(strings.ToUpper(strings.TrimSpace(label)))
	_, ok := priorityRanks[p]
	return p, ok
}

// ThresholdType names the stock condition that raised an alert.
type ThresholdType string

const (
	ThresholdOutOfStock   ThresholdType = "out_of_stock"
	ThresholdCritical     ThresholdType = "critical"
	ThresholdMinimum      ThresholdType = "minimum"
	ThresholdSeasonalPrep ThresholdType = "seasonal_prep"
)

// ActionType is what the engine recommends doing with an item.
type ActionType string

const (
	ActionRestock ActionType = "RESTOCK"
	ActionHold    ActionType = "HOLD"
)

// ApprovalStatus tracks how a decision is routed after the gate.
type ApprovalStatus string

const (
	ApprovalAutoApproved ApprovalStatus = "AUTO_APPROVED"
	ApprovalPending      ApprovalStatus = "PENDING_APPROVAL"
	ApprovalNotRequired  ApprovalStatus = "NOT_REQUIRED"
)

// StockoutDays is a non-negative days-until-stockout estimate. StockoutUnknown
// marks items with no measurable consumption and is never a real ETA.
type StockoutDays int

const StockoutUnknown StockoutDays = 999

// Known reports whether d is a real estimate.
func (d StockoutDays) Known() bool {
	return d != StockoutUnknown
}

func (d StockoutDays) String() string {
	if !d.Known() {
		return "unknown"
	}
	return strconv.Itoa(int(d))
}

func (d StockoutDays) MarshalJSON() ([]byte, error) {
	if !d.Known() {
		return []byte(`"unknown"`), nil
	}
	return []byte(strconv.Itoa(int(d))), nil
}

func (d *StockoutDays) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		if strings.EqualFold(v, "unknown") {
			*d = StockoutUnknown
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid days until stockout %q", v)
		}
		*d = StockoutDays(n)
	case float64:
		*d = StockoutDays(int(v))
	default:
		return fmt.Errorf("invalid days until stockout %v", raw)
	}
	return nil
}

// NormalizeCategory upper-cases a category and folds spaces and dashes to
// underscores so "Writing instruments" and "WRITING_INSTRUMENTS" match.
func NormalizeCategory(category string) string {
	c := strings.ToUpper(strings.TrimSpace(category))
	c = strings.NewReplacer(" ", "_", "-", "_").Replace(c)
	return c
}
