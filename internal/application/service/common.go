package service

import "fmt"

// BulkResult reports the outcome of a bulk transition over a mixed
// batch. Partial success is expected: eligible items are applied,
// ineligible items are skipped, faults are counted separately.
type BulkResult struct {
	Modified int `json:"modified"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// internalID formats the human-readable sequential id, e.g. "7/25"
func internalID(n, year int) string {
	return fmt.Sprintf("%d/%02d", n, year%100)
}
