package entity

// Family identifies an entity family. The value doubles as the cache
// invalidation tag understood by the read layer.
type Family string

const (
	FamilyDeviations Family = "deviations"
	FamilyOvertime   Family = "overtime-orders"
	FamilyInventory  Family = "it-inventory"
	FamilyFailures   Family = "failures"
)

// String returns the string representation of the family
func (f Family) String() string {
	return string(f)
}
