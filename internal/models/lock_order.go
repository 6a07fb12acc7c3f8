package models

import "slices"

// LockOrder returns the distinct account numbers in ascending order. Every
// unit of work takes its accounts in this order so that two units touching
// the same pair can never wait on each other in a cycle.
func LockOrder(accountNos ...int64) []int64 {
	out := slices.Clone(accountNos)
	slices.Sort(out)
	return slices.Compact(out)
}
