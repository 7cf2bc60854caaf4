// Package contacts carries the contact-group whitelist shared by the codec
// and the query builder.
package contacts

import "sort"

// GroupIDs is the set of contact ids allowed for backup. A nil *GroupIDs
// means "everybody".
type GroupIDs struct {
	ids map[int64]struct{}
}

// NewGroupIDs builds a whitelist from raw contact ids.
func NewGroupIDs(ids []int64) *GroupIDs {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &GroupIDs{ids: set}
}

// Contains reports whether a contact id is in the whitelist.
func (g *GroupIDs) Contains(id int64) bool {
	if g == nil {
		return true
	}
	_, ok := g.ids[id]
	return ok
}

// Raw returns the whitelisted ids in ascending order.
func (g *GroupIDs) Raw() []int64 {
	if g == nil {
		return nil
	}
	out := make([]int64, 0, len(g.ids))
	for id := range g.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Size returns the number of whitelisted ids.
func (g *GroupIDs) Size() int {
	if g == nil {
		return 0
	}
	return len(g.ids)
}
