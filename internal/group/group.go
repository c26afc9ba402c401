// Package group clusters entries that render as the same item.
package group

// Key identifies one render unit. Two items with equal keys collapse into
// one heading carrying several timestamps.
type Key struct {
	// Identity is the shared event identity, or kind plus heading path for
	// outline entries.
	Identity string
	Title    string
	Duration string
	Part     string
	Seconds  int64
}

// Keyer is implemented by anything that can be grouped.
type Keyer interface {
	GroupKey() Key
}

// Group is one render unit. Members keep insertion order.
type Group[T Keyer] struct {
	Key     Key
	Members []T
}

// First returns the representative member.
func (g Group[T]) First() T {
	return g.Members[0]
}

// By groups items by key, keeping the order in which keys were first seen.
func By[T Keyer](items []T) []Group[T] {
	index := make(map[Key]int)
	groups := make([]Group[T], 0)
	for _, it := range items {
		k := it.GroupKey()
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[T]{Key: k})
		}
		groups[i].Members = append(groups[i].Members, it)
	}
	return groups
}
