package cache

import (
	"sort"
)

// Default bounds applied when the configuration does not override them
const (
	DefaultMaxSize        = 50
	DefaultEvictionBuffer = 5
)

// Policy decides when a category has grown too large and which entries go.
//
// Eviction fires only once the count exceeds MaxSize+Buffer and then trims the
// category back to exactly MaxSize, oldest first. A nil MaxSize disables
// eviction entirely.
type Policy struct {
	MaxSize *int
	Buffer  int
}

// DefaultPolicy returns the policy used when none is configured
func DefaultPolicy() Policy {
	return BoundedPolicy(DefaultMaxSize, DefaultEvictionBuffer)
}

// BoundedPolicy returns a policy keeping at most maxSize entries after each pass
func BoundedPolicy(maxSize, buffer int) Policy {
	return Policy{MaxSize: &maxSize, Buffer: buffer}
}

// UnboundedPolicy returns a policy that never evicts
func UnboundedPolicy() Policy {
	return Policy{}
}

// Bounded reports whether eviction is enabled
func (p Policy) Bounded() bool {
	return p.MaxSize != nil
}

// Exceeded reports whether count has used up the buffer above MaxSize
func (p Policy) Exceeded(count int) bool {
	return p.Bounded() && count > *p.MaxSize+p.Buffer
}

// Victims returns the names to remove so that exactly MaxSize entries remain.
// Entries are ordered by timestamp ascending, then by name.
func (p Policy) Victims(entries []Entry) []string {
	if !p.Bounded() || len(entries) <= *p.MaxSize {
		return nil
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].Name < sorted[j].Name
	})

	n := len(sorted) - *p.MaxSize
	victims := make([]string, n)
	for i := 0; i < n; i++ {
		victims[i] = sorted[i].Name
	}
	return victims
}

// EvictionReport describes one eviction pass
type EvictionReport struct {
	Count   int
	Evicted []string
	Failed  map[string]error
}

// Ran reports whether the pass removed or tried to remove anything
func (r EvictionReport) Ran() bool {
	return len(r.Evicted) > 0 || len(r.Failed) > 0
}
