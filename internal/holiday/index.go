package holiday

import (
	"sort"
	"time"

	"github.com/username/festival-planner/pkg/dateutil"
)

// Index maps day keys (YYYY-MM-DD) to holiday labels.
// An Index is rebuilt in full on every load and never patched.
type Index map[string]string

// Lookup returns the label for the given date
func (idx Index) Lookup(date time.Time) (string, bool) {
	label, ok := idx[dateutil.DayKey(date)]
	return label, ok
}

// Has reports whether key is a holiday
func (idx Index) Has(key string) bool {
	_, ok := idx[key]
	return ok
}

// Keys returns all day keys in ascending order
func (idx Index) Keys() []string {
	keys := make([]string, 0, len(idx))
	for key := range idx {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Underlay returns a new index holding idx plus every entry of other whose
// day is not already present in idx
func (idx Index) Underlay(other Index) Index {
	merged := make(Index, len(idx)+len(other))
	for key, label := range other {
		merged[key] = label
	}
	for key, label := range idx {
		merged[key] = label
	}
	return merged
}
