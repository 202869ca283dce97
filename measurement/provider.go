package measurement

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"scan-analysis/models"
)

// ProviderMap records which queried domains each provider ends up serving.
// Keep one map per protocol.
type ProviderMap struct {
	served map[models.Provider]map[string]struct{}
}

func NewProviderMap() *ProviderMap {
	return &ProviderMap{served: make(map[models.Provider]map[string]struct{})}
}

// Accumulate credits chain's final provider with domain. Re-inserting the
// same pair is a no-op.
func (m *ProviderMap) Accumulate(domain string, chain models.CanonicalChain) {
	p := chain.Attributed()
	if p.Domain == "" {
		return
	}
	set, ok := m.served[p]
	if !ok {
		set = make(map[string]struct{})
		m.served[p] = set
	}
	set[domain] = struct{}{}
}

// Merge unions other into m.
func (m *ProviderMap) Merge(other *ProviderMap) {
	for p, domains := range other.served {
		set, ok := m.served[p]
		if !ok {
			set = make(map[string]struct{}, len(domains))
			m.served[p] = set
		}
		for d := range domains {
			set[d] = struct{}{}
		}
	}
}

func (m *ProviderMap) Len() int { return len(m.served) }

// Customers returns the domains served by p, sorted.
func (m *ProviderMap) Customers(p models.Provider) []string {
	return mapToSlice(m.served[p])
}

// Domains returns every queried domain attributed to some provider.
func (m *ProviderMap) Domains() []string {
	all := make(map[string]struct{})
	for _, set := range m.served {
		for d := range set {
			all[d] = struct{}{}
		}
	}
	return mapToSlice(all)
}

// Export flattens the map to provider key -> domains. Domain lists are
// sorted only to keep artifacts diffable; consumers must not rely on order.
func (m *ProviderMap) Export() map[string][]string {
	out := make(map[string][]string, len(m.served))
	for p, set := range m.served {
		out[p.Key()] = mapToSlice(set)
	}
	return out
}

// LoadProviderStats reads a map previously written from Export.
func LoadProviderStats(r io.Reader) (map[string][]string, error) {
	var stats map[string][]string
	if err := json.NewDecoder(r).Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode provider statistics: %w", err)
	}
	return stats, nil
}

func mapToSlice(m map[string]struct{}) []string {
	slice := make([]string, 0, len(m))
	for key := range m {
		slice = append(slice, key)
	}
	sort.Strings(slice)
	return slice
}
