package measurement

import (
	"sort"
	"strings"

	"scan-analysis/models"
)

// SmallProviderNode absorbs every provider below the size threshold.
const SmallProviderNode = "small_provider"

type BucketOptions struct {
	TLDs           []string // checked in order, first suffix match wins
	OtherKey       string
	SmallThreshold int
}

// ClassifyTLD returns the first entry of tlds that domain ends with.
func ClassifyTLD(domain string, tlds []string, otherKey string) string {
	for _, tld := range tlds {
		if strings.HasSuffix(domain, tld) {
			return tld
		}
	}
	return otherKey
}

// BucketByTLD turns provider statistics into TLD -> provider flow edges.
// Providers with fewer than SmallThreshold customers are merged into one
// small_provider node per TLD bucket. Each (source, target) pair appears
// once; the result is sorted by source then target.
func BucketByTLD(stats map[string][]string, opts BucketOptions) []models.Edge {
	type pair struct{ source, target string }
	sums := make(map[pair]int)

	for provider, customers := range stats {
		target := provider
		if len(customers) < opts.SmallThreshold {
			target = SmallProviderNode
		}
		for _, customer := range customers {
			tld := ClassifyTLD(customer, opts.TLDs, opts.OtherKey)
			sums[pair{tld, target}]++
		}
	}

	edges := make([]models.Edge, 0, len(sums))
	for k, v := range sums {
		edges = append(edges, models.Edge{Source: k.source, Target: k.target, Value: v})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
	return edges
}

// SmallProviders lists providers with fewer than threshold customers,
// ascending by customer count. ContainsSelf is set when the provider's own
// domain is among its customers.
func SmallProviders(stats map[string][]string, threshold int) []models.SmallProvider {
	var out []models.SmallProvider
	for key, customers := range stats {
		if len(customers) >= threshold {
			continue
		}
		self := models.ParseProvider(key).Domain
		containsSelf := false
		for _, c := range customers {
			if c == self || c == key {
				containsSelf = true
				break
			}
		}
		out = append(out, models.SmallProvider{
			Provider:      key,
			CustomerCount: len(customers),
			ContainsSelf:  containsSelf,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CustomerCount != out[j].CustomerCount {
			return out[i].CustomerCount < out[j].CustomerCount
		}
		return out[i].Provider < out[j].Provider
	})
	return out
}
