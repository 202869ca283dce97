package measurement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"

	"scan-analysis/models"
)

type PipelineOptions struct {
	Workers int
	Logger  *slog.Logger
}

func (o PipelineOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// RedirectResult is the outcome of one redirect pass over init.jsonl.
type RedirectResult struct {
	Providers *ProviderMap
	Chains    []models.CanonicalChain // sorted by queried domain
	Stats     ResolveStats
	Records   int
	Malformed int
}

func newRedirectResult() *RedirectResult {
	return &RedirectResult{Providers: NewProviderMap()}
}

func (r *RedirectResult) merge(o *RedirectResult) {
	r.Providers.Merge(o.Providers)
	r.Chains = append(r.Chains, o.Chains...)
	r.Stats.Add(o.Stats)
	r.Records += o.Records
	r.Malformed += o.Malformed
}

// RunRedirects resolves every chain of the given protocol in the raw probe
// stream and attributes each accepted chain to its provider.
func RunRedirects(ctx context.Context, r io.Reader, protocol Protocol, opts PipelineOptions) (*RedirectResult, error) {
	log := opts.logger().With("protocol", string(protocol))
	parts, err := Partition(ctx, r, opts.Workers, newRedirectResult, func(acc *RedirectResult, no int, line []byte) {
		rec, err := decodeLine[models.DomainResult](no, line)
		if err != nil {
			acc.Malformed++
			log.Debug("skipping invalid JSON line", "err", err)
			return
		}
		acc.Records++
		for _, chain := range ExtractRedirects(&rec, protocol, &acc.Stats) {
			acc.Providers.Accumulate(rec.Domain, chain)
			acc.Chains = append(acc.Chains, chain)
		}
	})
	if err != nil {
		return nil, err
	}

	result := newRedirectResult()
	for _, p := range parts {
		result.merge(p)
	}
	sort.SliceStable(result.Chains, func(i, j int) bool {
		return result.Chains[i].Domain < result.Chains[j].Domain
	})
	log.Info("redirect pass finished",
		"records", result.Records,
		"malformed", result.Malformed,
		"attempts", result.Stats.Attempts,
		"accepted", result.Stats.Accepted,
		"providers", result.Providers.Len())
	return result, nil
}

// AccumulateChains rebuilds provider statistics from a persisted
// filtered_redirects JSONL stream.
func AccumulateChains(ctx context.Context, r io.Reader, opts PipelineOptions) (*ProviderMap, int, error) {
	log := opts.logger()
	type part struct {
		providers *ProviderMap
		malformed int
	}
	parts, err := Partition(ctx, r, opts.Workers, func() *part { return &part{providers: NewProviderMap()} },
		func(acc *part, no int, line []byte) {
			chain, err := decodeLine[models.CanonicalChain](no, line)
			if err == nil && len(chain.Redirects) == 0 {
				err = &MalformedRecordError{Line: no, Err: errors.New("empty redirects")}
			}
			if err != nil {
				acc.malformed++
				log.Debug("skipping invalid chain line", "err", err)
				return
			}
			acc.providers.Accumulate(chain.Domain, chain)
		})
	if err != nil {
		return nil, 0, err
	}
	providers, malformed := NewProviderMap(), 0
	for _, p := range parts {
		providers.Merge(p.providers)
		malformed += p.malformed
	}
	return providers, malformed, nil
}

// ClusterResult is the outcome of one cluster pass.
type ClusterResult struct {
	Clusters  *ClusterMap
	Records   int
	Malformed int
}

// RunClusters groups domains by the (type, port, server) their check results
// advertise. With raw set, r holds probe records and check results are
// derived on the fly.
func RunClusters(ctx context.Context, r io.Reader, raw bool, opts PipelineOptions) (*ClusterResult, error) {
	log := opts.logger()
	newAcc := func() *ClusterResult { return &ClusterResult{Clusters: NewClusterMap()} }
	parts, err := Partition(ctx, r, opts.Workers, newAcc, func(acc *ClusterResult, no int, line []byte) {
		var check *models.DomainCheckResult
		if raw {
			rec, err := decodeLine[models.DomainResult](no, line)
			if err != nil {
				acc.Malformed++
				log.Debug("skipping invalid JSON line", "err", err)
				return
			}
			acc.Records++
			if check = ProcessDomainResult(&rec); check == nil {
				return
			}
		} else {
			rec, err := decodeLine[models.DomainCheckResult](no, line)
			if err != nil {
				acc.Malformed++
				log.Debug("skipping invalid JSON line", "err", err)
				return
			}
			acc.Records++
			check = &rec
		}
		for _, skipped := range acc.Clusters.AddCheckResult(check) {
			log.Debug("skipping protocol entry", "err", skipped)
		}
	})
	if err != nil {
		return nil, err
	}

	result := newAcc()
	for _, p := range parts {
		result.Clusters.Merge(p.Clusters)
		result.Records += p.Records
		result.Malformed += p.Malformed
	}
	log.Info("cluster pass finished",
		"records", result.Records,
		"malformed", result.Malformed,
		"targets", result.Clusters.Len(),
		"incomplete", result.Clusters.Incomplete)
	return result, nil
}
