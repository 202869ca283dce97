package measurement

import (
	"errors"
	"fmt"
	"strings"

	"scan-analysis/models"
	"scan-analysis/utils"
)

// Protocol selects which probe attempts of a DomainResult are analysed.
type Protocol string

const (
	Autodiscover Protocol = "autodiscover"
	Autoconfig   Protocol = "autoconfig"
)

func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case Autodiscover, Autoconfig:
		return p, nil
	}
	return "", fmt.Errorf("unknown protocol %q (want autodiscover or autoconfig)", s)
}

// Errors the probe records when the config body was unusable. Such an
// attempt is dropped even if the HTTP chain itself succeeded.
var fatalProbeErrors = []string{
	"failed to unmarshal",
	"failed to read response body",
}

// ResolveChain applies the acceptance gate, canonicalizes each hop and
// resolves loops back to the starting domain.
func ResolveChain(queried string, hops []models.Hop, probeErr string) (models.CanonicalChain, error) {
	if len(hops) == 0 {
		return models.CanonicalChain{}, ErrEmptyChain
	}
	if status := hops[len(hops)-1].Status; status < 200 || status >= 300 {
		return models.CanonicalChain{}, fmt.Errorf("%w (%d)", ErrTerminalStatus, status)
	}
	for _, prefix := range fatalProbeErrors {
		if strings.HasPrefix(probeErr, prefix) {
			return models.CanonicalChain{}, fmt.Errorf("%w: %s", ErrFatalProbe, prefix)
		}
	}

	normalized := make([]string, len(hops))
	for i, hop := range hops {
		d, err := utils.RegistrableDomain(hop.URL)
		if err != nil {
			return models.CanonicalChain{}, fmt.Errorf("hop %d: %w", i, err)
		}
		normalized[i] = d
	}

	first, last := normalized[0], normalized[len(normalized)-1]
	if first != last {
		return models.CanonicalChain{Domain: queried, Redirects: normalized}, nil
	}

	self, err := utils.RegistrableDomain(queried)
	if err != nil {
		return models.CanonicalChain{}, fmt.Errorf("queried domain: %w", err)
	}
	if first != self {
		// probe started from a different host than the queried domain (e.g. SRV target)
		return models.CanonicalChain{Domain: queried, Redirects: []string{self, first}}, nil
	}
	return models.CanonicalChain{
		Domain:    queried,
		Redirects: []string{models.SelfLoopPrefix + first, first},
		SelfLoop:  true,
	}, nil
}

// ResolveStats counts what happened to the attempts of one pass.
type ResolveStats struct {
	Attempts        int
	Accepted        int
	Empty           int
	BadStatus       int
	FatalProbeError int
	InvalidHost     int
}

func (s *ResolveStats) record(err error) {
	s.Attempts++
	switch {
	case err == nil:
		s.Accepted++
	case errors.Is(err, ErrEmptyChain):
		s.Empty++
	case errors.Is(err, ErrTerminalStatus):
		s.BadStatus++
	case errors.Is(err, ErrFatalProbe):
		s.FatalProbeError++
	default:
		s.InvalidHost++
	}
}

// Add folds another partition's counters into s.
func (s *ResolveStats) Add(o ResolveStats) {
	s.Attempts += o.Attempts
	s.Accepted += o.Accepted
	s.Empty += o.Empty
	s.BadStatus += o.BadStatus
	s.FatalProbeError += o.FatalProbeError
	s.InvalidHost += o.InvalidHost
}

type attempt struct {
	redirects []map[string]interface{}
	err       string
}

func attemptsOf(rec *models.DomainResult, protocol Protocol) []attempt {
	var out []attempt
	switch protocol {
	case Autodiscover:
		for _, e := range rec.Autodiscover {
			out = append(out, attempt{e.Redirects, e.Error})
		}
	case Autoconfig:
		for _, e := range rec.Autoconfig {
			out = append(out, attempt{e.Redirects, e.Error})
		}
	}
	return out
}

// ExtractRedirects resolves every probe attempt of the given protocol.
// Attempts without any redirect history are not counted.
func ExtractRedirects(rec *models.DomainResult, protocol Protocol, stats *ResolveStats) []models.CanonicalChain {
	var chains []models.CanonicalChain
	for _, a := range attemptsOf(rec, protocol) {
		if len(a.redirects) == 0 {
			continue
		}
		chain, err := ResolveChain(rec.Domain, utils.HopsFromRedirects(a.redirects), a.err)
		if stats != nil {
			stats.record(err)
		}
		if err != nil {
			continue
		}
		chains = append(chains, chain)
	}
	return chains
}
