package models

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// AutodiscoverResult 保存每次Autodiscover查询的结果
type AutodiscoverResult struct {
	Domain            string                   `json:"domain"`
	AutodiscoverCNAME []string                 `json:"autodiscovercname,omitempty"`
	Method            string                   `json:"method"` // POST, GET, SRV ...
	Index             int                      `json:"index"`
	URI               string                   `json:"uri"`
	Redirects         []map[string]interface{} `json:"redirects"` // 重定向链
	Config            string                   `json:"config"`
	Error             string                   `json:"error"`
}

// AutoconfigResult 保存每次Autoconfig查询的结果
type AutoconfigResult struct {
	Domain    string                   `json:"domain"`
	Method    string                   `json:"method"`
	Index     int                      `json:"index"`
	URI       string                   `json:"uri"`
	Redirects []map[string]interface{} `json:"redirects"`
	Config    string                   `json:"config"`
	Error     string                   `json:"error"`
}

type SRVRecord struct {
	Service  string
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   string
}

type SRVResult struct {
	Domain      string      `json:"domain"`
	RecvRecords []SRVRecord `json:"recv_records,omitempty"` // IMAP/POP3
	SendRecords []SRVRecord `json:"send_records,omitempty"` // SMTP
}

// DomainResult is one line of the raw probe output (init.jsonl).
type DomainResult struct {
	Domain_id     int                  `json:"id"`
	Domain        string               `json:"domain"`
	CNAME         []string             `json:"cname,omitempty"`
	Autodiscover  []AutodiscoverResult `json:"autodiscover"`
	Autoconfig    []AutoconfigResult   `json:"autoconfig"`
	SRV           SRVResult            `json:"srv"`
	GUESS         []string             `json:"guess"`
	Timestamp     string               `json:"timestamp"`
	ErrorMessages []string             `json:"errors"`
}

// Hop is one step of a redirect chain, in chain order.
type Hop struct {
	URL    string `json:"URL"`
	Status int    `json:"Status"`
}

// SelfLoopPrefix marks self-loop providers in persisted artifacts.
const SelfLoopPrefix = "preself"

// Provider identifies who ultimately served a queried domain. SelfLoop is
// set when the domain's chain left and came back to the domain itself.
type Provider struct {
	Domain   string
	SelfLoop bool
}

// Key renders the provider the way it appears in exported maps.
func (p Provider) Key() string {
	if p.SelfLoop {
		return SelfLoopPrefix + p.Domain
	}
	return p.Domain
}

func (p Provider) String() string { return p.Key() }

// ParseProvider inverts Key. The prefix form is only trusted at the
// artifact boundary; in memory the SelfLoop flag is authoritative.
func ParseProvider(key string) Provider {
	if len(key) > len(SelfLoopPrefix) && key[:len(SelfLoopPrefix)] == SelfLoopPrefix {
		return Provider{Domain: key[len(SelfLoopPrefix):], SelfLoop: true}
	}
	return Provider{Domain: key}
}

// CanonicalChain is an accepted redirect chain after canonicalization and
// loop resolution. One line of filtered_redirects_<protocol>.jsonl.
type CanonicalChain struct {
	Domain    string   `json:"domain"`
	Redirects []string `json:"redirects"`
	SelfLoop  bool     `json:"self_loop,omitempty"`
}

// Attributed returns the provider credited with serving c.Domain.
func (c CanonicalChain) Attributed() Provider {
	if len(c.Redirects) == 0 {
		return Provider{}
	}
	return Provider{Domain: c.Redirects[len(c.Redirects)-1], SelfLoop: c.SelfLoop}
}

// FlexString accepts a JSON string, number or null. Ports show up as both.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	switch r.Type {
	case gjson.Null:
		*f = ""
	case gjson.String, gjson.Number:
		*f = FlexString(r.String())
	default:
		return fmt.Errorf("unexpected JSON %s for string field", r.Raw)
	}
	return nil
}

type ProtocolInfo struct {
	Type           string     `json:"Type"`
	Server         string     `json:"Server"`
	Port           FlexString `json:"Port"`
	DomainRequired string     `json:"DomainRequired,omitempty"`
	SPA            string     `json:"SPA,omitempty"`
	SSL            string     `json:"SSL,omitempty"`
	AuthRequired   string     `json:"AuthRequired,omitempty"`
	Encryption     string     `json:"Encryption,omitempty"`
	SingleCheck    string     `json:"SingleCheck"`
	Priority       string     `json:"Priority,omitempty"` // SRV
	Weight         string     `json:"Weight,omitempty"`
}

type MethodConfig struct {
	Method       string          `json:"Method"`
	Protocols    []*ProtocolInfo `json:"Protocols"`
	OverallCheck string          `json:"OverallCheck"`
}

type ResultKind int

const (
	NoResult ResultKind = iota
	SingleResult
	ResultList
)

// CheckResults holds a check-type field that may be absent, null, a single
// MethodConfig object or an array of them.
type CheckResults struct {
	Kind    ResultKind
	Results []*MethodConfig
}

// Single wraps one config, or yields NoResult for nil.
func Single(mc *MethodConfig) CheckResults {
	if mc == nil {
		return CheckResults{}
	}
	return CheckResults{Kind: SingleResult, Results: []*MethodConfig{mc}}
}

// List wraps several configs as an array-valued field.
func List(mcs ...*MethodConfig) CheckResults {
	return CheckResults{Kind: ResultList, Results: mcs}
}

// Configs returns the non-nil configs regardless of the JSON shape.
func (c CheckResults) Configs() []*MethodConfig {
	out := make([]*MethodConfig, 0, len(c.Results))
	for _, mc := range c.Results {
		if mc != nil {
			out = append(out, mc)
		}
	}
	return out
}

func (c *CheckResults) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	switch {
	case r.Type == gjson.Null:
		*c = CheckResults{}
	case r.IsArray():
		var list []*MethodConfig
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*c = CheckResults{Kind: ResultList, Results: list}
	case r.IsObject():
		var mc MethodConfig
		if err := json.Unmarshal(b, &mc); err != nil {
			return err
		}
		*c = Single(&mc)
	default:
		return fmt.Errorf("check result: unexpected JSON %s", r.Raw)
	}
	return nil
}

func (c CheckResults) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case SingleResult:
		if len(c.Results) == 0 {
			return []byte("null"), nil
		}
		return json.Marshal(c.Results[0])
	case ResultList:
		if c.Results == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(c.Results)
	default:
		return []byte("null"), nil
	}
}

// DomainCheckResult is one line of check_results.jsonl.
type DomainCheckResult struct {
	Domain                   string       `json:"Domain"`
	AutodiscoverCheckResult  CheckResults `json:"AutodiscoverCheckResult"` // 以防有不同path的config不一致的情况，用数组表示
	AutoconfigCheckResult    CheckResults `json:"AutoconfigCheckResult"`
	SRVCheckResult           CheckResults `json:"SRVCheckResult"`
	AutodiscoverInconsistent bool         `json:"AutodiscoverInconsistent,omitempty"`
	AutoconfigInconsistent   bool         `json:"AutoconfigInconsistent,omitempty"`
	Inconsistent             bool         `json:"Inconsistent,omitempty"`
}

// All returns the check-type fields in a fixed order.
func (d *DomainCheckResult) All() []CheckResults {
	return []CheckResults{d.AutoconfigCheckResult, d.AutodiscoverCheckResult, d.SRVCheckResult}
}

// Edge is one weighted flow from a TLD bucket to a provider node.
type Edge struct {
	Source string
	Target string
	Value  int
}

// SmallProvider is one row of the small-provider report.
type SmallProvider struct {
	Provider      string
	CustomerCount int
	ContainsSelf  bool
}

// ClusterKey identifies one connectivity-test target.
type ClusterKey struct {
	Type   string
	Port   string
	Server string
}

// Group is the top-level cluster key, e.g. "imap-993".
func (k ClusterKey) Group() string {
	return k.Type + "-" + k.Port
}
