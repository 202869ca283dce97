package measurement

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func probeLine(domain string, chains ...string) string {
	return fmt.Sprintf(`{"id":1,"domain":%q,"autoconfig":[%s],"autodiscover":[]}`, domain, strings.Join(chains, ","))
}

func redirectsJSON(status int, urls ...string) string {
	entries := make([]string, len(urls))
	for i, u := range urls {
		s := 301
		if i == len(urls)-1 {
			s = status
		}
		entries[i] = fmt.Sprintf(`{"URL":%q,"Status":%d}`, u, s)
	}
	return `{"method":"directurl","redirects":[` + strings.Join(entries, ",") + `],"config":"","error":""}`
}

func sampleProbeStream() string {
	lines := []string{
		probeLine("a.com", redirectsJSON(200, "http://autoconfig.a.com/mail/config-v1.1.xml", "https://mail.provider.net/x")),
		probeLine("b.com", redirectsJSON(200, "http://autoconfig.b.com/x", "https://login.provider.net/y")),
		"{not json",
		"",
		probeLine("c.com", redirectsJSON(404, "http://autoconfig.c.com/x", "https://other.org/404")),
		probeLine("d.com", redirectsJSON(200, "http://autoconfig.d.com/x", "https://out.net/", "https://www.d.com/x")),
		probeLine("e.co.uk", redirectsJSON(200, "https://mx.e.co.uk/x")),
	}
	for i := 0; i < 40; i++ {
		lines = append(lines, probeLine(fmt.Sprintf("bulk%02d.com", i), redirectsJSON(200, fmt.Sprintf("http://bulk%02d.com/", i), "https://host.provider.net/")))
	}
	return strings.Join(lines, "\n") + "\n"
}

func TestRunRedirects(t *testing.T) {
	res, err := RunRedirects(context.Background(), strings.NewReader(sampleProbeStream()), Autoconfig, PipelineOptions{Workers: 1})
	if err != nil {
		t.Fatalf("RunRedirects: %v", err)
	}
	if res.Malformed != 1 {
		t.Fatalf("Malformed = %d, want 1", res.Malformed)
	}
	if res.Records != 45 {
		t.Fatalf("Records = %d, want 45", res.Records)
	}
	if res.Stats.BadStatus != 1 {
		t.Fatalf("BadStatus = %d, want 1", res.Stats.BadStatus)
	}

	export := res.Providers.Export()
	if _, ok := export["other.org"]; ok {
		t.Fatalf("404 chain must not be attributed")
	}
	if got := len(export["provider.net"]); got != 42 {
		t.Fatalf("provider.net customers = %d, want 42", got)
	}
	if got := export["preselfd.com"]; !reflect.DeepEqual(got, []string{"d.com"}) {
		t.Fatalf("self-loop entry = %v", got)
	}
	if got := export["preselfe.co.uk"]; !reflect.DeepEqual(got, []string{"e.co.uk"}) {
		t.Fatalf("single-hop self entry = %v", got)
	}
	for i := 1; i < len(res.Chains); i++ {
		if res.Chains[i-1].Domain > res.Chains[i].Domain {
			t.Fatalf("chains not sorted at %d", i)
		}
	}
}

func TestRunRedirectsParallelMatchesSequential(t *testing.T) {
	ctx := context.Background()
	seq, err := RunRedirects(ctx, strings.NewReader(sampleProbeStream()), Autoconfig, PipelineOptions{Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	par, err := RunRedirects(ctx, strings.NewReader(sampleProbeStream()), Autoconfig, PipelineOptions{Workers: 4})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(seq.Providers.Export(), par.Providers.Export()) {
		t.Fatalf("provider maps differ:\nseq %v\npar %v", seq.Providers.Export(), par.Providers.Export())
	}
	if !reflect.DeepEqual(seq.Chains, par.Chains) {
		t.Fatalf("chains differ")
	}
	if seq.Stats != par.Stats || seq.Records != par.Records || seq.Malformed != par.Malformed {
		t.Fatalf("counters differ: %+v vs %+v", seq.Stats, par.Stats)
	}
}

func TestRunRedirectsOtherProtocol(t *testing.T) {
	res, err := RunRedirects(context.Background(), strings.NewReader(sampleProbeStream()), Autodiscover, PipelineOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Providers.Len() != 0 || res.Stats.Attempts != 0 {
		t.Fatalf("autodiscover pass should see nothing, got %+v", res.Stats)
	}
}

func TestAccumulateChains(t *testing.T) {
	input := strings.Join([]string{
		`{"domain":"a.com","redirects":["a.com","provider.net"]}`,
		`{"domain":"b.com","redirects":["b.com","provider.net"]}`,
		`{"domain":"d.com","redirects":["preselfd.com","d.com"],"self_loop":true}`,
		`{"domain":"x.com","redirects":[]}`,
		`garbage`,
	}, "\n")
	providers, malformed, err := AccumulateChains(context.Background(), strings.NewReader(input), PipelineOptions{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if malformed != 2 {
		t.Fatalf("malformed = %d, want 2", malformed)
	}
	want := map[string][]string{
		"provider.net": {"a.com", "b.com"},
		"preselfd.com": {"d.com"},
	}
	if got := providers.Export(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Export() = %v, want %v", got, want)
	}
}

func TestRunClusters(t *testing.T) {
	checks := strings.Join([]string{
		`{"Domain":"a.com","AutoconfigCheckResult":null,"AutodiscoverCheckResult":[],"SRVCheckResult":{"Protocols":null}}`,
		`{"Domain":"b.com","AutoconfigCheckResult":[{"Protocols":[{"Type":"IMAP","Server":"mail.host.net.","Port":993}]}]}`,
		`{"Domain":"c.com","SRVCheckResult":{"Protocols":[{"Type":"imap","Server":"mail.host.net","Port":"993"},{"Type":"smtp","Server":"","Port":"25"}]}}`,
		`{"Domain":"d.com","SRVCheckResult":"oops"}`,
	}, "\n")
	for _, workers := range []int{1, 3} {
		res, err := RunClusters(context.Background(), strings.NewReader(checks), false, PipelineOptions{Workers: workers})
		if err != nil {
			t.Fatal(err)
		}
		if res.Records != 3 || res.Malformed != 1 {
			t.Fatalf("workers=%d: records=%d malformed=%d", workers, res.Records, res.Malformed)
		}
		want := map[string]map[string][]string{"imap-993": {"mail.host.net": {"b.com", "c.com"}}}
		if got := res.Clusters.Export(); !reflect.DeepEqual(got, want) {
			t.Fatalf("workers=%d: Export() = %v", workers, got)
		}
		if res.Clusters.Incomplete != 1 {
			t.Fatalf("workers=%d: Incomplete = %d", workers, res.Clusters.Incomplete)
		}
	}
}

func TestRunClustersRaw(t *testing.T) {
	rec := fmt.Sprintf(`{"domain":"example.com","autoconfig":[{"method":"directurl","config":%q}],"autodiscover":[],"srv":{}}`, autoconfigXML)
	input := rec + "\n" + `{"domain":"empty.com"}` + "\n"
	res, err := RunClusters(context.Background(), strings.NewReader(input), true, PipelineOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Records != 2 {
		t.Fatalf("Records = %d, want 2", res.Records)
	}
	got := res.Clusters.Export()
	if !reflect.DeepEqual(got["smtp-587"], map[string][]string{"smtp.host.net": {"example.com"}}) {
		t.Fatalf("clusters = %v", got)
	}
}

func TestForEachLine(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	input := "first\n\n  \n" + long + "\nlast"
	var got []int
	err := ForEachLine(context.Background(), strings.NewReader(input), func(no int, line []byte) error {
		got = append(got, no)
		if no == 4 && len(line) != len(long) {
			t.Fatalf("long line truncated to %d bytes", len(line))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []int{1, 4, 5}) {
		t.Fatalf("line numbers = %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ForEachLine(ctx, strings.NewReader(input), func(int, []byte) error { return nil }); err == nil {
		t.Fatalf("expected context error")
	}
}
