package utils

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/miekg/dns"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// InvalidHostError reports input that has no registrable domain.
type InvalidHostError struct {
	Host   string
	Reason string
}

func (e *InvalidHostError) Error() string {
	return fmt.Sprintf("invalid host %q: %s", e.Host, e.Reason)
}

// Lookup mapping without STD3 and hyphen checks; "_" and "ab--cd" labels
// pass. dns.IsDomainName guards the syntax.
var idnaProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.StrictDomainName(false),
	idna.CheckHyphens(false),
)

// HostOf strips scheme, userinfo, port and path from a URL or bare host.
func HostOf(urlOrHost string) string {
	s := strings.TrimSpace(urlOrHost)
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil {
			return u.Hostname()
		}
		s = s[strings.Index(s, "://")+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		s = h
	}
	return s
}

// RegistrableDomain maps a URL or hostname to its public suffix plus one
// label, e.g. https://mail.example.co.uk/x -> example.co.uk.
func RegistrableDomain(urlOrHost string) (string, error) {
	host := strings.ToLower(HostOf(urlOrHost))
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", &InvalidHostError{Host: urlOrHost, Reason: "empty host"}
	}
	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		return "", &InvalidHostError{Host: urlOrHost, Reason: "IP literal"}
	}

	ascii, err := idnaProfile.ToASCII(host)
	if err != nil {
		return "", &InvalidHostError{Host: urlOrHost, Reason: err.Error()}
	}
	if _, ok := dns.IsDomainName(ascii); !ok {
		return "", &InvalidHostError{Host: urlOrHost, Reason: "not a domain name"}
	}

	suffix := icannSuffix(ascii)
	if len(ascii) <= len(suffix) {
		return "", &InvalidHostError{Host: urlOrHost, Reason: "public suffix " + suffix}
	}
	i := len(ascii) - len(suffix) - 1
	if ascii[i] != '.' {
		return "", &InvalidHostError{Host: urlOrHost, Reason: "invalid public suffix " + suffix}
	}
	return ascii[1+strings.LastIndex(ascii[:i], "."):], nil
}

// icannSuffix returns the public suffix of domain from the ICANN section of
// the list only. Private entries (azurewebsites.net, github.io) are walked
// up until an ICANN suffix is reached.
func icannSuffix(domain string) string {
	suffix, icann := publicsuffix.PublicSuffix(domain)
	for !icann {
		dot := strings.IndexByte(suffix, '.')
		if dot < 0 {
			break // unlisted TLD, implicit "*" rule
		}
		suffix, icann = publicsuffix.PublicSuffix(suffix[dot+1:])
	}
	return suffix
}

// 提取%MXFULLDOMAIN%和%MXMAINDOMAIN%
func ExtractDomains(mxHost string) (string, string, error) {
	mxHost = strings.TrimSuffix(mxHost, ".")

	parts := strings.Split(mxHost, ".")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid MX Host name: %s", mxHost)
	}
	mxFullDomain := strings.Join(parts[1:], ".")

	mxMainDomain, err := RegistrableDomain(mxHost)
	if err != nil {
		return "", "", fmt.Errorf("cannot extract maindomain: %w", err)
	}
	return mxFullDomain, mxMainDomain, nil
}
