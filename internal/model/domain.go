package model

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"
)

// NormalizeDomain lower-cases name, strips a trailing dot and surrounding
// space and checks it is a syntactically valid DNS name with at least two
// labels.
func NormalizeDomain(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(n, ".")
	if n == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDomain)
	}
	if strings.IndexFunc(n, invalidHostRune) >= 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, name)
	}
	if _, ok := dns.IsDomainName(n); !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidDomain, name)
	}
	if dns.CountLabel(n) < 2 {
		return "", fmt.Errorf("%w: %q is not a registrable domain", ErrInvalidDomain, name)
	}
	return n, nil
}

// CanonicalHost is the form host names are matched and stored in: trimmed,
// lower-cased and without the trailing dot.
func CanonicalHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
}

// IsSubdomainOf reports whether host equals domain or lies below it.
func IsSubdomainOf(host, domain string) bool {
	return dns.IsSubDomain(dns.Fqdn(domain), dns.Fqdn(host))
}

func invalidHostRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return false
	case r == '-', r == '.', r == '_':
		return false
	}
	return true
}
