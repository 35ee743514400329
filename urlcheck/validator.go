// Package urlcheck validates user-supplied webhook destination URLs and
// rejects hosts that sit in reserved address blocks, so a webhook
// configuration cannot be pointed at loopback or private network targets.
package urlcheck

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-webhooks/core"
)

// reservedBlocks is the full reserved-range definition the guard enforces:
// RFC1918 private, loopback, link-local, multicast, documentation,
// unspecified, CGNAT, and IPv6 ULA. Changing this list changes the security
// contract.
var reservedBlocks = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("2001:db8::/32"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("ff00::/8"),
}

// ReservedAddressError signals that a destination host is a literal IP inside
// a reserved block. It is distinct from a plain parse failure so callers can
// log the two differently.
type ReservedAddressError struct {
	Host string
}

func (e ReservedAddressError) Error() string {
	return fmt.Sprintf("urlcheck: host %q is in a reserved address block", strings.TrimSpace(e.Host))
}

func (e ReservedAddressError) ToServiceError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.WebhookErrorReservedAddress).
		WithMetadata(map[string]any{"host": strings.TrimSpace(e.Host)})
}

// Validate parses a raw webhook destination URL and returns it with authority
// and path preserved. Empty or unparsable input and non-HTTP schemes fail
// with a bad-input error; literal IP hosts inside a reserved block fail with
// ReservedAddressError. DNS names are NOT resolved here, so a name that
// resolves to an internal address at request time is not caught at this
// layer; see ResolveGuard.
func Validate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", invalidURLError("urlcheck: url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", invalidURLError(fmt.Sprintf("urlcheck: malformed url %q", raw))
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", invalidURLError(fmt.Sprintf("urlcheck: unsupported scheme %q", parsed.Scheme))
	}
	host := parsed.Hostname()
	if host == "" {
		return "", invalidURLError(fmt.Sprintf("urlcheck: url %q has no host", raw))
	}

	if addr, parseErr := netip.ParseAddr(host); parseErr == nil {
		if IsReservedAddr(addr) {
			return "", ReservedAddressError{Host: host}
		}
	}

	return parsed.String(), nil
}

// IsReservedAddr reports whether the address falls inside any reserved block.
// IPv4-mapped IPv6 addresses are unwrapped before the check.
func IsReservedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, block := range reservedBlocks {
		if block.Contains(addr) {
			return true
		}
	}
	return false
}

// ResolveGuard is the opt-in dial-time complement to Validate: it resolves a
// DNS name and fails when any resolved address is reserved, closing the
// rebinding gap for callers that want the stricter posture.
type ResolveGuard struct {
	LookupNetIP func(ctx context.Context, network string, host string) ([]netip.Addr, error)
}

func NewResolveGuard() *ResolveGuard {
	return &ResolveGuard{
		LookupNetIP: net.DefaultResolver.LookupNetIP,
	}
}

func (g *ResolveGuard) Check(ctx context.Context, host string) error {
	if g == nil {
		return nil
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return invalidURLError("urlcheck: host is required")
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		if IsReservedAddr(addr) {
			return ReservedAddressError{Host: host}
		}
		return nil
	}

	lookup := g.LookupNetIP
	if lookup == nil {
		lookup = net.DefaultResolver.LookupNetIP
	}
	addrs, err := lookup(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("urlcheck: resolve %q: %w", host, err)
	}
	for _, addr := range addrs {
		if IsReservedAddr(addr) {
			return ReservedAddressError{Host: host}
		}
	}
	return nil
}

func invalidURLError(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.WebhookErrorBadInput)
}
