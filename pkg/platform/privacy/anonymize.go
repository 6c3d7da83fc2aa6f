// Package privacy reduces personal data to what logs and metrics labels may
// carry. Nothing here is reversible.
package privacy

import (
	"net/netip"
	"strings"
	"unicode/utf8"
)

const (
	ipv4Bits = 24
	ipv6Bits = 48
)

// AnonymizeIP keeps the network prefix of an address: /24 for IPv4 and
// IPv4-mapped IPv6, /48 for IPv6. Empty input yields "unknown", anything
// unparseable "invalid".
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap().WithZone("")

	bits := ipv6Bits
	if addr.Is4() {
		bits = ipv4Bits
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}

// MaskEmail keeps the first character of the local part and the domain, so
// "jane.doe@acme.com" becomes "j***@acme.com". Tenants share domains, so the
// result still narrows a login down without naming the person.
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" {
		return "invalid"
	}
	_, size := utf8.DecodeRuneInString(local)
	return local[:size] + "***@" + strings.ToLower(domain)
}
