package capture

import (
	"fmt"
	"net/netip"
	"slices"

	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

// Default classification settings.
const DefaultDNSPort = 53

var (
	DefaultProxyPorts   = []int{3128, 8080, 8888}
	DefaultInternalNets = []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"fc00::/7",
		"fe80::/10",
		"::1/128",
	}
)

// Rules assign a traffic category to a conversation.
type Rules struct {
	DNSPort      int
	ProxyPorts   []int
	InternalNets []netip.Prefix
}

// DefaultRules returns the default port and network settings.
func DefaultRules() Rules {
	r, err := NewRules(DefaultDNSPort, DefaultProxyPorts, DefaultInternalNets)
	if err != nil {
		panic(err)
	}
	return r
}

// NewRules parses CIDR strings into Rules.
func NewRules(dnsPort int, proxyPorts []int, internalCIDRs []string) (Rules, error) {
	r := Rules{DNSPort: dnsPort, ProxyPorts: slices.Clone(proxyPorts)}
	for _, cidr := range internalCIDRs {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			return Rules{}, fmt.Errorf("internal network %q: %w", cidr, err)
		}
		r.InternalNets = append(r.InternalNets, p.Masked())
	}
	return r, nil
}

// Classify categorises one packet direction. DNS wins over proxy, proxy
// over internal; anything else is external.
func (r Rules) Classify(dst netip.Addr, srcPort, dstPort int) traffic.Category {
	switch {
	case r.DNSPort > 0 && (srcPort == r.DNSPort || dstPort == r.DNSPort):
		return traffic.DNS
	case slices.Contains(r.ProxyPorts, dstPort):
		return traffic.Proxy
	case r.Internal(dst):
		return traffic.Internal
	default:
		return traffic.External
	}
}

// Internal reports whether addr is inside an internal network.
func (r Rules) Internal(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range r.InternalNets {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// service reports whether port identifies the serving side of a
// conversation.
func (r Rules) service(port int) bool {
	return port == r.DNSPort || slices.Contains(r.ProxyPorts, port)
}
