package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// TrustedProxies resolves the client address of a request. X-Forwarded-For
// is only read when the direct peer is one of the configured proxies.
type TrustedProxies struct {
	nets []*net.IPNet
}

// NewTrustedProxies parses IP and CIDR entries. Invalid entries are logged
// and skipped; config.Load rejects them before this point.
func NewTrustedProxies(entries []string) *TrustedProxies {
	p := &TrustedProxies{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if ip := net.ParseIP(entry); ip != nil {
			bits := 8 * net.IPv4len
			if ip.To4() == nil {
				bits = 8 * net.IPv6len
			}
			p.nets = append(p.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			log.Warn().Str("entry", entry).Msg("ignoring invalid trusted proxy")
			continue
		}
		p.nets = append(p.nets, ipNet)
	}
	return p
}

func (p *TrustedProxies) trusts(ip net.IP) bool {
	for _, n := range p.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the peer address without its port. Behind a trusted
// proxy it walks X-Forwarded-For from the right and returns the first hop
// that is not itself a trusted proxy.
func (p *TrustedProxies) ClientIP(r *http.Request) string {
	remote := remoteHost(r)
	ip := net.ParseIP(remote)
	if ip == nil || !p.trusts(ip) {
		return remote
	}

	var hops []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(header, ",")...)
	}

	client := remote
	for i := len(hops) - 1; i >= 0; i-- {
		hop := net.ParseIP(strings.TrimSpace(hops[i]))
		if hop == nil {
			break
		}
		client = hop.String()
		if !p.trusts(hop) {
			break
		}
	}
	return client
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
