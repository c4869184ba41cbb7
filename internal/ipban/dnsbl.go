package ipban

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/miekg/dns"
)

// DNSBL probes blacklist zones: адрес перевёрнут в in-addr порядок и
// дописан к зоне, наличие A-записи означает попадание в список.
type DNSBL struct {
	zones   []string
	servers []string
	client  *dns.Client
	log     *slog.Logger
}

// NewDNSBL builds the probe for the configured zone list. Resolver addresses
// come from /etc/resolv.conf.
func NewDNSBL(zones []string, log *slog.Logger) (*DNSBL, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("dnsbl enabled but no zones configured")
	}

	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, fmt.Errorf("reading resolv.conf: %w", err)
	}
	if len(conf.Servers) == 0 {
		return nil, fmt.Errorf("resolv.conf lists no nameservers")
	}
	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, fmt.Sprintf("%s:%s", s, conf.Port))
	}

	return &DNSBL{
		zones:   zones,
		servers: servers,
		client:  &dns.Client{Timeout: 2 * time.Second},
		log:     log,
	}, nil
}

// newDNSBLWithServers is the test seam: fixed zone list and resolver set.
func newDNSBLWithServers(zones, servers []string, log *slog.Logger) *DNSBL {
	return &DNSBL{
		zones:   zones,
		servers: servers,
		client:  &dns.Client{Timeout: 2 * time.Second},
		log:     log,
	}
}

// Listed reports whether the address is present in any configured zone.
// Ошибки резолвера не считаются попаданием: список недоступен — пускаем.
func (b *DNSBL) Listed(ctx context.Context, a1, a2, a3, a4 byte) bool {
	for _, zone := range b.zones {
		name := dns.Fqdn(fmt.Sprintf("%d.%d.%d.%d.%s", a4, a3, a2, a1, zone))
		if b.query(ctx, name) {
			b.log.Info("dnsbl listed", "query", name)
			return true
		}
	}
	return false
}

func (b *DNSBL) query(ctx context.Context, name string) bool {
	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeA)

	for _, server := range b.servers {
		resp, _, err := b.client.ExchangeContext(ctx, m, server)
		if err != nil {
			b.log.Debug("dnsbl query failed", "server", server, "error", err)
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			return false
		}
		for _, rr := range resp.Answer {
			if _, ok := rr.(*dns.A); ok {
				return true
			}
		}
		return false
	}
	return false
}
