// Package lan maps client peer addresses to the char-server address that is
// reachable from inside the same subnet, so LAN clients are not advertised a
// WAN IP they cannot route to.
package lan

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
)

// Subnet is one configured (mask, char_ip, map_ip) row.
// Invariant: CharIP&Mask == MapIP&Mask.
type Subnet struct {
	Mask   uint32
	CharIP uint32
	MapIP  uint32
}

// Map holds the configured subnet rows in declaration order.
type Map struct {
	subnets []Subnet
}

// Load reads a LAN support file. Формат строки:
// subnet: маска:IP_char-сервера:IP_map-сервера
// Строки, нарушающие инвариант подсети, отбрасываются с предупреждением.
func Load(path string) (*Map, error) {
	m := &Map{}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("LAN support configuration file not found", "path", path)
			return m, nil
		}
		return nil, fmt.Errorf("reading lan config %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		key, rest, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "subnet") {
			continue
		}
		parts := strings.Split(strings.TrimSpace(rest), ":")
		if len(parts) != 3 {
			slog.Warn("lan config syntax error", "path", path, "line", lineNum)
			continue
		}

		mask, okM := parseIPv4(parts[0])
		charIP, okC := parseIPv4(parts[1])
		mapIP, okP := parseIPv4(parts[2])
		if !okM || !okC || !okP {
			slog.Warn("lan config syntax error", "path", path, "line", lineNum)
			continue
		}
		if charIP&mask != mapIP&mask {
			slog.Error("char server and map server belong to different subnetworks",
				"char_ip", parts[1], "map_ip", parts[2], "line", lineNum)
			continue
		}

		m.subnets = append(m.subnets, Subnet{Mask: mask, CharIP: charIP, MapIP: mapIP})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading lan config %s: %w", path, err)
	}

	slog.Info("read lan subnetworks", "count", len(m.subnets))
	return m, nil
}

// Add appends a row, enforcing the subnet invariant.
func (m *Map) Add(s Subnet) error {
	if s.CharIP&s.Mask != s.MapIP&s.Mask {
		return fmt.Errorf("char ip and map ip belong to different subnetworks")
	}
	m.subnets = append(m.subnets, s)
	return nil
}

// RewriteCharIP returns the char-server IP to advertise to the given peer:
// the first row whose subnet contains the peer, or nil if the peer is not on
// any configured LAN.
func (m *Map) RewriteCharIP(peer net.IP) net.IP {
	p, ok := ipToUint32(peer)
	if !ok {
		return nil
	}
	for _, s := range m.subnets {
		if p&s.Mask == s.CharIP&s.Mask {
			return uint32ToIP(s.CharIP)
		}
	}
	return nil
}

// Len returns the number of configured rows.
func (m *Map) Len() int { return len(m.subnets) }

func parseIPv4(s string) (uint32, bool) {
	return ipToUint32(net.ParseIP(strings.TrimSpace(s)))
}

func ipToUint32(ip net.IP) (uint32, bool) {
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(v4), true
}

func uint32ToIP(v uint32) net.IP {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, v)
	return ip
}
