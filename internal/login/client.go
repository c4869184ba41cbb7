package login

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Client is one player connection before (and unless) it is promoted to a
// char-server link.
type Client struct {
	conn net.Conn
	ip   [4]byte

	// md5KeySent: повторный запрос соли на том же соединении — признак
	// кривого клиента, сессия закрывается.
	md5KeySent bool
}

// NewClient wraps an accepted connection.
func NewClient(conn net.Conn) (*Client, error) {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return nil, fmt.Errorf("splitting remote address %q: %w", conn.RemoteAddr(), err)
	}
	v4 := net.ParseIP(host).To4()
	if v4 == nil {
		return nil, fmt.Errorf("remote address %q is not IPv4", host)
	}
	c := &Client{conn: conn}
	copy(c.ip[:], v4)
	return c, nil
}

// IP returns the peer address bytes in wire order.
func (c *Client) IP() [4]byte { return c.ip }

// IPHost returns the peer address as a host-order integer, формат журнала.
func (c *Client) IPHost() uint32 {
	return binary.BigEndian.Uint32(c.ip[:])
}

// Addr returns the peer address in dotted form.
func (c *Client) Addr() string {
	return fmt.Sprintf("%d.%d.%d.%d", c.ip[0], c.ip[1], c.ip[2], c.ip[3])
}

// PeerIP returns the peer address as net.IP (для LAN-подмены).
func (c *Client) PeerIP() net.IP {
	return net.IPv4(c.ip[0], c.ip[1], c.ip[2], c.ip[3])
}

// Send writes one packet to the client.
func (c *Client) Send(data []byte) error {
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("writing to client %s: %w", c.Addr(), err)
	}
	return nil
}
