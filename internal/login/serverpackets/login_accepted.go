// Package serverpackets собирает ответы логин-сервера игровому клиенту.
package serverpackets

import (
	"encoding/binary"

	"github.com/udisondev/athlogin/internal/constants"
	"github.com/udisondev/athlogin/internal/model"
	"github.com/udisondev/athlogin/internal/protocol"
)

const LoginAcceptedOpcode = 0x0069

// ServerEntry is one char-server row of the LoginAccepted list.
type ServerEntry struct {
	IP          [4]byte // уже после LAN-подмены, если клиент из той же подсети
	Port        uint16
	Name        string
	Users       uint16
	Maintenance uint16
	New         uint16
}

// LoginAccepted [0x0069] — вход разрешён, вот сессия и список серверов.
//
// Format:
//   [W opcode] [W length=47+32n] [L loginID1] [L accountID] [L loginID2]
//   [L 0] [24B unused] [2B unused] [B sex]
//   затем на каждый сервер: [4B ip] [W port] [20B name] [W users]
//   [W maintenance] [W new]
//
// Returns: number of bytes written to buf.
func LoginAccepted(buf []byte, loginID1 uint32, accountID int64, loginID2 uint32, sex model.Sex, servers []ServerEntry) int {
	total := 47 + 32*len(servers)
	clear(buf[:total])
	binary.LittleEndian.PutUint16(buf[0:], LoginAcceptedOpcode)
	binary.LittleEndian.PutUint16(buf[2:], uint16(total))
	binary.LittleEndian.PutUint32(buf[4:], loginID1)
	binary.LittleEndian.PutUint32(buf[8:], uint32(accountID))
	binary.LittleEndian.PutUint32(buf[12:], loginID2)
	buf[46] = byte(sex)

	for i, srv := range servers {
		off := 47 + 32*i
		copy(buf[off:off+4], srv.IP[:])
		binary.LittleEndian.PutUint16(buf[off+4:], srv.Port)
		protocol.PutFixedString(buf, off+6, srv.Name, constants.ServerNameLength)
		binary.LittleEndian.PutUint16(buf[off+26:], srv.Users)
		binary.LittleEndian.PutUint16(buf[off+28:], srv.Maintenance)
		binary.LittleEndian.PutUint16(buf[off+30:], srv.New)
	}
	return total
}
