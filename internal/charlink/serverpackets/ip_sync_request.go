package serverpackets

import "encoding/binary"

const IPSyncRequestOpcode = 0x2735

// IPSyncRequest [0x2735] — просьба char-server'ам заново сообщить свой WAN IP.
func IPSyncRequest(buf []byte) int {
	binary.LittleEndian.PutUint16(buf[0:], IPSyncRequestOpcode)
	return 2
}
