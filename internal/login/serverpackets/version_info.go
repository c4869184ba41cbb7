package serverpackets

import (
	"encoding/binary"

	"github.com/udisondev/athlogin/internal/constants"
)

const VersionInfoOpcode = 0x7531

// VersionInfo [0x7531] — ответ на пробу версии 0x7530.
//
// Format:
//   [W opcode] [B major] [B minor] [B revision] [B release] [B official]
//   [B serverType] [W modVersion]
//
// Returns: number of bytes written to buf (10).
func VersionInfo(buf []byte) int {
	binary.LittleEndian.PutUint16(buf[0:], VersionInfoOpcode)
	buf[2] = constants.VersionMajor
	buf[3] = constants.VersionMinor
	buf[4] = constants.VersionRevision
	buf[5] = constants.VersionReleaseFlag
	buf[6] = constants.VersionOfficial
	buf[7] = constants.ServerTypeLogin
	binary.LittleEndian.PutUint16(buf[8:], constants.VersionMod)
	return 10
}
