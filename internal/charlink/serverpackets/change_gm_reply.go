package serverpackets

import "encoding/binary"

const ChangeGMReplyOpcode = 0x2721

// ChangeGMReply [0x2721] — ответ на запрос смены GM-аккаунта. newAccountID
// всегда 0: операция в этой версии сервера не поддерживается.
//
// Format:
//   [W opcode] [L oldAccountID] [L newAccountID]
//
// Returns: number of bytes written to buf (10).
func ChangeGMReply(buf []byte, oldAccountID int64) int {
	binary.LittleEndian.PutUint16(buf[0:], ChangeGMReplyOpcode)
	binary.LittleEndian.PutUint32(buf[2:], uint32(oldAccountID))
	binary.LittleEndian.PutUint32(buf[6:], 0)
	return 10
}
