package constants

// Wire protocol constants shared by the client listener and the char-server
// link. All multi-byte fields on the wire are little-endian.

const (
	// NameLength is the fixed width of userid/password fields (23 chars + NUL).
	NameLength = 24

	// ServerNameLength is the fixed width of a char-server name field.
	ServerNameLength = 20

	// EmailLength is the fixed width of an e-mail field.
	EmailLength = 40

	// MaxServers is the number of char-server slots.
	MaxServers = 30

	// AuthFifoSize is the capacity of the pending-token ring.
	AuthFifoSize = 256

	// StartAccountNum is the lowest valid account id. Rows created below the
	// floor are rewritten to it (and deleted if the rewrite fails).
	StartAccountNum = 2000000

	// MD5KeyMinLength / MD5KeyMaxLength bound the per-process MD5 salt.
	MD5KeyMinLength = 12
	MD5KeyMaxLength = 15

	// MaxFrameSize bounds a single variable-length frame on either protocol.
	MaxFrameSize = 32768

	// GMListPacketLimit caps the 0x2732 GM list broadcast payload.
	GMListPacketLimit = 32000
)

// Version identity reported by the 0x7531 version-info reply.
const (
	VersionMajor       = 1
	VersionMinor       = 0
	VersionRevision    = 0
	VersionReleaseFlag = 1
	VersionOfficial    = 0
	ServerTypeLogin    = 1
	VersionMod         = 1262
)

// PurgeSentinelAccountID: an offline report for this account id clears the
// whole presence registry. Kept for wire compatibility with older
// char-servers; prefer Registry.PurgeAll for operator use.
const PurgeSentinelAccountID = 99
