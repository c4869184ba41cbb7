package model

import "time"

// Sex is the account sex code as carried on the wire.
type Sex byte

const (
	SexFemale Sex = 0
	SexMale   Sex = 1
	// SexServer marks char-server accounts; such accounts never log in as
	// players, they complete the char-server handshake instead.
	SexServer Sex = 2
)

// ParseSex converts the stored one-letter column value.
func ParseSex(s string) Sex {
	switch s {
	case "S":
		return SexServer
	case "M":
		return SexMale
	default:
		return SexFemale
	}
}

// Column returns the one-letter stored form.
func (s Sex) Column() string {
	switch s {
	case SexServer:
		return "S"
	case SexMale:
		return "M"
	default:
		return "F"
	}
}

// Account state codes with special meaning. Positive states map onto client
// refusal codes as state-1; every other non-zero state is reported as
// "totally erased" (99).
const (
	StateOK         int32 = 0
	StateDynamicBan int32 = -2
	StateBanned     int32 = -3
)

// Account represents one row of the login table.
type Account struct {
	ID           int64
	UserID       string
	Password     string // plaintext, or hex MD5 digest when use_MD5_passwords
	Level        int    // GM level 0..99
	LastLogin    time.Time
	LoginCount   int
	Sex          Sex
	ConnectUntil int64 // unix seconds, 0 = unlimited
	LastIP       string
	BanUntil     int64 // unix seconds, 0 = not banned
	State        int32
	Email        string
}

// GMAccount is one entry of the GM list pushed to char-servers.
type GMAccount struct {
	AccountID int64
	Level     int
}

// Variable is one global account variable. Порядок пар значим для ретрансляции
// пакета 0x2729, поэтому набор хранится срезом, а не map.
type Variable struct {
	Name  string // ≤ 31 chars
	Value string // ≤ 255 chars
}
