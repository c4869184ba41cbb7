package login

// Result codes of the authentication engine. Неотрицательные значения
// уходят клиенту как есть в пакете 0x006a.
const (
	ResultGranted      = -1
	ResultDynamicBan   = -2
	ResultBanned       = -3
	ResultUnregistered = 0
	ResultBadPassword  = 1
	ResultExpired      = 2
	ResultRejected     = 3
	ResultBlockedByGM  = 4
	ResultStaleClient  = 5
	ResultProhibited   = 6 // "prohibited to log in until ..."
	ResultErased       = 99
)

// refusalText maps a refusal code to its audit log wording.
var refusalText = map[int]string{
	ResultBanned:       "Account banned.",
	ResultDynamicBan:   "dynamic ban (ip and account).",
	ResultUnregistered: "Unregistered ID.",
	ResultBadPassword:  "Incorrect Password.",
	ResultExpired:      "Account Expired.",
	ResultRejected:     "Rejected from server.",
	ResultBlockedByGM:  "Blocked by GM.",
	ResultStaleClient:  "Not latest game EXE.",
	ResultProhibited:   "Banned.",
	7:                  "Server Over-population.",
	8:                  "Account limit from company",
	9:                  "Ban by DBA",
	10:                 "Email not confirmed",
	11:                 "Ban by GM",
	12:                 "Working in DB",
	13:                 "Self Lock",
	14:                 "Not Permitted Group",
	15:                 "Not Permitted Group",
	ResultErased:       "Account gone.",
	100:                "Login info remains.",
	101:                "Hacking investigation.",
	102:                "Bug investigation.",
	103:                "Deleting char.",
	104:                "Deleting spouse char.",
}

// RefusalText returns the audit wording for a refusal code.
func RefusalText(code int) string {
	if s, ok := refusalText[code]; ok {
		return s
	}
	return "Unknown Error."
}
