package charlink

import (
	"context"
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/udisondev/athlogin/internal/authfifo"
	"github.com/udisondev/athlogin/internal/charlink/serverpackets"
	"github.com/udisondev/athlogin/internal/config"
	"github.com/udisondev/athlogin/internal/constants"
	"github.com/udisondev/athlogin/internal/model"
	"github.com/udisondev/athlogin/internal/presence"
	"github.com/udisondev/athlogin/internal/protocol"
)

// Opcodes accepted from a linked char-server.
const (
	OpGMReload      = 0x2709
	OpAuthRequest   = 0x2712
	OpUserCount     = 0x2714
	OpEmailRequest  = 0x2716
	OpChangeGM      = 0x2720
	OpChangeEmail   = 0x2722
	OpStateChange   = 0x2724
	OpBanRequest    = 0x2725
	OpSexToggle     = 0x2727
	OpRegistrySave  = 0x2728
	OpUnban         = 0x272a
	OpUserOnline    = 0x272b
	OpUserOffline   = 0x272c
	OpOnlineList    = 0x272d
	OpRegistryFetch = 0x272e
	OpIPUpdate      = 0x2736
	OpAllOffline    = 0x2737
)

// FrameTable describes the char-link frame sizes.
var FrameTable = protocol.Table{
	OpGMReload:      2,
	OpAuthRequest:   19,
	OpUserCount:     6,
	OpEmailRequest:  6,
	OpChangeGM:      protocol.VarLengthMin(8),
	OpChangeEmail:   86,
	OpStateChange:   10,
	OpBanRequest:    18,
	OpSexToggle:     6,
	OpRegistrySave:  protocol.VarLengthMin(13),
	OpUnban:         6,
	OpUserOnline:    6,
	OpUserOffline:   6,
	OpOnlineList:    protocol.VarLengthMin(6),
	OpRegistryFetch: 10,
	OpIPUpdate:      6,
	OpAllOffline:    2,
}

// AccountStore is the slice of the account repository the link needs.
type AccountStore interface {
	EmailInfo(ctx context.Context, accountID int64) (string, int64, error)
	ChangeEmail(ctx context.Context, accountID int64, current, next string) (bool, error)
	State(ctx context.Context, accountID int64) (int32, error)
	SetState(ctx context.Context, accountID int64, state int32) error
	BanUntil(ctx context.Context, accountID int64) (int64, error)
	SetBanUntil(ctx context.Context, accountID int64, until int64) error
	Sex(ctx context.Context, accountID int64) (model.Sex, bool, error)
	SetSex(ctx context.Context, accountID int64, sex model.Sex) error
}

// RegStore stores account variables.
type RegStore interface {
	Replace(ctx context.Context, accountID int64, vars []model.Variable) error
	Read(ctx context.Context, accountID int64) ([]model.Variable, error)
}

// StatusStore maintains the sstatus rows.
type StatusStore interface {
	UpdateUsers(ctx context.Context, slot int, users int) error
}

// Auditor appends loginlog rows.
type Auditor interface {
	Append(ctx context.Context, ip uint32, user string, rcode int, msg string) error
}

// Handler dispatches packets arriving over an established char-server link.
type Handler struct {
	cfg      *config.Config
	accounts AccountStore
	regs     RegStore
	status   StatusStore
	audit    Auditor
	registry *presence.Registry
	fifo     *authfifo.Fifo
	gmcache  *GMCache
	table    *Table
	log      *slog.Logger
}

// NewHandler wires the link handler.
func NewHandler(
	cfg *config.Config,
	accounts AccountStore,
	regs RegStore,
	status StatusStore,
	audit Auditor,
	registry *presence.Registry,
	fifo *authfifo.Fifo,
	gmcache *GMCache,
	table *Table,
	log *slog.Logger,
) *Handler {
	return &Handler{
		cfg:      cfg,
		accounts: accounts,
		regs:     regs,
		status:   status,
		audit:    audit,
		registry: registry,
		fifo:     fifo,
		gmcache:  gmcache,
		table:    table,
		log:      log,
	}
}

// Handle processes one complete frame from the char-server. peerIP — адрес
// линка в host-order, нужен только для аудита.
func (h *Handler) Handle(ctx context.Context, srv *CharServer, frame []byte, peerIP uint32) error {
	switch protocol.Opcode(frame) {
	case OpGMReload:
		return h.gmReload(ctx, srv, peerIP)
	case OpAuthRequest:
		return h.authRequest(ctx, srv, frame)
	case OpUserCount:
		return h.userCount(ctx, srv, frame)
	case OpEmailRequest:
		return h.emailRequest(ctx, srv, frame)
	case OpChangeGM:
		return h.changeGM(srv, frame)
	case OpChangeEmail:
		return h.changeEmail(ctx, srv, frame)
	case OpStateChange:
		return h.stateChange(ctx, frame)
	case OpBanRequest:
		return h.banRequest(ctx, frame)
	case OpSexToggle:
		return h.sexToggle(ctx, frame)
	case OpRegistrySave:
		return h.registrySave(ctx, srv, frame)
	case OpUnban:
		return h.unban(ctx, frame)
	case OpUserOnline:
		h.registry.MarkOnline(accountIDAt(frame, 2), srv.Slot)
		return nil
	case OpUserOffline:
		h.registry.SetOffline(accountIDAt(frame, 2))
		return nil
	case OpOnlineList:
		return h.onlineList(srv, frame)
	case OpRegistryFetch:
		return h.registryFetch(ctx, srv, frame)
	case OpIPUpdate:
		return h.ipUpdate(frame, srv)
	case OpAllOffline:
		h.log.Info("setting accounts offline", "server", srv.Name)
		h.registry.MarkOrphaned(srv.Slot)
		return nil
	default:
		return protocol.ErrUnknownOpcode
	}
}

func accountIDAt(frame []byte, off int) int64 {
	return int64(binary.LittleEndian.Uint32(frame[off:]))
}

func (h *Handler) gmReload(ctx context.Context, srv *CharServer, peerIP uint32) error {
	if h.cfg.LogLogin {
		if err := h.audit.Append(ctx, peerIP, srv.Name, 0, "GM reload request"); err != nil {
			h.log.Error("audit append failed", "error", err)
		}
	}
	if err := h.gmcache.Reload(ctx); err != nil {
		h.log.Error("gm reload failed", "error", err)
		return nil
	}
	h.gmcache.SendAll(h.table)
	return nil
}

func (h *Handler) authRequest(ctx context.Context, srv *CharServer, frame []byte) error {
	accountID := accountIDAt(frame, 2)
	id1 := binary.LittleEndian.Uint32(frame[6:])
	id2 := binary.LittleEndian.Uint32(frame[10:])
	sex := model.Sex(frame[14])
	var ip [4]byte
	copy(ip[:], frame[15:19])

	buf := make([]byte, 51)
	if accountID > 0 && h.fifo.Consume(accountID, id1, id2, sex, ip) {
		email, until, err := h.accounts.EmailInfo(ctx, accountID)
		if err != nil {
			h.log.Error("email lookup failed", "account", accountID, "error", err)
		}
		n := serverpackets.AuthAck(buf, accountID, true, email, until)
		return srv.Send(buf[:n])
	}
	n := serverpackets.AuthAck(buf, accountID, false, "", 0)
	return srv.Send(buf[:n])
}

func (h *Handler) userCount(ctx context.Context, srv *CharServer, frame []byte) error {
	users := int(binary.LittleEndian.Uint32(frame[2:]))
	if srv.SetUsers(users) {
		h.log.Info("user count updated", "server", srv.Name, "users", users)
		if err := h.status.UpdateUsers(ctx, srv.Slot, users); err != nil {
			h.log.Error("sstatus update failed", "error", err)
		}
	}
	buf := make([]byte, 2)
	n := serverpackets.UserCountAck(buf)
	return srv.Send(buf[:n])
}

func (h *Handler) emailRequest(ctx context.Context, srv *CharServer, frame []byte) error {
	accountID := accountIDAt(frame, 2)
	email, until, err := h.accounts.EmailInfo(ctx, accountID)
	if err != nil {
		h.log.Error("email lookup failed", "account", accountID, "error", err)
	}
	buf := make([]byte, 50)
	n := serverpackets.EmailInfo(buf, accountID, email, until)
	return srv.Send(buf[:n])
}

func (h *Handler) changeGM(srv *CharServer, frame []byte) error {
	oldAcc := accountIDAt(frame, 4)
	h.log.Warn("GM change is not supported", "account", oldAcc)
	buf := make([]byte, 10)
	n := serverpackets.ChangeGMReply(buf, oldAcc)
	return srv.Send(buf[:n])
}

func (h *Handler) changeEmail(ctx context.Context, srv *CharServer, frame []byte) error {
	accountID := accountIDAt(frame, 2)
	actual := protocol.TrimFixed(frame[6:46])
	next := protocol.TrimFixed(frame[46:86])

	switch {
	case !model.ValidEmail(actual):
		h.log.Warn("email change rejected, invalid current email",
			"server", srv.Name, "account", accountID)
	case !model.ValidEmail(next) || next == model.DefaultEmail:
		h.log.Warn("email change rejected, invalid new email",
			"server", srv.Name, "account", accountID)
	default:
		changed, err := h.accounts.ChangeEmail(ctx, accountID, actual, next)
		if err != nil {
			h.log.Error("email change failed", "account", accountID, "error", err)
			return nil
		}
		if changed {
			h.log.Info("email changed", "server", srv.Name, "account", accountID)
		}
	}
	return nil
}

func (h *Handler) stateChange(ctx context.Context, frame []byte) error {
	accountID := accountIDAt(frame, 2)
	state := int32(binary.LittleEndian.Uint32(frame[6:]))

	current, err := h.accounts.State(ctx, accountID)
	if err != nil {
		h.log.Error("state lookup failed", "account", accountID, "error", err)
		return nil
	}
	if current != state && state != 0 {
		buf := make([]byte, 11)
		n := serverpackets.StateNotify(buf, accountID, serverpackets.NotifyStateChange, uint32(state))
		h.table.Broadcast(buf[:n], BroadcastAll)
	}
	if err := h.accounts.SetState(ctx, accountID, state); err != nil {
		h.log.Error("state update failed", "account", accountID, "error", err)
	}
	return nil
}

func (h *Handler) banRequest(ctx context.Context, frame []byte) error {
	accountID := accountIDAt(frame, 2)
	delta := func(off int) int {
		return int(int16(binary.LittleEndian.Uint16(frame[off:])))
	}

	stored, err := h.accounts.BanUntil(ctx, accountID)
	if err != nil {
		h.log.Error("ban lookup failed", "account", accountID, "error", err)
		return nil
	}

	now := time.Now()
	base := now
	if stored != 0 && stored >= now.Unix() {
		base = time.Unix(stored, 0)
	}
	next := base.AddDate(delta(6), delta(8), delta(10)).
		Add(time.Duration(delta(12))*time.Hour +
			time.Duration(delta(14))*time.Minute +
			time.Duration(delta(16))*time.Second)

	until := next.Unix()
	if until <= now.Unix() {
		until = 0
	}
	if until == stored {
		return nil
	}
	if until != 0 {
		buf := make([]byte, 11)
		n := serverpackets.StateNotify(buf, accountID, serverpackets.NotifyBan, uint32(until))
		h.table.Broadcast(buf[:n], BroadcastAll)
	}
	h.log.Info("account ban updated", "account", accountID, "until", until)
	if err := h.accounts.SetBanUntil(ctx, accountID, until); err != nil {
		h.log.Error("ban update failed", "account", accountID, "error", err)
	}
	return nil
}

func (h *Handler) sexToggle(ctx context.Context, frame []byte) error {
	accountID := accountIDAt(frame, 2)
	sex, found, err := h.accounts.Sex(ctx, accountID)
	if err != nil || !found {
		if err != nil {
			h.log.Error("sex lookup failed", "account", accountID, "error", err)
		}
		return nil
	}

	next := model.SexMale
	if sex == model.SexMale {
		next = model.SexFemale
	}
	if err := h.accounts.SetSex(ctx, accountID, next); err != nil {
		h.log.Error("sex update failed", "account", accountID, "error", err)
		return nil
	}
	buf := make([]byte, 7)
	n := serverpackets.SexChanged(buf, accountID, next)
	h.table.Broadcast(buf[:n], BroadcastAll)
	return nil
}

func (h *Handler) registrySave(ctx context.Context, srv *CharServer, frame []byte) error {
	accountID := accountIDAt(frame, 4)
	if accountID <= 0 {
		return nil
	}
	vars := parseVariables(frame[13:])
	if err := h.regs.Replace(ctx, accountID, vars); err != nil {
		h.log.Error("registry save failed", "account", accountID, "error", err)
	}

	// Ретрансляция остальным char-server'ам: тот же кадр, другой опкод.
	relay := make([]byte, len(frame))
	copy(relay, frame)
	binary.LittleEndian.PutUint16(relay[0:], serverpackets.RegistryReplyOpcode)
	h.table.Broadcast(relay, srv.Slot)
	return nil
}

func (h *Handler) unban(ctx context.Context, frame []byte) error {
	accountID := accountIDAt(frame, 2)
	if err := h.accounts.SetBanUntil(ctx, accountID, 0); err != nil {
		h.log.Error("unban failed", "account", accountID, "error", err)
	}
	return nil
}

func (h *Handler) onlineList(srv *CharServer, frame []byte) error {
	if !h.registry.Enabled() {
		return nil
	}
	count := int(binary.LittleEndian.Uint16(frame[4:]))
	ids := make([]int64, 0, count)
	for i := 0; i < count && 6+i*4+4 <= len(frame); i++ {
		ids = append(ids, accountIDAt(frame, 6+i*4))
	}
	h.registry.ApplySnapshot(srv.Slot, ids)
	return nil
}

func (h *Handler) registryFetch(ctx context.Context, srv *CharServer, frame []byte) error {
	accountID := accountIDAt(frame, 2)
	charID := accountIDAt(frame, 6)

	vars, err := h.regs.Read(ctx, accountID)
	if err != nil {
		h.log.Error("registry read failed", "account", accountID, "error", err)
		return nil
	}
	buf := make([]byte, constants.MaxFrameSize)
	n, truncated := serverpackets.RegistryReply(buf, accountID, charID, vars)
	if truncated {
		h.log.Warn("too many account variables, tail not sent", "account", accountID)
	}
	return srv.Send(buf[:n])
}

func (h *Handler) ipUpdate(frame []byte, srv *CharServer) error {
	var ip [4]byte
	copy(ip[:], frame[2:6])
	srv.SetIP(ip)
	h.log.Info("char-server ip updated",
		"server", srv.Name, "slot", srv.Slot,
		"ip", protocol.FormatIPv4(ip))
	return nil
}

// parseVariables splits the "name\0value\0" pair stream of 0x2728/0x2729.
func parseVariables(payload []byte) []model.Variable {
	var vars []model.Variable
	r := protocol.NewReader(payload, 0)
	for r.Remaining() > 0 {
		name, err := r.CString()
		if err != nil {
			break
		}
		value, err := r.CString()
		if err != nil {
			break
		}
		if name == "" {
			continue
		}
		if len(name) > 31 {
			name = name[:31]
		}
		if len(value) > 255 {
			value = value[:255]
		}
		vars = append(vars, model.Variable{Name: name, Value: value})
	}
	return vars
}
