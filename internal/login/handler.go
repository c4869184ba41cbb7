package login

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/udisondev/athlogin/internal/authfifo"
	"github.com/udisondev/athlogin/internal/charlink"
	"github.com/udisondev/athlogin/internal/config"
	"github.com/udisondev/athlogin/internal/constants"
	"github.com/udisondev/athlogin/internal/ipban"
	"github.com/udisondev/athlogin/internal/lan"
	"github.com/udisondev/athlogin/internal/login/serverpackets"
	"github.com/udisondev/athlogin/internal/model"
	"github.com/udisondev/athlogin/internal/protocol"
)

// Opcodes accepted from a not-yet-promoted connection.
const (
	OpLogin        = 0x0064
	OpLoginMD5     = 0x01dd
	OpLoginExt     = 0x0277
	OpMD5KeyReq    = 0x01db
	OpKeepAlive    = 0x0200
	OpKeepAliveEnc = 0x0204
	OpHandshake    = 0x2710
	OpVersionProbe = 0x7530
	OpGoodbye      = 0x7532
)

// ClientFrameTable describes the client-side frame sizes.
var ClientFrameTable = protocol.Table{
	OpLogin:        55,
	OpLoginMD5:     47,
	OpLoginExt:     84,
	OpMD5KeyReq:    2,
	OpKeepAlive:    26,
	OpKeepAliveEnc: 18,
	OpHandshake:    86,
	OpVersionProbe: 2,
	OpGoodbye:      2,
}

// dynamicBanDuration — срок бана подсети при state -2.
const dynamicBanDuration = 30 * 24 * time.Hour

// Auditor appends and queries loginlog rows.
type Auditor interface {
	Append(ctx context.Context, ip uint32, user string, rcode int, msg string) error
	CountPasswordFailures(ctx context.Context, ip uint32, window time.Duration) (int, error)
}

// StatusStore maintains sstatus rows at handshake time.
type StatusStore interface {
	Insert(ctx context.Context, slot int, name string) error
	Delete(ctx context.Context, slot int) error
}

// Disposition tells the connection loop what to do after a frame.
type Disposition struct {
	Close    bool
	Promoted *charlink.CharServer
}

// Handler dispatches frames from not-yet-promoted connections.
type Handler struct {
	cfg     *config.Config
	engine  *Engine
	gate    *ipban.Gate
	lanMap  *lan.Map
	fifo    *authfifo.Fifo
	table   *charlink.Table
	status  StatusStore
	audit   Auditor
	gmcache *charlink.GMCache
	pool    *BytePool
	log     *slog.Logger
}

// NewHandler wires the client-side dispatcher.
func NewHandler(
	cfg *config.Config,
	engine *Engine,
	gate *ipban.Gate,
	lanMap *lan.Map,
	fifo *authfifo.Fifo,
	table *charlink.Table,
	status StatusStore,
	audit Auditor,
	gmcache *charlink.GMCache,
	log *slog.Logger,
) *Handler {
	return &Handler{
		cfg:     cfg,
		engine:  engine,
		gate:    gate,
		lanMap:  lanMap,
		fifo:    fifo,
		table:   table,
		status:  status,
		audit:   audit,
		gmcache: gmcache,
		pool:    NewBytePool(constants.MaxFrameSize),
		log:     log,
	}
}

// Handle processes one complete frame.
func (h *Handler) Handle(ctx context.Context, cli *Client, frame []byte) (Disposition, error) {
	switch protocol.Opcode(frame) {
	case OpKeepAlive, OpKeepAliveEnc:
		return Disposition{}, nil

	case OpMD5KeyReq:
		if cli.md5KeySent {
			h.log.Warn("abnormal repeat request of MD5 key", "remote", cli.Addr())
			return Disposition{Close: true}, nil
		}
		cli.md5KeySent = true
		key := h.engine.MD5Key()
		buf := h.pool.Get(4 + len(key))
		defer h.pool.Put(buf)
		n := serverpackets.MD5Key(buf, key)
		return Disposition{}, cli.Send(buf[:n])

	case OpLogin, OpLoginMD5, OpLoginExt:
		return h.loginAttempt(ctx, cli, frame)

	case OpHandshake:
		return h.handshake(ctx, cli, frame)

	case OpVersionProbe:
		h.log.Info("version check", "remote", cli.Addr())
		buf := h.pool.Get(10)
		defer h.pool.Put(buf)
		n := serverpackets.VersionInfo(buf)
		return Disposition{}, cli.Send(buf[:n])

	case OpGoodbye:
		h.log.Info("end of connection", "remote", cli.Addr())
		return Disposition{Close: true}, nil

	default:
		return Disposition{Close: true}, protocol.ErrUnknownOpcode
	}
}

func (h *Handler) loginAttempt(ctx context.Context, cli *Client, frame []byte) (Disposition, error) {
	// Проверка IP-бана выполняется только на логин-пакетах.
	ip := cli.IP()
	if !h.gate.Allow(ctx, ip[0], ip[1], ip[2], ip[3]) {
		return Disposition{Close: true}, nil
	}

	req := Request{
		Version: binary.LittleEndian.Uint32(frame[2:]),
		UserID:  protocol.TrimFixed(frame[6 : 6+constants.NameLength]),
		IP:      ip,
	}
	if req.Version == 0 {
		req.Version = 1
	}
	if protocol.Opcode(frame) == OpLoginMD5 {
		req.Password = string(frame[30 : 30+16])
		req.PasswdEnc = PasswordEncMode
	} else {
		req.Password = protocol.TrimFixed(frame[30 : 30+constants.NameLength])
	}

	res := h.engine.Authenticate(ctx, req)
	if res.Code == ResultGranted {
		return Disposition{}, h.sendGranted(ctx, cli, req.UserID, res)
	}
	return Disposition{}, h.sendRefused(ctx, cli, req.UserID, res)
}

func (h *Handler) sendGranted(ctx context.Context, cli *Client, userid string, res Result) error {
	acc := res.Account

	if h.cfg.MinLevelToConnect > acc.Level {
		buf := h.pool.Get(3)
		defer h.pool.Put(buf)
		n := serverpackets.ServerClosed(buf, serverpackets.ServerClosedReasonClosed)
		return cli.Send(buf[:n])
	}

	// Вход с loopback в журнал не попадает.
	if h.cfg.LogLogin && cli.IP()[0] != 127 {
		if err := h.audit.Append(ctx, cli.IPHost(), userid, 100, "login ok"); err != nil {
			h.log.Error("audit append failed", "error", err)
		}
	}
	if acc.Level > 0 {
		h.log.Info("GM connection accepted", "user", userid, "level", acc.Level)
	} else {
		h.log.Info("connection accepted", "user", userid)
	}

	servers := h.table.List()
	if len(servers) == 0 {
		buf := h.pool.Get(3)
		defer h.pool.Put(buf)
		n := serverpackets.ServerClosed(buf, serverpackets.ServerClosedReasonClosed)
		return cli.Send(buf[:n])
	}

	entries := make([]serverpackets.ServerEntry, 0, len(servers))
	lanIP := h.lanMap.RewriteCharIP(cli.PeerIP())
	for _, srv := range servers {
		entry := serverpackets.ServerEntry{
			IP:          srv.Addr(),
			Port:        srv.Port,
			Name:        srv.Name,
			Users:       uint16(srv.Users()),
			Maintenance: srv.Maintenance,
			New:         srv.New,
		}
		if lanIP != nil {
			copy(entry.IP[:], lanIP.To4())
		}
		entries = append(entries, entry)
	}

	buf := h.pool.Get(47 + 32*len(entries))
	defer h.pool.Put(buf)
	n := serverpackets.LoginAccepted(buf, res.LoginID1, acc.ID, res.LoginID2, acc.Sex, entries)
	if err := cli.Send(buf[:n]); err != nil {
		return err
	}

	h.fifo.Push(authfifo.Entry{
		AccountID: acc.ID,
		LoginID1:  res.LoginID1,
		LoginID2:  res.LoginID2,
		Sex:       acc.Sex,
		IP:        cli.IP(),
	})
	return nil
}

func (h *Handler) sendRefused(ctx context.Context, cli *Client, userid string, res Result) error {
	code := res.Code
	ip := cli.IP()

	if h.cfg.LogLogin {
		msg := "login failed : " + RefusalText(code)
		if err := h.audit.Append(ctx, cli.IPHost(), userid, code, msg); err != nil {
			h.log.Error("audit append failed", "error", err)
		}
	}

	switch {
	case code == ResultBadPassword && h.cfg.DynamicPassFailureBan && h.cfg.LogLogin:
		// Серия неверных паролей с одного адреса банит его /24.
		n, err := h.audit.CountPasswordFailures(ctx, cli.IPHost(), h.cfg.DynamicPassFailureBanInterval)
		if err != nil {
			h.log.Error("password failure count failed", "error", err)
		} else if n >= h.cfg.DynamicPassFailureBanLimit {
			if err := h.gate.AddDynamic(ctx, ip[0], ip[1], ip[2],
				h.cfg.DynamicPassFailureBanDuration, "Password error ban: "+userid); err != nil {
				h.log.Error("dynamic ban failed", "error", err)
			}
		}
	case code == ResultDynamicBan:
		if err := h.gate.AddDynamic(ctx, ip[0], ip[1], ip[2],
			dynamicBanDuration, "Dynamic banned user id : "+userid); err != nil {
			h.log.Error("dynamic ban failed", "error", err)
		}
		code = ResultBanned
	}

	banDate := ""
	if code == ResultProhibited {
		banDate = time.Unix(res.BanUntil, 0).Format(h.cfg.DateLayout())
	}

	buf := h.pool.Get(23)
	defer h.pool.Put(buf)
	n := serverpackets.LoginRefused(buf, byte(code), banDate)
	return cli.Send(buf[:n])
}

func (h *Handler) handshake(ctx context.Context, cli *Client, frame []byte) (Disposition, error) {
	userid := protocol.TrimFixed(frame[2 : 2+constants.NameLength])
	passwd := protocol.TrimFixed(frame[26 : 26+constants.NameLength])
	var wanIP [4]byte
	copy(wanIP[:], frame[54:58])
	port := binary.LittleEndian.Uint16(frame[58:])
	name := protocol.TrimFixed(frame[60 : 60+constants.ServerNameLength])
	maintenance := binary.LittleEndian.Uint16(frame[82:])
	isNew := binary.LittleEndian.Uint16(frame[84:])

	h.log.Info("server connection request",
		"server", name,
		"announced", fmt.Sprintf("%s:%d", protocol.FormatIPv4(wanIP), port),
		"remote", cli.Addr())

	if h.cfg.LogLogin {
		msg := fmt.Sprintf("charserver - %s@%s:%d", name, protocol.FormatIPv4(wanIP), port)
		if err := h.audit.Append(ctx, cli.IPHost(), userid+"@"+name, 100, msg); err != nil {
			h.log.Error("audit append failed", "error", err)
		}
	}

	res := h.engine.Authenticate(ctx, Request{
		UserID:   userid,
		Password: passwd,
		IP:       cli.IP(),
	})

	if res.Code == ResultGranted &&
		res.Account.Sex == model.SexServer &&
		res.Account.ID < constants.MaxServers {

		slot := int(res.Account.ID)
		srv := charlink.NewCharServer(slot, name, wanIP, port, maintenance, isNew, cli.conn)
		if h.table.Claim(slot, srv) {
			h.log.Info("char-server connection accepted", "server", name, "slot", slot)
			if err := h.status.Delete(ctx, slot); err != nil {
				h.log.Error("sstatus delete failed", "error", err)
			}
			if err := h.status.Insert(ctx, slot, name); err != nil {
				h.log.Error("sstatus insert failed", "error", err)
			}

			buf := h.pool.Get(3)
			n := serverpackets.HandshakeResult(buf, serverpackets.HandshakeAccepted)
			err := cli.Send(buf[:n])
			h.pool.Put(buf)
			if err != nil {
				h.table.Release(slot)
				return Disposition{Close: true}, err
			}
			if err := h.gmcache.SendTo(srv); err != nil {
				h.log.Error("gm list push failed", "server", name, "error", err)
			}
			return Disposition{Promoted: srv}, nil
		}
	}

	buf := h.pool.Get(3)
	defer h.pool.Put(buf)
	n := serverpackets.HandshakeResult(buf, serverpackets.HandshakeRejected)
	return Disposition{}, cli.Send(buf[:n])
}
