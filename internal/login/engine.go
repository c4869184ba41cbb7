package login

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/udisondev/athlogin/internal/charlink"
	"github.com/udisondev/athlogin/internal/charlink/serverpackets"
	"github.com/udisondev/athlogin/internal/config"
	"github.com/udisondev/athlogin/internal/model"
	"github.com/udisondev/athlogin/internal/presence"
	"github.com/udisondev/athlogin/internal/protocol"
)

// AccountStore is the slice of the account repository the engine needs.
type AccountStore interface {
	Lookup(ctx context.Context, userid string, caseSensitive bool) (*model.Account, error)
	Exists(ctx context.Context, userid string) (bool, error)
	Create(ctx context.Context, userid, password string, sex model.Sex) (int64, error)
	UpdateLoginStats(ctx context.Context, userid string, caseSensitive bool, ip string) error
	ClearBanByUser(ctx context.Context, userid string, caseSensitive bool) error
}

// DNSBLChecker probes DNS blacklists.
type DNSBLChecker interface {
	Listed(ctx context.Context, a, b, c, d byte) bool
}

// PasswordEncMode — режим шифрования пароля в запросе 0x01dd: клиент мог
// посолить хэш с любой стороны, поэтому проверяются оба варианта.
const PasswordEncMode = 3

// Request is one authentication attempt.
type Request struct {
	UserID    string
	Password  string // cleartext, или 16 байт сырого MD5 при PasswdEnc > 0
	PasswdEnc int    // 0 или PasswordEncMode
	Version   uint32
	IP        [4]byte
}

// Result of an authentication attempt.
type Result struct {
	Code     int // ResultGranted или код отказа
	Account  *model.Account
	LoginID1 uint32
	LoginID2 uint32
	BanUntil int64 // для ResultProhibited: когда истекает бан
}

// Engine реализует решение "пускать или нет": порядок проверок жёстко
// зафиксирован совместимостью с клиентами и старыми журналами.
type Engine struct {
	cfg      *config.Config
	accounts AccountStore
	dnsbl    DNSBLChecker // nil когда use_dnsbl выключен
	registry *presence.Registry
	table    *charlink.Table
	md5Key   []byte
	log      *slog.Logger

	// armWatchdog ставит 30-секундный таймер принудительного дисконнекта.
	armWatchdog func(accountID int64)

	// Регистрационный тормоз: не больше allowed_regs аккаунтов за
	// time_allowed секунд.
	regMu      sync.Mutex
	numRegs    int
	newRegTick time.Time

	now func() time.Time
}

// NewEngine wires the authentication engine.
func NewEngine(
	cfg *config.Config,
	accounts AccountStore,
	dnsbl DNSBLChecker,
	registry *presence.Registry,
	table *charlink.Table,
	md5Key []byte,
	armWatchdog func(accountID int64),
	log *slog.Logger,
) *Engine {
	return &Engine{
		cfg:         cfg,
		accounts:    accounts,
		dnsbl:       dnsbl,
		registry:    registry,
		table:       table,
		md5Key:      md5Key,
		armWatchdog: armWatchdog,
		log:         log,
		now:         time.Now,
	}
}

// MD5Key returns the per-process salt handed out on 0x01db.
func (e *Engine) MD5Key() []byte { return e.md5Key }

// Authenticate runs the full decision chain for one login attempt.
func (e *Engine) Authenticate(ctx context.Context, req Request) Result {
	if e.cfg.UseDNSBL && e.dnsbl != nil &&
		e.dnsbl.Listed(ctx, req.IP[0], req.IP[1], req.IP[2], req.IP[3]) {
		e.log.Info("dnsbl hit, rejected",
			"ip", addrString(req.IP), "user", req.UserID)
		return Result{Code: ResultRejected}
	}

	// Регистрация суффиксом _M/_F. После успеха попытка продолжается уже
	// как обычный вход свежесозданного аккаунта.
	if e.cfg.NewAccount && req.PasswdEnc == 0 {
		if base, sex, ok := splitRegSuffix(req.UserID); ok && len(req.Password) >= 4 {
			if code := e.register(ctx, base, req.Password, sex); code != 0 {
				return Result{Code: code}
			}
			req.UserID = base
		}
	}

	acc, err := e.accounts.Lookup(ctx, req.UserID, e.cfg.CaseSensitive)
	if err != nil {
		e.log.Error("account lookup failed", "user", req.UserID, "error", err)
		return Result{Code: ResultUnregistered}
	}
	if acc == nil {
		e.log.Info("auth failed, no such account", "user", req.UserID)
		return Result{Code: ResultUnregistered}
	}

	if e.cfg.CheckClientVersion && req.Version != 0 &&
		req.Version != e.cfg.ClientVersionToConnect {
		return Result{Code: ResultStaleClient, Account: acc}
	}

	switch acc.State {
	case model.StateBanned:
		return Result{Code: ResultBanned, Account: acc}
	case model.StateDynamicBan:
		return Result{Code: ResultDynamicBan, Account: acc}
	}

	if !e.checkPassword(req, acc) {
		e.log.Info("auth failed, password error", "user", req.UserID)
		return Result{Code: ResultBadPassword, Account: acc}
	}

	now := e.now()
	if acc.BanUntil != 0 {
		if acc.BanUntil > now.Unix() {
			return Result{Code: ResultProhibited, Account: acc, BanUntil: acc.BanUntil}
		}
		// бан истёк — чистим поле
		if err := e.accounts.ClearBanByUser(ctx, req.UserID, e.cfg.CaseSensitive); err != nil {
			e.log.Error("ban clear failed", "user", req.UserID, "error", err)
		}
	}

	if acc.State != 0 {
		return Result{Code: stateToRefusal(acc.State), Account: acc}
	}

	if acc.ConnectUntil != 0 && acc.ConnectUntil < now.Unix() {
		return Result{Code: ResultExpired, Account: acc}
	}

	if server, online := e.registry.Lookup(acc.ID); online && server > presence.ServerNone {
		// Уже в игре: выгоняем отовсюду и даём 30 секунд на дисконнект.
		e.log.Info("user already online, rejected", "user", req.UserID)
		buf := make([]byte, 6)
		n := serverpackets.Kick(buf, acc.ID)
		e.table.Broadcast(buf[:n], charlink.BroadcastAll)
		if !e.registry.WaitingDisconnect(acc.ID) && e.armWatchdog != nil {
			e.armWatchdog(acc.ID)
		}
		e.registry.SetWaitingDisconnect(acc.ID)
		return Result{Code: ResultRejected, Account: acc}
	}

	if err := e.accounts.UpdateLoginStats(ctx, req.UserID, e.cfg.CaseSensitive, addrString(req.IP)); err != nil {
		e.log.Error("login stats update failed", "user", req.UserID, "error", err)
	}

	return Result{
		Code:     ResultGranted,
		Account:  acc,
		LoginID1: rand.Uint32(),
		LoginID2: rand.Uint32(),
	}
}

// register creates a new account (the _M/_F path). Returns 0 on success or a
// refusal code.
func (e *Engine) register(ctx context.Context, userid, password string, sex model.Sex) int {
	now := e.now()

	e.regMu.Lock()
	blocked := now.Before(e.newRegTick) && e.numRegs >= e.cfg.AllowedRegs
	e.regMu.Unlock()
	if blocked {
		e.log.Info("account registration denied, rate limit", "user", userid)
		return ResultRejected
	}

	exists, err := e.accounts.Exists(ctx, userid)
	if err != nil {
		e.log.Error("registration lookup failed", "user", userid, "error", err)
		return ResultBadPassword
	}
	if exists {
		return ResultBadPassword
	}

	stored := password
	if e.cfg.UseMD5Passwords {
		stored = md5Hex(password)
	}
	id, err := e.accounts.Create(ctx, userid, stored, sex)
	if err != nil {
		e.log.Error("registration failed", "user", userid, "error", err)
		return ResultBadPassword
	}
	e.log.Info("new account registered", "user", userid, "account", id, "sex", sex.Column())

	e.regMu.Lock()
	if now.After(e.newRegTick) {
		e.numRegs = 0
		e.newRegTick = now.Add(e.cfg.TimeAllowed)
	}
	e.numRegs++
	e.regMu.Unlock()
	return 0
}

// checkPassword matches the request against the stored credential.
func (e *Engine) checkPassword(req Request, acc *model.Account) bool {
	userPassword := req.Password
	if e.cfg.UseMD5Passwords {
		userPassword = md5Hex(req.Password)
	}

	if req.PasswdEnc > 0 {
		// Клиент прислал md5(соль‖пароль) либо md5(пароль‖соль);
		// режим 3 допускает оба, пробуем по очереди.
		digest := []byte(req.Password)
		if len(digest) >= md5.Size {
			digest = digest[:md5.Size]
			for _, mode := range encModes(req.PasswdEnc) {
				var salted []byte
				switch mode {
				case 1:
					salted = append(append([]byte{}, e.md5Key...), acc.Password...)
				case 2:
					salted = append([]byte(acc.Password), e.md5Key...)
				}
				sum := md5.Sum(salted)
				if string(digest) == string(sum[:]) {
					return true
				}
			}
		}
	}
	return userPassword == acc.Password
}

func encModes(enc int) []int {
	if enc >= PasswordEncMode {
		return []int{1, 2}
	}
	return []int{enc}
}

// stateToRefusal maps a stored non-zero state onto the client refusal code.
func stateToRefusal(state int32) int {
	if (state >= 1 && state <= 16) || (state >= 100 && state <= 105) {
		return int(state) - 1
	}
	return ResultErased
}

// splitRegSuffix detects the "_M"/"_F" registration suffix.
func splitRegSuffix(userid string) (base string, sex model.Sex, ok bool) {
	if len(userid) < 6 { // минимум 4 символа имени + суффикс
		return "", 0, false
	}
	tail := userid[len(userid)-2:]
	if tail[0] != '_' {
		return "", 0, false
	}
	switch tail[1] {
	case 'M', 'm':
		return userid[:len(userid)-2], model.SexMale, true
	case 'F', 'f':
		return userid[:len(userid)-2], model.SexFemale, true
	}
	return "", 0, false
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func addrString(ip [4]byte) string {
	return protocol.FormatIPv4(ip)
}
