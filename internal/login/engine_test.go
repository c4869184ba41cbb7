package login

import (
	"context"
	"crypto/md5"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/athlogin/internal/charlink"
	"github.com/udisondev/athlogin/internal/config"
	"github.com/udisondev/athlogin/internal/model"
	"github.com/udisondev/athlogin/internal/presence"
)

// fakeAccounts is an in-memory AccountStore for engine tests.
type fakeAccounts struct {
	accounts map[string]*model.Account
	nextID   int64

	created      []string
	statsUpdated []string
	banCleared   []string
}

func newFakeAccounts(accs ...*model.Account) *fakeAccounts {
	f := &fakeAccounts{accounts: make(map[string]*model.Account), nextID: 2000000}
	for _, a := range accs {
		f.accounts[a.UserID] = a
	}
	return f
}

func (f *fakeAccounts) Lookup(_ context.Context, userid string, _ bool) (*model.Account, error) {
	acc, ok := f.accounts[userid]
	if !ok {
		return nil, nil
	}
	cp := *acc
	return &cp, nil
}

func (f *fakeAccounts) Exists(_ context.Context, userid string) (bool, error) {
	_, ok := f.accounts[userid]
	return ok, nil
}

func (f *fakeAccounts) Create(_ context.Context, userid, password string, sex model.Sex) (int64, error) {
	id := f.nextID
	f.nextID++
	f.accounts[userid] = &model.Account{ID: id, UserID: userid, Password: password, Sex: sex}
	f.created = append(f.created, userid)
	return id, nil
}

func (f *fakeAccounts) UpdateLoginStats(_ context.Context, userid string, _ bool, _ string) error {
	f.statsUpdated = append(f.statsUpdated, userid)
	return nil
}

func (f *fakeAccounts) ClearBanByUser(_ context.Context, userid string, _ bool) error {
	f.banCleared = append(f.banCleared, userid)
	if acc, ok := f.accounts[userid]; ok {
		acc.BanUntil = 0
	}
	return nil
}

type fakeDNSBL struct{ listed bool }

func (f fakeDNSBL) Listed(context.Context, byte, byte, byte, byte) bool { return f.listed }

func testEngine(t *testing.T, cfg *config.Config, accounts *fakeAccounts) (*Engine, *presence.Registry) {
	t.Helper()
	registry := presence.New(true)
	engine := NewEngine(cfg, accounts, nil, registry, charlink.NewTable(),
		[]byte("0123456789ab"), nil, slog.Default())
	return engine, registry
}

func plainRequest(userid, password string) Request {
	return Request{UserID: userid, Password: password, IP: [4]byte{10, 0, 0, 1}}
}

func TestAuthenticateGranted(t *testing.T) {
	cfg := config.Default()
	accounts := newFakeAccounts(&model.Account{
		ID: 2000000, UserID: "gandalf", Password: "mellon", Sex: model.SexMale,
	})
	engine, _ := testEngine(t, &cfg, accounts)

	res := engine.Authenticate(context.Background(), plainRequest("gandalf", "mellon"))

	require.Equal(t, ResultGranted, res.Code)
	require.NotNil(t, res.Account)
	assert.Equal(t, int64(2000000), res.Account.ID)
	assert.Equal(t, []string{"gandalf"}, accounts.statsUpdated)
}

func TestAuthenticateUnknownAccount(t *testing.T) {
	cfg := config.Default()
	engine, _ := testEngine(t, &cfg, newFakeAccounts())

	res := engine.Authenticate(context.Background(), plainRequest("nobody", "pw"))

	assert.Equal(t, ResultUnregistered, res.Code)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	cfg := config.Default()
	accounts := newFakeAccounts(&model.Account{
		ID: 2000000, UserID: "gandalf", Password: "mellon",
	})
	engine, _ := testEngine(t, &cfg, accounts)

	res := engine.Authenticate(context.Background(), plainRequest("gandalf", "wrong"))

	assert.Equal(t, ResultBadPassword, res.Code)
	assert.Empty(t, accounts.statsUpdated)
}

func TestAuthenticateMD5Stored(t *testing.T) {
	cfg := config.Default()
	cfg.UseMD5Passwords = true
	accounts := newFakeAccounts(&model.Account{
		ID: 2000000, UserID: "gandalf", Password: md5Hex("mellon"),
	})
	engine, _ := testEngine(t, &cfg, accounts)

	res := engine.Authenticate(context.Background(), plainRequest("gandalf", "mellon"))
	assert.Equal(t, ResultGranted, res.Code)

	res = engine.Authenticate(context.Background(), plainRequest("gandalf", "wrong"))
	assert.Equal(t, ResultBadPassword, res.Code)
}

func TestAuthenticateSaltedDigest(t *testing.T) {
	cfg := config.Default()
	accounts := newFakeAccounts(&model.Account{
		ID: 2000000, UserID: "gandalf", Password: "mellon",
	})
	engine, _ := testEngine(t, &cfg, accounts)

	// клиент солит с любой стороны, принимаются оба варианта
	keyFirst := md5.Sum(append(append([]byte{}, engine.MD5Key()...), "mellon"...))
	passFirst := md5.Sum(append([]byte("mellon"), engine.MD5Key()...))

	for _, digest := range [][16]byte{keyFirst, passFirst} {
		req := plainRequest("gandalf", string(digest[:]))
		req.PasswdEnc = PasswordEncMode
		res := engine.Authenticate(context.Background(), req)
		assert.Equal(t, ResultGranted, res.Code)
	}

	req := plainRequest("gandalf", string(make([]byte, 16)))
	req.PasswdEnc = PasswordEncMode
	res := engine.Authenticate(context.Background(), req)
	assert.Equal(t, ResultBadPassword, res.Code)
}

func TestAuthenticateStates(t *testing.T) {
	tests := []struct {
		name  string
		state int32
		want  int
	}{
		{"banned", model.StateBanned, ResultBanned},
		{"dynamic ban", model.StateDynamicBan, ResultDynamicBan},
		{"blocked by gm", 5, 4},
		{"state 100 range", 102, 101},
		{"unmapped state", 50, ResultErased},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			accounts := newFakeAccounts(&model.Account{
				ID: 2000000, UserID: "gandalf", Password: "mellon", State: tt.state,
			})
			engine, _ := testEngine(t, &cfg, accounts)

			res := engine.Authenticate(context.Background(), plainRequest("gandalf", "mellon"))
			assert.Equal(t, tt.want, res.Code)
		})
	}
}

func TestAuthenticateStateCheckedBeforePassword(t *testing.T) {
	cfg := config.Default()
	accounts := newFakeAccounts(&model.Account{
		ID: 2000000, UserID: "gandalf", Password: "mellon", State: model.StateBanned,
	})
	engine, _ := testEngine(t, &cfg, accounts)

	// бан срабатывает раньше проверки пароля
	res := engine.Authenticate(context.Background(), plainRequest("gandalf", "wrong"))
	assert.Equal(t, ResultBanned, res.Code)
}

func TestAuthenticateTemporaryBan(t *testing.T) {
	cfg := config.Default()
	future := time.Now().Add(time.Hour).Unix()
	accounts := newFakeAccounts(&model.Account{
		ID: 2000000, UserID: "gandalf", Password: "mellon", BanUntil: future,
	})
	engine, _ := testEngine(t, &cfg, accounts)

	res := engine.Authenticate(context.Background(), plainRequest("gandalf", "mellon"))

	assert.Equal(t, ResultProhibited, res.Code)
	assert.Equal(t, future, res.BanUntil)
}

func TestAuthenticateExpiredBanIsCleared(t *testing.T) {
	cfg := config.Default()
	accounts := newFakeAccounts(&model.Account{
		ID: 2000000, UserID: "gandalf", Password: "mellon",
		BanUntil: time.Now().Add(-time.Hour).Unix(),
	})
	engine, _ := testEngine(t, &cfg, accounts)

	res := engine.Authenticate(context.Background(), plainRequest("gandalf", "mellon"))

	assert.Equal(t, ResultGranted, res.Code)
	assert.Equal(t, []string{"gandalf"}, accounts.banCleared)
}

func TestAuthenticateExpiredAccount(t *testing.T) {
	cfg := config.Default()
	accounts := newFakeAccounts(&model.Account{
		ID: 2000000, UserID: "gandalf", Password: "mellon",
		ConnectUntil: time.Now().Add(-time.Minute).Unix(),
	})
	engine, _ := testEngine(t, &cfg, accounts)

	res := engine.Authenticate(context.Background(), plainRequest("gandalf", "mellon"))
	assert.Equal(t, ResultExpired, res.Code)
}

func TestAuthenticateVersionGate(t *testing.T) {
	cfg := config.Default()
	cfg.CheckClientVersion = true
	cfg.ClientVersionToConnect = 25
	accounts := newFakeAccounts(&model.Account{
		ID: 2000000, UserID: "gandalf", Password: "mellon",
	})
	engine, _ := testEngine(t, &cfg, accounts)

	req := plainRequest("gandalf", "mellon")
	req.Version = 20
	res := engine.Authenticate(context.Background(), req)
	assert.Equal(t, ResultStaleClient, res.Code)

	req.Version = 25
	res = engine.Authenticate(context.Background(), req)
	assert.Equal(t, ResultGranted, res.Code)

	// нулевая версия не проверяется: пакет 0x0064 может её не нести
	req.Version = 0
	res = engine.Authenticate(context.Background(), req)
	assert.Equal(t, ResultGranted, res.Code)
}

func TestAuthenticateDNSBL(t *testing.T) {
	cfg := config.Default()
	cfg.UseDNSBL = true
	accounts := newFakeAccounts(&model.Account{
		ID: 2000000, UserID: "gandalf", Password: "mellon",
	})
	registry := presence.New(true)
	engine := NewEngine(&cfg, accounts, fakeDNSBL{listed: true}, registry,
		charlink.NewTable(), []byte("0123456789ab"), nil, slog.Default())

	res := engine.Authenticate(context.Background(), plainRequest("gandalf", "mellon"))
	assert.Equal(t, ResultRejected, res.Code)
}

func TestAuthenticateAlreadyOnline(t *testing.T) {
	cfg := config.Default()
	accounts := newFakeAccounts(&model.Account{
		ID: 2000000, UserID: "gandalf", Password: "mellon",
	})
	registry := presence.New(true)
	var watchdogArmed []int64
	engine := NewEngine(&cfg, accounts, nil, registry, charlink.NewTable(),
		[]byte("0123456789ab"), func(aid int64) { watchdogArmed = append(watchdogArmed, aid) },
		slog.Default())

	registry.MarkOnline(2000000, 0)

	res := engine.Authenticate(context.Background(), plainRequest("gandalf", "mellon"))
	assert.Equal(t, ResultRejected, res.Code)
	assert.Equal(t, []int64{2000000}, watchdogArmed)
	assert.True(t, registry.WaitingDisconnect(2000000))

	// повторная попытка не взводит второй сторожок
	res = engine.Authenticate(context.Background(), plainRequest("gandalf", "mellon"))
	assert.Equal(t, ResultRejected, res.Code)
	assert.Len(t, watchdogArmed, 1)
}

func TestAuthenticateOnlineCheckDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.OnlineCheck = false
	accounts := newFakeAccounts(&model.Account{
		ID: 2000000, UserID: "gandalf", Password: "mellon",
	})
	registry := presence.New(false)
	engine := NewEngine(&cfg, accounts, nil, registry, charlink.NewTable(),
		[]byte("0123456789ab"), nil, slog.Default())
	registry.MarkOnline(2000000, 0) // no-op при выключенном реестре

	res := engine.Authenticate(context.Background(), plainRequest("gandalf", "mellon"))
	assert.Equal(t, ResultGranted, res.Code)
}

func TestRegistrationSuffix(t *testing.T) {
	cfg := config.Default()
	accounts := newFakeAccounts()
	engine, _ := testEngine(t, &cfg, accounts)

	res := engine.Authenticate(context.Background(), plainRequest("frodo_M", "precious"))

	require.Equal(t, ResultGranted, res.Code)
	assert.Equal(t, []string{"frodo"}, accounts.created)
	assert.Equal(t, model.SexMale, accounts.accounts["frodo"].Sex)

	// повторный вход по уже созданному аккаунту
	res = engine.Authenticate(context.Background(), plainRequest("frodo", "precious"))
	assert.Equal(t, ResultGranted, res.Code)
}

func TestRegistrationDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.NewAccount = false
	accounts := newFakeAccounts()
	engine, _ := testEngine(t, &cfg, accounts)

	res := engine.Authenticate(context.Background(), plainRequest("frodo_M", "precious"))

	assert.Equal(t, ResultUnregistered, res.Code)
	assert.Empty(t, accounts.created)
}

func TestRegistrationRequiresLongEnoughNames(t *testing.T) {
	cfg := config.Default()
	accounts := newFakeAccounts()
	engine, _ := testEngine(t, &cfg, accounts)

	// короткое имя и короткий пароль не запускают регистрацию
	res := engine.Authenticate(context.Background(), plainRequest("ab_M", "password"))
	assert.Equal(t, ResultUnregistered, res.Code)

	res = engine.Authenticate(context.Background(), plainRequest("frodo_M", "abc"))
	assert.Equal(t, ResultUnregistered, res.Code)
	assert.Empty(t, accounts.created)
}

func TestRegistrationFloodBrake(t *testing.T) {
	cfg := config.Default()
	cfg.AllowedRegs = 1
	cfg.TimeAllowed = 10 * time.Second
	accounts := newFakeAccounts()
	engine, _ := testEngine(t, &cfg, accounts)

	base := time.Now()
	engine.now = func() time.Time { return base }

	res := engine.Authenticate(context.Background(), plainRequest("frodo_M", "precious"))
	require.Equal(t, ResultGranted, res.Code)

	// второй аккаунт в том же окне отклоняется
	res = engine.Authenticate(context.Background(), plainRequest("samwise_F", "potatoes"))
	assert.Equal(t, ResultRejected, res.Code)

	// окно истекло
	engine.now = func() time.Time { return base.Add(11 * time.Second) }
	res = engine.Authenticate(context.Background(), plainRequest("samwise_F", "potatoes"))
	assert.Equal(t, ResultGranted, res.Code)
	assert.Equal(t, []string{"frodo", "samwise"}, accounts.created)
}

func TestSplitRegSuffix(t *testing.T) {
	tests := []struct {
		in   string
		base string
		sex  model.Sex
		ok   bool
	}{
		{"frodo_M", "frodo", model.SexMale, true},
		{"frodo_f", "frodo", model.SexFemale, true},
		{"frodo_X", "", 0, false},
		{"frodoM", "", 0, false},
		{"ab_M", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			base, sex, ok := splitRegSuffix(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.base, base)
				assert.Equal(t, tt.sex, sex)
			}
		})
	}
}
