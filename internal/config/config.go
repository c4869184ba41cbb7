package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the full login server configuration. Файлы конфигурации —
// плоский текст `key: value` со строками-комментариями `//` и директивой
// `import: path` (формат зафиксирован внешним интерфейсом, см. SPEC_FULL §6).
type Config struct {
	// Network
	BindIP    string
	LoginPort int

	// Policy
	LogLogin               bool
	DateFormat             string // strftime form, as written in the config file
	IPSyncInterval         time.Duration
	MinLevelToConnect      int
	NewAccount             bool
	CaseSensitive          bool
	UseMD5Passwords        bool
	GMReadEnabled          bool
	OnlineCheck            bool
	CheckClientVersion     bool
	ClientVersionToConnect uint32

	// IP banning
	IPBan                         bool
	DynamicPassFailureBan         bool
	DynamicPassFailureBanInterval time.Duration
	DynamicPassFailureBanLimit    int
	DynamicPassFailureBanDuration time.Duration
	UseDNSBL                      bool
	DNSBLServers                  []string

	// Account registration flood brake
	AllowedRegs int
	TimeAllowed time.Duration

	Database DatabaseConfig
	Tables   Tables
}

// DatabaseConfig holds PostgreSQL connection parameters
// (login_server_* keys).
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.DBName,
	)
}

// Tables holds the overridable relational table names.
type Tables struct {
	Login    string
	LoginLog string
	Reg      string
	IPBan    string
	SStatus  string
}

// Default returns the configuration defaults; значения совпадают с
// историческими дефолтами сервера.
func Default() Config {
	return Config{
		BindIP:                        "0.0.0.0",
		LoginPort:                     6900,
		LogLogin:                      true,
		DateFormat:                    "%Y-%m-%d %H:%M:%S",
		MinLevelToConnect:             0,
		NewAccount:                    true,
		CaseSensitive:                 true,
		UseMD5Passwords:               false,
		GMReadEnabled:                 true,
		OnlineCheck:                   true,
		CheckClientVersion:            false,
		ClientVersionToConnect:        20,
		IPBan:                         true,
		DynamicPassFailureBan:         true,
		DynamicPassFailureBanInterval: 5 * time.Minute,
		DynamicPassFailureBanLimit:    7,
		DynamicPassFailureBanDuration: 5 * time.Minute,
		AllowedRegs:                   1,
		TimeAllowed:                   10 * time.Second,
		Database: DatabaseConfig{
			Host:   "127.0.0.1",
			Port:   5432,
			User:   "ragnarok",
			DBName: "ragnarok",
		},
		Tables: Tables{
			Login:    "login",
			LoginLog: "loginlog",
			Reg:      "global_reg_value",
			IPBan:    "ipbanlist",
			SStatus:  "sstatus",
		},
	}
}

// Load reads the configuration file at path over the defaults.
// A missing file keeps the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := cfg.apply(path, 0); err != nil {
		return cfg, err
	}
	return cfg, nil
}

const maxImportDepth = 8

func (c *Config) apply(path string, depth int) error {
	if depth > maxImportDepth {
		return fmt.Errorf("config import depth exceeded at %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if strings.EqualFold(key, "import") {
			if err := c.apply(value, depth+1); err != nil {
				return err
			}
			continue
		}
		c.set(key, value)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

func (c *Config) set(key, value string) {
	switch strings.ToLower(key) {
	case "bind_ip":
		c.BindIP = value
	case "login_port":
		c.LoginPort = atoi(value)
	case "log_login":
		c.LogLogin = Switch(value)
	case "date_format":
		c.DateFormat = value
	case "ip_sync_interval":
		c.IPSyncInterval = time.Duration(atoi(value)) * time.Minute
	case "min_level_to_connect":
		c.MinLevelToConnect = atoi(value)
	case "new_account":
		c.NewAccount = Switch(value)
	case "case_sensitive":
		c.CaseSensitive = Switch(value)
	case "use_md5_passwords":
		c.UseMD5Passwords = Switch(value)
	case "gm_read_method":
		// 0 means the login server itself maintains the GM list.
		c.GMReadEnabled = atoi(value) == 0
	case "online_check":
		c.OnlineCheck = Switch(value)
	case "check_client_version":
		c.CheckClientVersion = Switch(value)
	case "client_version_to_connect":
		c.ClientVersionToConnect = uint32(atoi(value))
	case "ipban":
		c.IPBan = Switch(value)
	case "dynamic_pass_failure_ban":
		c.DynamicPassFailureBan = Switch(value)
	case "dynamic_pass_failure_ban_interval":
		c.DynamicPassFailureBanInterval = time.Duration(atoi(value)) * time.Minute
	case "dynamic_pass_failure_ban_limit":
		c.DynamicPassFailureBanLimit = atoi(value)
	case "dynamic_pass_failure_ban_duration":
		c.DynamicPassFailureBanDuration = time.Duration(atoi(value)) * time.Minute
	case "use_dnsbl":
		c.UseDNSBL = Switch(value)
	case "dnsbl_servers":
		c.DNSBLServers = nil
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.DNSBLServers = append(c.DNSBLServers, s)
			}
		}
	case "allowed_regs":
		c.AllowedRegs = atoi(value)
	case "time_allowed":
		c.TimeAllowed = time.Duration(atoi(value)) * time.Second
	case "login_server_ip":
		c.Database.Host = value
	case "login_server_port":
		c.Database.Port = atoi(value)
	case "login_server_id":
		c.Database.User = value
	case "login_server_pw":
		c.Database.Password = value
	case "login_server_db":
		c.Database.DBName = value
	case "login_db":
		c.Tables.Login = value
	case "loginlog_db":
		c.Tables.LoginLog = value
	case "reg_db":
		c.Tables.Reg = value
	case "ipban_db":
		c.Tables.IPBan = value
	case "sstatus_db":
		c.Tables.SStatus = value
	}
}

// Switch интерпретирует булево значение конфига: 1/0, on/off, yes/no
// (плюс исторические oui/non, ja/nein); всё прочее — как число.
func Switch(s string) bool {
	switch strings.ToLower(s) {
	case "1", "on", "yes", "oui", "ja":
		return true
	case "0", "off", "no", "non", "nein":
		return false
	}
	return atoi(s) != 0
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

// strftime→Go layout translation for the subset of specifiers the date_format
// key historically carries.
var strftimeRepl = strings.NewReplacer(
	"%Y", "2006",
	"%m", "01",
	"%d", "02",
	"%H", "15",
	"%M", "04",
	"%S", "05",
)

// DateLayout returns the Go time layout for the configured date_format.
func (c Config) DateLayout() string {
	return strftimeRepl.Replace(c.DateFormat)
}
