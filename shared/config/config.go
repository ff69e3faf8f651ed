package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	Site          Site          `yaml:"site"`
	Accounts      Accounts      `yaml:"accounts"`
	Reset         Reset         `yaml:"reset"`
	Invites       Invites       `yaml:"invites"`
	Notifications Notifications `yaml:"notifications"`
	Storage       Storage       `yaml:"storage"`
	HTTP          HTTP          `yaml:"http"`
	Auth          Auth          `yaml:"auth"`
	Log           Log           `yaml:"log"`
}

type Site struct {
	Name string `yaml:"name" validate:"required"`
	URL  string `yaml:"url" validate:"required,url"`
}

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

type Accounts struct {
	RegistrationDisabled bool     `yaml:"registration_disabled"`
	AllowMultipleEmails  bool     `yaml:"allow_multiple_emails"`
	UsernameMinLength    int      `yaml:"username_min_length"`
	UsernameMaxLength    int      `yaml:"username_max_length"`
	ReservedUsernames    []string `yaml:"reserved_usernames"`
	PasswordMinLength    int      `yaml:"password_min_length"`
	PasswordMaxBytes     int      `yaml:"password_max_bytes"` // at most 72, bcrypt's limit
	BcryptCost           int      `yaml:"bcrypt_cost"`
	DefaultLanguage      string   `yaml:"default_language"`
}

type Reset struct {
	TTL        time.Duration `yaml:"ttl"`
	CodeLength int           `yaml:"code_length"`
}

type Invites struct {
	Required   bool `yaml:"required"` // registration needs a valid invite code
	CodeLength int  `yaml:"code_length"`
}

type Notifications struct {
	NotifyOnBan   bool          `yaml:"notify_on_ban"`
	FlushInterval time.Duration `yaml:"flush_interval"` // deferred notifications (unban)
	QueueSize     int           `yaml:"queue_size"`     // outgoing email buffer
}

type Storage struct {
	Driver   string `yaml:"driver" validate:"omitempty,oneof=pg bunt"`
	BuntPath string `yaml:"bunt_path"`
}

type HTTP struct {
	Port           int      `yaml:"port"`
	SecureCookies  bool     `yaml:"secure_cookies"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Auth struct {
	JwtTTL           time.Duration `yaml:"jwt_ttl"`
	BanCacheInterval time.Duration `yaml:"ban_cache_interval"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Private struct {
	Pg         Pg     `yaml:"pg"`
	Email      Email  `yaml:"email"`
	JwtKey     string `yaml:"jwt_key" validate:"required"`
	HashPepper string `yaml:"hash_pepper" validate:"required,min=16"` // keys reset/invite code digests
}

type Pg struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
}

type Email struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	SenderName string `yaml:"sender_name"`
	Timeout    int    `yaml:"timeout"` // seconds
}

func (c *Config) JwtKey() string {
	return c.Private.JwtKey
}

// ApplyDefaults fills every optional field left at its zero value.
func (p *Public) ApplyDefaults() {
	if p.Accounts.UsernameMinLength == 0 {
		p.Accounts.UsernameMinLength = 4
	}
	if p.Accounts.UsernameMaxLength == 0 {
		p.Accounts.UsernameMaxLength = 128
	}
	if p.Accounts.PasswordMinLength == 0 {
		p.Accounts.PasswordMinLength = 6
	}
	if p.Accounts.PasswordMaxBytes == 0 || p.Accounts.PasswordMaxBytes > MaxPasswordBytes {
		p.Accounts.PasswordMaxBytes = MaxPasswordBytes
	}
	if p.Accounts.BcryptCost == 0 {
		p.Accounts.BcryptCost = 10
	}
	if p.Accounts.DefaultLanguage == "" {
		p.Accounts.DefaultLanguage = "en"
	}
	if p.Reset.TTL == 0 {
		p.Reset.TTL = 30 * time.Minute
	}
	if p.Reset.CodeLength == 0 {
		p.Reset.CodeLength = 8
	}
	if p.Invites.CodeLength == 0 {
		p.Invites.CodeLength = 16
	}
	if p.Notifications.FlushInterval == 0 {
		p.Notifications.FlushInterval = time.Minute
	}
	if p.Notifications.QueueSize == 0 {
		p.Notifications.QueueSize = 100
	}
	if p.Storage.Driver == "" {
		p.Storage.Driver = "pg"
	}
	if p.Storage.BuntPath == "" {
		p.Storage.BuntPath = "accounts.db"
	}
	if p.HTTP.Port == 0 {
		p.HTTP.Port = 8080
	}
	if p.Auth.JwtTTL == 0 {
		p.Auth.JwtTTL = 24 * time.Hour
	}
	if p.Auth.BanCacheInterval == 0 {
		p.Auth.BanCacheInterval = time.Minute
	}
	if p.Log.Level == "" {
		p.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(&c.Public); err != nil {
		return err
	}
	if err := v.Struct(&c.Private); err != nil {
		return err
	}
	if c.Public.Storage.Driver == "pg" && (c.Private.Pg.Host == "" || c.Private.Pg.Dbname == "") {
		return fmt.Errorf("pg storage requires pg.host and pg.dbname")
	}
	return nil
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file: " + configPath)
	}

	if err := yaml.Unmarshal(configFile, output); err != nil {
		panic("can't unmarshal config file " + configPath + ": " + err.Error())
	}
}

func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)
	public.ApplyDefaults()

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	cfg := &Config{Public: public, Private: private}
	if err := cfg.validate(); err != nil {
		panic("invalid config: " + err.Error())
	}
	return cfg
}
