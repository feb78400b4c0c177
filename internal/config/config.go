package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/lock"
	"github.com/JoeShih716/go-account-ledger/pkg/logger"
	"github.com/JoeShih716/go-account-ledger/pkg/mysql"
	"github.com/JoeShih716/go-account-ledger/pkg/redis"
)

// 儲存與鎖的實作選擇
const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"

	LockRedis  = "redis"
	LockMemory = "memory"
)

// Config 服務設定 (config/config.yaml)
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         logger.Config     `yaml:"log"`
	Store       StoreConfig       `yaml:"store"`
	MySQL       mysql.Config      `yaml:"mysql"`
	Redis       redis.Config      `yaml:"redis"`
	Lock        LockConfig        `yaml:"lock"`
	Transaction TransactionConfig `yaml:"transaction"`
	// SeedUsers 啟動時補齊的預設使用者
	SeedUsers []string `yaml:"seed_users"`
}

// ServerConfig 對外監聽位址
type ServerConfig struct {
	GRPCAddr        string        `yaml:"grpc_addr"`
	OpsAddr         string        `yaml:"ops_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig 儲存後端
type StoreConfig struct {
	Driver  string `yaml:"driver"`
	WALPath string `yaml:"wal_path"`
}

// LockConfig 帳戶鎖
type LockConfig struct {
	Provider    string `yaml:"provider"`
	lock.Config `yaml:",inline"`
}

// TransactionConfig 交易限制
type TransactionConfig struct {
	MinAmount         int64 `yaml:"min_amount"`
	MaxAmount         int64 `yaml:"max_amount"`
	CancelWindowYears int   `yaml:"cancel_window_years"`
}

// Limits 轉成 domain.Limits
func (c TransactionConfig) Limits() domain.Limits {
	return domain.Limits{MinTransactionAmount: c.MinAmount, MaxTransactionAmount: c.MaxAmount}
}

// Load 讀取設定檔，環境變數 ${VAR} 會先被展開，接著補預設值並檢查
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 YAML 內容
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 全部使用預設值的設定 (記憶體儲存 + 記憶體鎖)
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults 補全沒有寫的設定
func (c *Config) applyDefaults() {
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Server.OpsAddr == "" {
		c.Server.OpsAddr = ":9090"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Store.Driver == "" {
		c.Store.Driver = StoreMemory
	}
	c.MySQL = c.MySQL.WithDefaults()

	if c.Lock.Provider == "" {
		c.Lock.Provider = LockMemory
		if len(c.Redis.Addrs) > 0 {
			c.Lock.Provider = LockRedis
		}
	}
	def := lock.DefaultConfig()
	if c.Lock.Wait == 0 {
		c.Lock.Wait = def.Wait
	}
	if c.Lock.Lease == 0 {
		c.Lock.Lease = def.Lease
	}
	if c.Lock.KeyPrefix == "" {
		c.Lock.KeyPrefix = def.KeyPrefix
	}

	if c.Transaction.MinAmount == 0 {
		c.Transaction.MinAmount = domain.DefaultMinTransactionAmount
	}
	if c.Transaction.MaxAmount == 0 {
		c.Transaction.MaxAmount = domain.DefaultMaxTransactionAmount
	}
	if c.Transaction.CancelWindowYears == 0 {
		c.Transaction.CancelWindowYears = domain.DefaultCancelWindowYears
	}
}

// Validate 檢查設定組合是否可用
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case StoreMemory:
	case StoreMySQL:
		if c.MySQL.Host == "" || c.MySQL.DBName == "" {
			errs = append(errs, errors.New("mysql.host and mysql.db_name are required for the mysql store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	switch c.Lock.Provider {
	case LockMemory:
	case LockRedis:
		if len(c.Redis.Addrs) == 0 {
			errs = append(errs, errors.New("redis.addrs is required for the redis lock provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown lock.provider %q", c.Lock.Provider))
	}
	if c.Lock.Wait < 0 || c.Lock.Lease <= 0 {
		errs = append(errs, errors.New("lock.wait must not be negative and lock.lease must be positive"))
	}
	if c.Lock.Lease <= c.Lock.Wait {
		errs = append(errs, fmt.Errorf("lock.lease (%s) must be longer than lock.wait (%s)", c.Lock.Lease, c.Lock.Wait))
	}

	if err := c.Transaction.Limits().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("transaction: %w", err))
	}
	if c.Transaction.CancelWindowYears < 0 {
		errs = append(errs, errors.New("transaction.cancel_window_years must not be negative"))
	}

	return errors.Join(errs...)
}
