package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// EnvTargetChainID 覆盖配置文件中的目标链 ID。
const EnvTargetChainID = "SCAFFOLD_TARGET_CHAIN_ID"

// Config 描述了服务在启动阶段需要加载的核心配置。
type Config struct {
	Server      ServerConfig      `json:"server"`
	Log         LogConfig         `json:"log"`
	Web3        Web3Config        `json:"web3"`
	Deployments DeploymentsConfig `json:"deployments"`
	Events      EventsConfig      `json:"events"`
}

// ServerConfig 控制 API 服务的监听地址。MetricsAddress 非空时指标单独监听。
type ServerConfig struct {
	Address               string           `json:"address"`
	MetricsAddress        string           `json:"metrics_address"`
	RequestTimeoutSeconds int              `json:"request_timeout_seconds"`
	Auth                  ServerAuthConfig `json:"auth"`
}

// ServerAuthConfig 列出允许调用写接口的令牌摘要，为空表示不校验。
type ServerAuthConfig struct {
	Tokens []APITokenConfig `json:"tokens"`
}

// APITokenConfig 描述单个调用方令牌的 SHA-256 摘要。
type APITokenConfig struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
}

// LogConfig 对应 pkg/logger 的配置。
type LogConfig struct {
	Level   string        `json:"level"`
	Format  string        `json:"format"`
	Outputs []string      `json:"outputs"`
	File    LogFileConfig `json:"file"`
}

// LogFileConfig 描述滚动日志文件。
type LogFileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// Web3Config 描述目标链以及链节点连接方式。
type Web3Config struct {
	TargetChainID int64        `json:"target_chain_id"`
	ChainConfig   string       `json:"chain_config"`
	RPCURL        string       `json:"rpc_url"`
	DefaultChain  string       `json:"default_chain"`
	Signer        SignerConfig `json:"signer"`
}

// SignerConfig 指定签名私钥所在的环境变量，留空表示只读模式。
type SignerConfig struct {
	PrivateKeyEnv string `json:"private_key_env"`
}

// DeploymentsConfig 描述合约部署记录的来源。
type DeploymentsConfig struct {
	Source string           `json:"source"`
	Dir    string           `json:"dir"`
	MySQL  MySQLConfig      `json:"mysql"`
	Cache  DeploymentsCache `json:"cache"`
}

// MySQLConfig 描述部署记录库的连接池参数。
type MySQLConfig struct {
	DSN                    string `json:"dsn"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
}

// DeploymentsCache 为部署记录配置 Redis 读穿缓存。
type DeploymentsCache struct {
	Redis RedisConfig `json:"redis"`
}

// RedisConfig 描述 Redis 连接参数。
type RedisConfig struct {
	Address    string `json:"address"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	Key        string `json:"key"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// TTL 返回缓存过期时间。
func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

// EventsConfig 控制 Transfer 事件的转发。
type EventsConfig struct {
	Enabled  bool           `json:"enabled"`
	Driver   string         `json:"driver"`
	Buffer   int            `json:"buffer"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
}

// RabbitMQConfig 描述 RabbitMQ 队列参数。
type RabbitMQConfig struct {
	URL     string `json:"url"`
	Queue   string `json:"queue"`
	Durable bool   `json:"durable"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	return Parse(file, filepath.Dir(path))
}

// Parse 从 reader 读取配置，相对路径以 baseDir 为基准。
func Parse(r io.Reader, baseDir string) (*Config, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	raw := strings.TrimSpace(os.Getenv(EnvTargetChainID))
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%s 不是合法的链 ID: %w", EnvTargetChainID, err)
	}
	c.Web3.TargetChainID = id
	return nil
}

// applyDefaults 在用户未填写部分字段时设置默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		c.Server.RequestTimeoutSeconds = 15
	}

	c.Web3.ChainConfig = resolvePath(baseDir, c.Web3.ChainConfig)
	c.Log.File.Path = resolvePath(baseDir, c.Log.File.Path)

	if c.Deployments.Source == "" {
		c.Deployments.Source = "embedded"
	}
	c.Deployments.Dir = resolvePath(baseDir, c.Deployments.Dir)
	if c.Deployments.Cache.Redis.Key == "" {
		c.Deployments.Cache.Redis.Key = "scaffold:deployments"
	}
	if c.Deployments.Cache.Redis.TTLSeconds <= 0 {
		c.Deployments.Cache.Redis.TTLSeconds = 300
	}

	if c.Events.Driver == "" {
		c.Events.Driver = "memory"
	}
	if c.Events.Buffer <= 0 {
		c.Events.Buffer = 256
	}
	if c.Events.Redis.Key == "" {
		c.Events.Redis.Key = "scaffold:events:transfer"
	}
	if c.Events.RabbitMQ.Queue == "" {
		c.Events.RabbitMQ.Queue = "scaffold.events.transfer"
	}
}

// Validate 检查必填项。
func (c *Config) Validate() error {
	if c.Web3.TargetChainID <= 0 {
		return fmt.Errorf("web3.target_chain_id 必须为正整数 (或设置 %s)", EnvTargetChainID)
	}
	if strings.TrimSpace(c.Web3.ChainConfig) == "" && strings.TrimSpace(c.Web3.RPCURL) == "" {
		return errors.New("web3.chain_config 与 web3.rpc_url 至少需要配置一项")
	}
	for i, token := range c.Server.Auth.Tokens {
		if strings.TrimSpace(token.Name) == "" || strings.TrimSpace(token.SHA256) == "" {
			return fmt.Errorf("server.auth.tokens[%d] 缺少 name 或 sha256", i)
		}
	}
	switch c.Deployments.Source {
	case "embedded":
	case "dir":
		if c.Deployments.Dir == "" {
			return errors.New("deployments.source=dir 时必须配置 deployments.dir")
		}
	case "mysql":
		if strings.TrimSpace(c.Deployments.MySQL.DSN) == "" {
			return errors.New("deployments.source=mysql 时必须配置 deployments.mysql.dsn")
		}
	default:
		return fmt.Errorf("未知的部署记录来源: %s", c.Deployments.Source)
	}
	switch c.Events.Driver {
	case "memory", "redis", "rabbitmq":
	default:
		return fmt.Errorf("未知的事件驱动: %s", c.Events.Driver)
	}
	return nil
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
