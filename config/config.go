package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 同步任务全局配置结构体
type Config struct {
	Server         ServerConfig                  `mapstructure:"server"`
	Store          DatabaseConfig                `mapstructure:"store"`
	Warehouse      WarehouseConfig               `mapstructure:"warehouse"`
	LRS            LRSConfig                     `mapstructure:"lrs"`
	Sync           SyncConfig                    `mapstructure:"sync"`
	Lock           LockConfig                    `mapstructure:"lock"`
	Log            LogConfig                     `mapstructure:"log"`
	ResourceAccess map[string]ResourceKindConfig `mapstructure:"resource_access"`
}

// ServerConfig schedule 模式下的状态服务配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig 关系型数据库连接配置（运营库 / LRS 直连）
type DatabaseConfig struct {
	Driver           string `mapstructure:"driver"` // mysql | postgres
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	Name             string `mapstructure:"name"`
	User             string `mapstructure:"user"`
	Password         string `mapstructure:"password"`
	PasswordSecretID string `mapstructure:"password_secret_id"` // 非空时从 AWS Secrets Manager 读取密码
	SSLMode          string `mapstructure:"sslmode"`
	MaxOpenConns     int    `mapstructure:"max_open_conns"`
	MaxIdleConns     int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  int    `mapstructure:"conn_max_lifetime"` // 连接最大生命周期（分钟）
}

// DSN 按驱动生成连接字符串
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "mysql" {
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Name,
		)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// WarehouseConfig 数据仓库（UDP PostgreSQL）配置
type WarehouseConfig struct {
	DatabaseConfig `mapstructure:",squash"`
	IsUnizin       bool `mapstructure:"is_unizin"` // 仓库类型标记，控制 unizin_metadata 同步
}

// LRSConfig 访问事件源配置
type LRSConfig struct {
	DatabaseConfig  `mapstructure:",squash"`
	Engine          string  `mapstructure:"engine"` // bigquery | postgres
	ProjectID       string  `mapstructure:"project_id"`
	Location        string  `mapstructure:"location"`
	CostPerTB       float64 `mapstructure:"cost_per_tb"`
	CutoffCondition string  `mapstructure:"cutoff_condition"` // 直连模式下的通用增量条件，为空则不追加
}

// IsBigQuery 是否使用计费查询服务
func (c *LRSConfig) IsBigQuery() bool {
	return c.Engine == "" || c.Engine == "bigquery"
}

// SyncConfig 同步行为配置
type SyncConfig struct {
	BatchSize             int      `mapstructure:"batch_size"`
	CanvasDataIDIncrement int64    `mapstructure:"canvas_data_id_increment"`
	ViewsDisabled         []string `mapstructure:"views_disabled"`
	TimeZone              string   `mapstructure:"time_zone"`
	RunAtTimes            []string `mapstructure:"run_at_times"`
}

// ResourceSyncEnabled 资源访问视图未被禁用时才同步访问事件
func (c *SyncConfig) ResourceSyncEnabled() bool {
	for _, v := range c.ViewsDisabled {
		if v == "show_resources_accessed" {
			return false
		}
	}
	return true
}

// LockConfig 单次运行互斥锁配置
type LockConfig struct {
	Backend  string        `mapstructure:"backend"` // none | redis | table
	TTL      time.Duration `mapstructure:"ttl"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"` // 非空时额外写入滚动日志文件
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// ResourceKindConfig 单类资源的访问事件查询
type ResourceKindConfig struct {
	Query                    []string `mapstructure:"query"`
	DataLastUpdatedCondition string   `mapstructure:"query_data_last_updated_condition"`
	ResolvesLoginName        bool     `mapstructure:"resolves_login_name"` // 查询可能输出 user_id=-1 + user_login_name
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8090)

	v.SetDefault("store.driver", "mysql")
	v.SetDefault("store.host", "localhost")
	v.SetDefault("store.port", 3306)
	v.SetDefault("store.name", "student_dashboard")
	v.SetDefault("store.user", "student_dashboard_user")
	v.SetDefault("store.sslmode", "disable")
	v.SetDefault("store.max_open_conns", 10)
	v.SetDefault("store.max_idle_conns", 5)
	v.SetDefault("store.conn_max_lifetime", 60)

	v.SetDefault("warehouse.driver", "postgres")
	v.SetDefault("warehouse.port", 5432)
	v.SetDefault("warehouse.sslmode", "require")
	v.SetDefault("warehouse.is_unizin", true)

	v.SetDefault("lrs.engine", "bigquery")
	v.SetDefault("lrs.driver", "postgres")
	v.SetDefault("lrs.port", 5432)
	v.SetDefault("lrs.sslmode", "require")
	v.SetDefault("lrs.location", "US")
	v.SetDefault("lrs.cost_per_tb", 5.0)

	v.SetDefault("sync.batch_size", 1000)
	v.SetDefault("sync.canvas_data_id_increment", int64(17700000000000000))
	v.SetDefault("sync.views_disabled", []string{})
	v.SetDefault("sync.time_zone", "America/Detroit")
	v.SetDefault("sync.run_at_times", []string{})

	v.SetDefault("lock.backend", "none")
	v.SetDefault("lock.ttl", "6h")
	v.SetDefault("lock.addr", "localhost:6379")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("MYLA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Store.Driver != "mysql" && c.Store.Driver != "postgres" {
		return fmt.Errorf("配置校验失败: store.driver 仅支持 mysql 或 postgres，实际=%q", c.Store.Driver)
	}
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("配置校验失败: sync.batch_size 必须大于 0")
	}
	if c.LRS.Engine != "bigquery" && c.LRS.Engine != "postgres" {
		return fmt.Errorf("配置校验失败: lrs.engine 仅支持 bigquery 或 postgres，实际=%q", c.LRS.Engine)
	}
	if c.LRS.Engine == "bigquery" && c.LRS.CostPerTB < 0 {
		return fmt.Errorf("配置校验失败: lrs.cost_per_tb 不能为负数")
	}
	switch c.Lock.Backend {
	case "none", "redis", "table":
	default:
		return fmt.Errorf("配置校验失败: lock.backend 仅支持 none/redis/table，实际=%q", c.Lock.Backend)
	}
	if _, err := time.LoadLocation(c.Sync.TimeZone); err != nil {
		return fmt.Errorf("配置校验失败: sync.time_zone 无效: %w", err)
	}
	for name, kind := range c.ResourceAccess {
		if len(kind.Query) == 0 {
			return fmt.Errorf("配置校验失败: resource_access.%s.query 不能为空", name)
		}
	}
	return nil
}
