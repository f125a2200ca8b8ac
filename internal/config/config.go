// Package config 负责加载 TOML 格式的配置文件
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// MainConfig 服务基本信息
type MainConfig struct {
	AppName  string `toml:"appName"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Mode     string `toml:"mode"`     // gin 运行模式：debug / release
	ForceTLS bool   `toml:"forceTLS"` // 为 true 时将 HTTP 请求重定向到 HTTPS
}

// MysqlConfig MySQL 连接配置
type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

// RedisConfig Redis 连接及异步任务池配置
type RedisConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Password  string `toml:"password"`
	Db        int    `toml:"db"`
	Workers   int    `toml:"workers"`   // 异步缓存任务 worker 数
	QueueSize int    `toml:"queueSize"` // 异步缓存任务队列长度
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`
	FileName   string `toml:"fileName"`
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`
}

// KafkaConfig 投递事件的跨节点分发配置
type KafkaConfig struct {
	MessageMode   string        `toml:"messageMode"`   // "channel"（单机）或 "kafka"（集群）
	HostPort      string        `toml:"hostPort"`      // 如 "localhost:9092"
	DeliveryTopic string        `toml:"deliveryTopic"` // 投递事件主题
	GroupPrefix   string        `toml:"groupPrefix"`   // 消费组前缀，每个节点独立消费组
	Timeout       time.Duration `toml:"timeout"`       // 秒
}

// JWTConfig JWT 校验配置
type JWTConfig struct {
	Secret            string `toml:"secret"`
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // 分钟
}

// SnowflakeConfig 雪花算法配置
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 范围 0-1023，集群部署时每个节点唯一
}

// DeliveryConfig 消息发送与推送相关的限制
type DeliveryConfig struct {
	MaxTextLength    int   `toml:"maxTextLength"`    // 单条消息最大字符数
	PageSize         int   `toml:"pageSize"`         // 会话分页默认条数
	MaxPageSize      int   `toml:"maxPageSize"`      // 会话分页最大条数
	SendBufferSize   int   `toml:"sendBufferSize"`   // 每个连接的推送缓冲
	WriteWaitSeconds int   `toml:"writeWaitSeconds"` // 单次写超时
	PongWaitSeconds  int   `toml:"pongWaitSeconds"`  // 心跳超时，超过即断开
	MaxFrameBytes    int64 `toml:"maxFrameBytes"`    // 客户端单帧大小上限
}

// Config 应用总配置
type Config struct {
	MainConfig      `toml:"mainConfig"`
	MysqlConfig     `toml:"mysqlConfig"`
	RedisConfig     `toml:"redisConfig"`
	LogConfig       `toml:"logConfig"`
	KafkaConfig     `toml:"kafkaConfig"`
	JWTConfig       `toml:"jwtConfig"`
	SnowflakeConfig `toml:"snowflakeConfig"`
	DeliveryConfig  `toml:"deliveryConfig"`
}

var config *Config

var searchPaths = []string{
	"configs/config_local.toml",
	"configs/config.toml",
	"../../configs/config_local.toml",
	"../../configs/config.toml",
}

// Load 从指定路径加载配置，path 为空时按默认路径依次查找
func Load(path string) (*Config, error) {
	cfg := new(Config)
	paths := searchPaths
	if path != "" {
		paths = []string{path}
	}
	var lastErr error
	for _, p := range paths {
		if _, err := toml.DecodeFile(p, cfg); err != nil {
			lastErr = err
			continue
		}
		cfg.ApplyDefaults()
		config = cfg
		return cfg, nil
	}
	return nil, fmt.Errorf("could not load configuration from %v: %w", paths, lastErr)
}

// GetConfig 获取全局配置，首次调用时按默认路径加载，找不到文件则使用默认值
func GetConfig() *Config {
	if config == nil {
		if _, err := Load(""); err != nil {
			config = new(Config)
			config.ApplyDefaults()
		}
	}
	return config
}

// ApplyDefaults 填充未配置的字段
func (c *Config) ApplyDefaults() {
	if c.AppName == "" {
		c.AppName = "social_relay"
	}
	if c.MainConfig.Host == "" {
		c.MainConfig.Host = "0.0.0.0"
	}
	if c.MainConfig.Port == 0 {
		c.MainConfig.Port = 8000
	}
	if c.Mode == "" {
		c.Mode = "debug"
	}
	if c.Workers == 0 {
		c.Workers = 15
	}
	if c.QueueSize == 0 {
		c.QueueSize = 3000
	}
	if c.MessageMode == "" {
		c.MessageMode = "channel"
	}
	if c.DeliveryTopic == "" {
		c.DeliveryTopic = "relay-delivery"
	}
	if c.GroupPrefix == "" {
		c.GroupPrefix = "relay-node-"
	}
	if c.KafkaConfig.Timeout == 0 {
		c.KafkaConfig.Timeout = 1
	}
	if c.AccessTokenExpiry == 0 {
		c.AccessTokenExpiry = 30
	}

	d := &c.DeliveryConfig
	if d.MaxTextLength == 0 {
		d.MaxTextLength = 2000
	}
	if d.PageSize == 0 {
		d.PageSize = 50
	}
	if d.MaxPageSize == 0 {
		d.MaxPageSize = 200
	}
	if d.SendBufferSize == 0 {
		d.SendBufferSize = 256
	}
	if d.WriteWaitSeconds == 0 {
		d.WriteWaitSeconds = 10
	}
	if d.PongWaitSeconds == 0 {
		d.PongWaitSeconds = 60
	}
	if d.MaxFrameBytes == 0 {
		d.MaxFrameBytes = 16 * 1024
	}
}

// WriteWait 单次写超时
func (d DeliveryConfig) WriteWait() time.Duration {
	return time.Duration(d.WriteWaitSeconds) * time.Second
}

// PongWait 心跳超时
func (d DeliveryConfig) PongWait() time.Duration {
	return time.Duration(d.PongWaitSeconds) * time.Second
}

// PingPeriod 心跳发送间隔，需小于 PongWait
func (d DeliveryConfig) PingPeriod() time.Duration {
	return d.PongWait() * 9 / 10
}
