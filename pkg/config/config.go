// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Assistant  AssistantConfig  `mapstructure:"assistant"`
	Model      ModelConfig      `mapstructure:"model"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Tools      ToolsConfig      `mapstructure:"tools"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port        int              `mapstructure:"port"`
	Host        string           `mapstructure:"host"`
	Timeout     string           `mapstructure:"timeout"`
	IdleTimeout string           `mapstructure:"idle_timeout"` // WebSocket 空闲断开，如 "100s"
	SessionTTL  string           `mapstructure:"session_ttl"`  // REST 会话闲置回收
	CORS        CORSConfig       `mapstructure:"cors"`
	Middleware  MiddlewareConfig `mapstructure:"middleware"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	RateLimit    bool `mapstructure:"rate_limit"`
	RateLimitRPS int  `mapstructure:"rate_limit_rps"`
}

// AssistantConfig 对话编排配置
type AssistantConfig struct {
	SystemPrompt        string          `mapstructure:"system_prompt"`
	InterviewPrompt     string          `mapstructure:"interview_prompt"`
	MaxHistory          int             `mapstructure:"max_history"` // <=0 不截断
	SilentTools         []string        `mapstructure:"silent_tools"`
	DispatchConcurrency int             `mapstructure:"dispatch_concurrency"`
	Temperature         float64         `mapstructure:"temperature"`
	MaxTokens           int             `mapstructure:"max_tokens"`
	Timeouts            TimeoutsConfig  `mapstructure:"timeouts"`
	Fallbacks           FallbacksConfig `mapstructure:"fallbacks"`
}

// TimeoutsConfig 外部调用超时，如 "30s"
type TimeoutsConfig struct {
	Completion string `mapstructure:"completion"`
	Tool       string `mapstructure:"tool"`
	Store      string `mapstructure:"store"`
}

// FallbacksConfig 模型返回空内容时的兜底文案
type FallbacksConfig struct {
	Acknowledgement string `mapstructure:"acknowledgement"` // 写入历史
	Working         string `mapstructure:"working"`         // 推送给用户
	Completed       string `mapstructure:"completed"`
	Failure         string `mapstructure:"failure"`
}

// RateLimitsConfig 限流配置
type RateLimitsConfig struct {
	LLM map[string]LLMRateLimitConfig `mapstructure:"llm"`
}

// LLMRateLimitConfig 单个 LLM Provider 的限流配置
type LLMRateLimitConfig struct {
	TokensPerMinute   int     `mapstructure:"tokens_per_minute"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	MaxConcurrent     int     `mapstructure:"max_concurrent"`
}

// ModelConfig 模型配置
type ModelConfig struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
}

// LLMConfig LLM 模型配置
type LLMConfig struct {
	Providers map[string]ProviderConfig `mapstructure:"providers"`
}

// ProviderConfig 模型提供商配置
type ProviderConfig struct {
	Type    string               `mapstructure:"type"` // openai | eino，空则按 provider 名推断
	APIKey  string               `mapstructure:"api_key"`
	BaseURL string               `mapstructure:"base_url"`
	Models  map[string]ModelInfo `mapstructure:"models"`
}

// ModelInfo 模型信息
type ModelInfo struct {
	Name          string  `mapstructure:"name"`
	ContextWindow int     `mapstructure:"context_window"`
	Temperature   float64 `mapstructure:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"`
}

// DefaultsConfig 默认模型配置，格式 provider.model_key
type DefaultsConfig struct {
	LLM string `mapstructure:"llm"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Conversation ConversationConfig `mapstructure:"conversation"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Object       ObjectConfig       `mapstructure:"object"`
}

// ConversationConfig 对话历史存储
type ConversationConfig struct {
	Type      string `mapstructure:"type"` // memory | redis | postgres
	Addr      string `mapstructure:"addr"`
	DB        int    `mapstructure:"db"`
	Password  string `mapstructure:"password"`
	DSN       string `mapstructure:"dsn"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// CacheConfig 缓存配置（待办、提醒、告警等小记录）
type CacheConfig struct {
	Type      string `mapstructure:"type"` // memory | redis
	Addr      string `mapstructure:"addr"`
	DB        int    `mapstructure:"db"`
	Password  string `mapstructure:"password"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// ObjectConfig 对象存储配置
type ObjectConfig struct {
	Type      string `mapstructure:"type"` // memory | file | s3
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	BasePath  string `mapstructure:"base_path"` // type=file
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// ToolsConfig 各工具的外部服务配置
type ToolsConfig struct {
	Weather  HTTPToolConfig `mapstructure:"weather"`
	Search   HTTPToolConfig `mapstructure:"search"`
	News     HTTPToolConfig `mapstructure:"news"`
	Email    EmailConfig    `mapstructure:"email"`
	Calendar CalendarConfig `mapstructure:"calendar"`
}

// HTTPToolConfig REST 类工具配置
type HTTPToolConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// EmailConfig SMTP 配置
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// CalendarConfig Google Calendar 配置；client_id 为空时使用内存日历
type CalendarConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	CalendarID   string `mapstructure:"calendar_id"`
	TimeZone     string `mapstructure:"time_zone"`
}

// SecretsConfig secret 存储配置
type SecretsConfig struct {
	Provider   string `mapstructure:"provider"` // env | memory | vault
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool    `mapstructure:"enable"`
	ServiceName    string  `mapstructure:"service_name"`
	ExportEndpoint string  `mapstructure:"export_endpoint"`
	Insecure       bool    `mapstructure:"insecure"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	// 替换环境变量
	replaceEnvVars(&config)

	return &config, nil
}

// expandEnv 将 "${NAME}" 或 "$NAME" 形式的值替换为环境变量；变量为空时保留原值
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "$") {
		return s
	}
	envVar := strings.TrimPrefix(strings.TrimSuffix(strings.TrimPrefix(s, "$"), "}"), "{")
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return s
}

// replaceEnvVars 替换配置中的环境变量
func replaceEnvVars(config *Config) {
	for provider, providerConfig := range config.Model.LLM.Providers {
		providerConfig.APIKey = expandEnv(providerConfig.APIKey)
		config.Model.LLM.Providers[provider] = providerConfig
	}

	t := &config.Tools
	t.Weather.APIKey = expandEnv(t.Weather.APIKey)
	t.Search.APIKey = expandEnv(t.Search.APIKey)
	t.News.APIKey = expandEnv(t.News.APIKey)
	t.Email.Password = expandEnv(t.Email.Password)
	t.Calendar.ClientSecret = expandEnv(t.Calendar.ClientSecret)
	t.Calendar.RefreshToken = expandEnv(t.Calendar.RefreshToken)

	s := &config.Storage
	s.Conversation.Password = expandEnv(s.Conversation.Password)
	s.Conversation.DSN = expandEnv(s.Conversation.DSN)
	s.Cache.Password = expandEnv(s.Cache.Password)
	s.Object.AccessKey = expandEnv(s.Object.AccessKey)
	s.Object.SecretKey = expandEnv(s.Object.SecretKey)

	config.Secrets.Token = expandEnv(config.Secrets.Token)
}

// LoadAPIConfig 加载 API 配置（仅 configs/api.yaml）
func LoadAPIConfig() (*Config, error) {
	return LoadConfig("configs/api.yaml")
}

// LoadAPIConfigWithModel 加载 configs/api.yaml 并合并 configs/model.yaml
func LoadAPIConfigWithModel() (*Config, error) {
	return LoadWithModel("configs/api.yaml", "configs/model.yaml")
}

// LoadWithModel 加载服务配置，并用 modelPath 中的 model 与 rate_limits 覆盖；
// modelPath 为空或读取失败时保留服务配置中的值
func LoadWithModel(apiPath, modelPath string) (*Config, error) {
	cfg, err := LoadConfig(apiPath)
	if err != nil {
		return nil, err
	}
	if modelPath == "" {
		return cfg, nil
	}
	modelCfg, err := LoadConfig(modelPath)
	if err != nil {
		return cfg, nil
	}
	if len(modelCfg.Model.LLM.Providers) > 0 {
		cfg.Model = modelCfg.Model
	}
	if len(modelCfg.RateLimits.LLM) > 0 {
		cfg.RateLimits = modelCfg.RateLimits
	}
	return cfg, nil
}

// ParseDuration 解析配置中的时长字符串，空或非法时返回默认值
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
