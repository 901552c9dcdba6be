package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/RecoveryAshes/nicheharvest/internal/utils"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigFile 默认配置文件路径
	DefaultConfigFile = "configs/config.yaml"

	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024

	// EnvPrefix 环境变量前缀, 如 NICHEHARVEST_SCRAPING_MAX_RETRIES
	EnvPrefix = "NICHEHARVEST"
)

//go:embed config_template.yaml
var defaultTemplate string

// Loader 配置文件加载器
type Loader struct {
	configPath string
}

// NewLoader 创建加载器, configPath 为空时按默认路径搜索
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Template 返回内置配置模板
func Template() string {
	return defaultTemplate
}

// WriteTemplate 将配置模板写入指定路径(已存在则不覆盖)
func WriteTemplate(path string) (bool, error) {
	if path == "" {
		path = DefaultConfigFile
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(defaultTemplate), 0644); err != nil {
		return false, fmt.Errorf("无法生成配置文件 [%s]: %w", path, err)
	}
	return true, nil
}

// validateFileSize 验证配置文件大小是否在限制内
func validateFileSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > MaxConfigFileSize {
		return &models.ConfigError{
			FilePath: path,
			Cause: fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)",
				info.Size(), MaxConfigFileSize),
		}
	}
	return nil
}

// Load 加载配置
// 配置文件不存在或被锁定时使用默认值; 文件过大或解析失败返回 ConfigError
func (l *Loader) Load() (*models.Config, error) {
	v := viper.New()

	if l.configPath != "" {
		if err := validateFileSize(l.configPath); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
		v.SetConfigFile(l.configPath)
		v.SetConfigType("yaml")
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".nicheharvest"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			utils.Warnf("未找到配置文件, 使用默认配置")
		case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EWOULDBLOCK):
			utils.Warnf("配置文件被锁定 [%s], 使用默认配置", l.configPath)
		default:
			return nil, &models.ConfigError{FilePath: l.configPath, Cause: err}
		}
	} else if used := v.ConfigFileUsed(); used != "" && l.configPath == "" {
		if err := validateFileSize(used); err != nil {
			return nil, err
		}
		utils.Debugf("使用配置文件: %s", used)
	}

	var cfg models.Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, &models.ConfigError{
			FilePath: v.ConfigFileUsed(),
			Cause:    fmt.Errorf("配置绑定失败: %w", err),
		}
	}

	if len(cfg.Platforms) == 0 {
		cfg.Platforms = DefaultPlatforms()
	}
	if cfg.Scraping.Headers == nil {
		cfg.Scraping.Headers = make(map[string]string)
	}

	return &cfg, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("scraping.max_retries", 3)
	v.SetDefault("scraping.timeout", 30*time.Second)
	v.SetDefault("scraping.delay_between_requests", 2*time.Second)
	v.SetDefault("scraping.settle_time", 2*time.Second)
	v.SetDefault("scraping.submit_delay", 1*time.Second)
	v.SetDefault("scraping.max_workers", 5)
	v.SetDefault("scraping.headless", true)
	v.SetDefault("scraping.cloudflare_bypass", true)
	v.SetDefault("scraping.insecure_skip_verify", false)
	v.SetDefault("scraping.user_agents", []string{})
	v.SetDefault("scraping.user_agents_file", "")
	v.SetDefault("scraping.captcha_indicators", []string{})

	v.SetDefault("proxy.enabled", false)
	v.SetDefault("proxy.rotation", false)

	v.SetDefault("resources.max_browser_sessions", 4)
	v.SetDefault("resources.session_memory_mb", 300)
	v.SetDefault("resources.safety_reserve_mb", 1024)
	v.SetDefault("resources.cpu_load_threshold", 200)

	v.SetDefault("affiliate.builtin", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("output.dir", "output")
	v.SetDefault("output.records_file", "records.json")
	v.SetDefault("output.summary_file", "summary.json")
	v.SetDefault("output.progress", true)
}

// DefaultPlatforms 未配置平台时启用全部内置平台
func DefaultPlatforms() []models.PlatformConfig {
	out := make([]models.PlatformConfig, 0, len(models.KnownPlatforms))
	for _, p := range models.KnownPlatforms {
		out = append(out, models.PlatformConfig{Name: string(p)})
	}
	return out
}

var durationType = reflect.TypeOf(time.Duration(0))

// secondsToDurationHook 无单位的数字按秒解析, 如 timeout: 30
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != durationType {
			return data, nil
		}
		switch v := data.(type) {
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		case string:
			if secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return time.Duration(secs * float64(time.Second)), nil
			}
		}
		return data, nil
	}
}
