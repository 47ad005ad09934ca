package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/moyu-x/file-sorter/internal"
)

var ErrConfigNotFound = errors.New("配置文件不存在")

type Config struct {
	// Categories 用户分类表，分类名保留大小写
	Categories map[string][]string `mapstructure:"-"`
	Ignore     []string
	History    struct {
		Backend string
		Path    string
	}
	Logging struct {
		Level string
		File  string
	}
	Performance struct {
		Workers int
	}

	// File 实际加载的配置文件，未找到时为空
	File string `mapstructure:"-"`
}

// Load 加载配置文件
// path 为空时依次使用 FILE_SORTER_CONFIG 环境变量和默认搜索路径
// 明确指定的文件不存在时返回错误，搜索不到则使用默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv(internal.ConfigEnvVar)
	}

	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(expanded); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, expanded)
		}
		v.SetConfigFile(expanded)
		if filepath.Ext(expanded) == "" {
			v.SetConfigType("json")
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("$HOME/.file-sorter")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/file-sorter")
	}

	v.SetDefault("ignore", []string{})
	v.SetDefault("history.backend", "jsonl")
	v.SetDefault("history.path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("performance.workers", 0)

	v.SetEnvPrefix("FILE_SORTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.File != "" {
		categories, err := readCategories(cfg.File)
		if err != nil {
			return nil, err
		}
		cfg.Categories = categories
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// readCategories 单独解码分类表，viper 会把键名转成小写
func readCategories(file string) (map[string][]string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var raw struct {
		Categories map[string][]string `json:"categories" yaml:"categories"`
	}
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("解析分类表失败: %s: %w", file, err)
	}
	return raw.Categories, nil
}

func (c *Config) resolvePaths() error {
	c.History.Backend = strings.ToLower(strings.TrimSpace(c.History.Backend))
	if c.History.Path == "" {
		if c.History.Backend == "sqlite" {
			c.History.Path = internal.DefaultHistoryDBPath
		} else {
			c.History.Path = internal.DefaultHistoryPath
		}
	}

	var err error
	if c.History.Path, err = ExpandPath(c.History.Path); err != nil {
		return err
	}
	if c.Logging.File, err = ExpandPath(c.Logging.File); err != nil {
		return err
	}
	return nil
}

// ExpandPath 展开开头的 ~
func ExpandPath(path string) (string, error) {
	if path == "~" || (len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == '\\')) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("获取用户目录失败: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
