package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/John-Robertt/CineMatch/internal/assemble"
	"github.com/John-Robertt/CineMatch/internal/chart"
	"github.com/John-Robertt/CineMatch/internal/extract"
	"github.com/John-Robertt/CineMatch/internal/infra/httpx"
	"github.com/John-Robertt/CineMatch/internal/resolve"
	"github.com/John-Robertt/CineMatch/internal/search"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是数据目录（或 cwd）下的默认配置文件名。
	FileName = "cinematch.json"
	// EnvPrefix 是环境变量覆盖的前缀：resolve.min_confidence → CINEMATCH_RESOLVE_MIN_CONFIDENCE。
	EnvPrefix = "CINEMATCH"

	DefaultDataDir     = "data"
	DefaultConcurrency = 4
	DefaultRatePerSec  = 0.5
	MaxConcurrency     = 32
)

// CLIArgs 是 CLI 暴露的配置项，并保留“是否显式指定”的信息，
// 保证 --concurrency 等参数能覆盖配置文件与环境变量。
type CLIArgs struct {
	ConfigFile string
	DataDir    string

	Concurrency    int
	ConcurrencySet bool

	RatePerSec float64
	RateSet    bool

	ProxyURL string
	ProxySet bool

	LogLevel string
}

// FileConfig 对应 cinematch.json 的结构（viper 解码，环境变量可覆盖任意标量字段）。
type FileConfig struct {
	DataDir     string        `mapstructure:"data_dir"`
	Concurrency int           `mapstructure:"concurrency"`
	RatePerSec  float64       `mapstructure:"rate_per_sec"`
	Proxy       ProxyConfig   `mapstructure:"proxy"`
	HTTP        HTTPConfig    `mapstructure:"http"`
	Cache       CacheConfig   `mapstructure:"cache"`
	Resolve     ResolveConfig `mapstructure:"resolve"`
	Search      SearchConfig  `mapstructure:"search"`
	IMDb        IMDbConfig    `mapstructure:"imdb"`
	Extract     ExtractConfig `mapstructure:"extract"`
	Log         LogConfig     `mapstructure:"log"`
}

type ProxyConfig struct {
	URL string `mapstructure:"url"`
}

type HTTPConfig struct {
	TimeoutSecs    int    `mapstructure:"timeout_secs"`
	RetryMax       int    `mapstructure:"retry_max"`
	AcceptLanguage string `mapstructure:"accept_language"`
}

type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type ResolveConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence"`
	YearBonus     float64 `mapstructure:"year_bonus"`
}

type SearchConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	MaxResults    int    `mapstructure:"max_results"`
	UserReviews   int    `mapstructure:"user_reviews"`
	CriticReviews int    `mapstructure:"critic_reviews"`
}

type IMDbConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	ChartURL string `mapstructure:"chart_url"`
}

type ExtractConfig struct {
	MaxCast          int                     `mapstructure:"max_cast"`
	BoxOffice        []extract.BoxOfficeRule `mapstructure:"box_office"`
	TechSpecKeywords []string                `mapstructure:"tech_spec_keywords"`
}

// LogConfig 配置 zap。Format 为 "console" 时使用开发格式，否则 JSON。
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigFile 是实际读取的配置文件；没有读取任何文件时为空。
	ConfigFile string

	DataDir     string
	Concurrency int
	RatePerSec  float64
	ProxyURL    string

	HTTP  httpx.Options
	Cache bool

	Resolve resolve.Options
	Search  SearchConfig
	IMDb    IMDbConfig
	Extract extract.Options
	Log     LogConfig
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，叠加环境变量，再与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：读取该文件（必选，不存在报 config_not_found）
// 2) CLI 提供 --data：尝试读取 <data>/cinematch.json（可选）
// 3) 否则：尝试读取 <cwd>/cinematch.json（可选）
//
// 覆盖优先级（固定）：CLI > 环境变量 CINEMATCH_* > 配置文件 > 内置默认。
// 相对路径（data_dir）以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var cfgPath string
	required := false
	switch {
	case strings.TrimSpace(cli.ConfigFile) != "":
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigFile)
		required = true
	case strings.TrimSpace(cli.DataDir) != "":
		cfgPath = filepath.Join(absCleanFrom(cwdAbs, cli.DataDir), FileName)
	default:
		cfgPath = filepath.Join(cwdAbs, FileName)
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if required && !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if !exists {
		cfgPath = ""
	}
	return merge(cwdAbs, cli, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf(format, args...)}
	}

	// data_dir：CLI > config > 默认
	dataDir := fc.DataDir
	if strings.TrimSpace(cli.DataDir) != "" {
		dataDir = cli.DataDir
	}
	if strings.TrimSpace(dataDir) == "" {
		dataDir = DefaultDataDir
	}

	concurrency := fc.Concurrency
	if cli.ConcurrencySet {
		concurrency = cli.Concurrency
	}
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 范围 [1, 32]；超出截断。
	concurrency = max(1, min(concurrency, MaxConcurrency))

	rate := fc.RatePerSec
	if cli.RateSet {
		rate = cli.RatePerSec
	}
	if rate < 0 {
		return EffectiveConfig{}, invalid("rate_per_sec 不能为负：%v", rate)
	}

	proxyURL := strings.TrimSpace(fc.Proxy.URL)
	if cli.ProxySet {
		proxyURL = strings.TrimSpace(cli.ProxyURL)
	}
	if proxyURL != "" {
		if err := validateHTTPURL(proxyURL); err != nil {
			return EffectiveConfig{}, invalid("proxy.url 无效：%w", err)
		}
	}

	if fc.HTTP.TimeoutSecs < 0 {
		return EffectiveConfig{}, invalid("http.timeout_secs 不能为负：%d", fc.HTTP.TimeoutSecs)
	}

	mc := fc.Resolve.MinConfidence
	if mc < 0 || mc > 1 {
		return EffectiveConfig{}, invalid("resolve.min_confidence 必须在 [0,1] 内：%v", mc)
	}
	if fc.Resolve.YearBonus < 0 {
		return EffectiveConfig{}, invalid("resolve.year_bonus 不能为负：%v", fc.Resolve.YearBonus)
	}

	sc := fc.Search
	if sc.MaxResults < 1 {
		return EffectiveConfig{}, invalid("search.max_results 必须 >= 1：%d", sc.MaxResults)
	}
	if sc.UserReviews < 0 || sc.CriticReviews < 0 {
		return EffectiveConfig{}, invalid("search.user_reviews / search.critic_reviews 不能为负")
	}

	for name, u := range map[string]string{
		"search.base_url": sc.BaseURL,
		"imdb.base_url":   fc.IMDb.BaseURL,
		"imdb.chart_url":  fc.IMDb.ChartURL,
	} {
		if err := validateHTTPURL(u); err != nil {
			return EffectiveConfig{}, invalid("%s 无效：%w", name, err)
		}
	}

	for i, r := range fc.Extract.BoxOffice {
		if strings.TrimSpace(r.Key) == "" || len(r.Match) == 0 {
			return EffectiveConfig{}, invalid("extract.box_office[%d] 需要 key 与非空 match", i)
		}
	}

	logCfg := fc.Log
	if cli.LogLevel != "" {
		logCfg.Level = cli.LogLevel
	}
	if err := logCfg.validate(); err != nil {
		return EffectiveConfig{}, invalid("%w", err)
	}

	return EffectiveConfig{
		ConfigFile:  cfgPath,
		DataDir:     absCleanFrom(cwdAbs, dataDir),
		Concurrency: concurrency,
		RatePerSec:  rate,
		ProxyURL:    proxyURL,
		HTTP: httpx.Options{
			ProxyURL:       proxyURL,
			Timeout:        time.Duration(fc.HTTP.TimeoutSecs) * time.Second,
			RetryMax:       fc.HTTP.RetryMax,
			AcceptLanguage: fc.HTTP.AcceptLanguage,
		},
		Cache: fc.Cache.Enabled,
		Resolve: resolve.Options{
			MinConfidence: mc,
			YearBonus:     fc.Resolve.YearBonus,
		},
		Search: sc,
		IMDb:   fc.IMDb,
		Extract: extract.Options{
			MaxCast:          fc.Extract.MaxCast,
			BoxOffice:        append([]extract.BoxOfficeRule(nil), fc.Extract.BoxOffice...),
			TechSpecKeywords: append([]string(nil), fc.Extract.TechSpecKeywords...),
		},
		Log: logCfg,
	}, nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("缺少 host：%q", raw)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
		return nil
	default:
		return fmt.Errorf("不支持的 scheme：%q", raw)
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 默认值同时让 AutomaticEnv 认识这些 key。
	v.SetDefault("data_dir", "")
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("rate_per_sec", DefaultRatePerSec)
	v.SetDefault("proxy.url", "")
	v.SetDefault("http.timeout_secs", int(httpx.DefaultTimeout/time.Second))
	v.SetDefault("http.retry_max", httpx.DefaultRetryMax)
	v.SetDefault("http.accept_language", httpx.DefaultAcceptLanguage)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("resolve.min_confidence", resolve.DefaultMinConfidence)
	v.SetDefault("resolve.year_bonus", resolve.DefaultYearBonus)
	v.SetDefault("search.base_url", search.DefaultDDGBaseURL)
	v.SetDefault("search.max_results", assemble.DefaultMaxResults)
	v.SetDefault("search.user_reviews", assemble.DefaultUserReviews)
	v.SetDefault("search.critic_reviews", assemble.DefaultCriticReviews)
	v.SetDefault("imdb.base_url", assemble.DefaultBaseURL)
	v.SetDefault("imdb.chart_url", chart.DefaultURL)
	v.SetDefault("extract.max_cast", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	return v
}

// readFileConfig 读取并解析 JSON 配置文件（叠加环境变量与默认值）。
// 返回值 exists 表示该文件是否存在（不存在不算错误，此时只有默认值与环境变量）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	v := newViper()

	fi, statErr := os.Stat(path)
	switch {
	case statErr == nil && fi.IsDir():
		return FileConfig{}, true, fmt.Errorf("期望文件，实际是目录")
	case statErr == nil:
		exists = true
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return FileConfig{}, true, err
		}
	case !os.IsNotExist(statErr):
		return FileConfig{}, false, statErr
	}

	if err := v.Unmarshal(&fc); err != nil {
		return FileConfig{}, exists, err
	}
	return fc, exists, nil
}
