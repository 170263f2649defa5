package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DepthSettings maps a research depth level to the debate round limits and
// the analyst thoroughness label used when building prompts.
type DepthSettings struct {
	MaxResearchRounds int    `json:"max_research_rounds"`
	MaxRiskRounds     int    `json:"max_risk_rounds"`
	Thoroughness      string `json:"thoroughness"`
}

// depthTable is the single source for research_depth → round limits.
var depthTable = map[int]DepthSettings{
	1: {MaxResearchRounds: 1, MaxRiskRounds: 1, Thoroughness: "quick"},
	2: {MaxResearchRounds: 1, MaxRiskRounds: 1, Thoroughness: "basic"},
	3: {MaxResearchRounds: 2, MaxRiskRounds: 1, Thoroughness: "standard"},
	4: {MaxResearchRounds: 2, MaxRiskRounds: 2, Thoroughness: "deep"},
	5: {MaxResearchRounds: 3, MaxRiskRounds: 3, Thoroughness: "comprehensive"},
}

// RetryPolicy controls stage invocation retries. One policy is shared by
// every role invocation in a run.
type RetryPolicy struct {
	MaxAttempts  int           `json:"max_attempts"`
	BaseDelay    time.Duration `json:"base_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
	StageTimeout time.Duration `json:"stage_timeout"`
}

type Config struct {
	ProjectDir   string `json:"project_dir"`
	ResultsDir   string `json:"results_dir"`
	DataDir      string `json:"data_dir"`
	DataCacheDir string `json:"data_cache_dir"`

	LLMProvider   string `json:"llm_provider"`
	DeepThinkLLM  string `json:"deep_think_llm"`
	QuickThinkLLM string `json:"quick_think_llm"`
	BackendURL    string `json:"backend_url"`

	MaxDebateRounds      int  `json:"max_debate_rounds"`
	MaxRiskDiscussRounds int  `json:"max_risk_rounds"`
	MaxParallelAnalysts  int  `json:"max_parallel_analysts"`
	OnlineTools          bool `json:"online_tools"`
	Debug                bool `json:"debug"`

	Retry RetryPolicy `json:"retry"`

	CacheEnabled bool `json:"cache_enabled"`

	ServerAddr string `json:"server_addr"`
	HistoryDB  string `json:"history_db"`

	// Eino debug plugin
	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port"`

	// Longport API configuration (HK / A-share quotes)
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	// AI model API keys
	DeepSeekAPIKey string `json:"deepseek_api_key"`
	OpenAIAPIKey   string `json:"openai_api_key"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := &Config{
		ProjectDir:   currentDir,
		ResultsDir:   filepath.Join(currentDir, "results"),
		DataDir:      filepath.Join(currentDir, "data"),
		DataCacheDir: filepath.Join(currentDir, "data", "cache"),

		LLMProvider:   "deepseek",
		DeepThinkLLM:  "deepseek-chat",
		QuickThinkLLM: "deepseek-chat",
		BackendURL:    "",

		MaxDebateRounds:      0, // 0 means "use the depth table"
		MaxRiskDiscussRounds: 0,
		MaxParallelAnalysts:  4,
		OnlineTools:          true,
		Debug:                false,

		Retry: RetryPolicy{
			MaxAttempts:  3,
			BaseDelay:    1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			StageTimeout: 120 * time.Second,
		},

		CacheEnabled: true,

		ServerAddr: ":8035",
		HistoryDB:  filepath.Join(currentDir, "data", "history.db"),

		EinoDebugEnabled: false,
		EinoDebugPort:    52538,
	}

	_ = godotenv.Load()
	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("PROJECT_DIR"); val != "" {
		c.ProjectDir = val
	}
	if val := os.Getenv("RESULTS_DIR"); val != "" {
		c.ResultsDir = val
	}
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("DATA_CACHE_DIR"); val != "" {
		c.DataCacheDir = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("DEEP_THINK_LLM"); val != "" {
		c.DeepThinkLLM = val
	}
	if val := os.Getenv("QUICK_THINK_LLM"); val != "" {
		c.QuickThinkLLM = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}

	if val := os.Getenv("MAX_DEBATE_ROUNDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxDebateRounds = v
		}
	}
	if val := os.Getenv("MAX_RISK_ROUNDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxRiskDiscussRounds = v
		}
	}
	if val := os.Getenv("MAX_PARALLEL_ANALYSTS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxParallelAnalysts = v
		}
	}

	if val := os.Getenv("STAGE_TIMEOUT_SECONDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v > 0 {
			c.Retry.StageTimeout = time.Duration(v) * time.Second
		}
	}
	if val := os.Getenv("STAGE_MAX_ATTEMPTS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil && v > 0 {
			c.Retry.MaxAttempts = v
		}
	}

	if val := os.Getenv("CACHE_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.CacheEnabled = enabled
		}
	}
	if val := os.Getenv("ONLINE_TOOLS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.OnlineTools = enabled
		}
	}
	if val := os.Getenv("ALPHACOUNCIL_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}

	if val := os.Getenv("SERVER_ADDR"); val != "" {
		c.ServerAddr = val
	}
	if val := os.Getenv("HISTORY_DB"); val != "" {
		c.HistoryDB = val
	}

	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.EinoDebugPort = port
		}
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
}

// DepthSettingsFor resolves the round limits for a research depth level.
// Env overrides (MAX_DEBATE_ROUNDS / MAX_RISK_ROUNDS) win over the table.
func (c *Config) DepthSettingsFor(depth int) (DepthSettings, error) {
	ds, ok := depthTable[depth]
	if !ok {
		return DepthSettings{}, fmt.Errorf("research depth %d out of range 1-5", depth)
	}
	if c.MaxDebateRounds > 0 {
		ds.MaxResearchRounds = c.MaxDebateRounds
	}
	if c.MaxRiskDiscussRounds > 0 {
		ds.MaxRiskRounds = c.MaxRiskDiscussRounds
	}
	return ds, nil
}

// ProviderKey returns the API key for the configured LLM provider.
func (c *Config) ProviderKey() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey
	default:
		return c.DeepSeekAPIKey
	}
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.ProjectDir, c.ResultsDir, c.DataDir, c.DataCacheDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
