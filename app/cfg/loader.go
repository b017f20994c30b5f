package cfg

import (
	"cmp"
	"fmt"
	"runtime"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

const (
	ModeRun       = "run"
	ModeReprocess = "reprocess"
	ModeServe     = "serve"

	LoadModeReplace = "replace"
	LoadModeAppend  = "append"
)

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Run configuration
	Mode        string `long:"mode" env:"MODE" default:"run" choice:"run" choice:"reprocess" choice:"serve" description:"Entry point: run a batch, reprocess the latest stored batch, or serve"`
	ConfigFile  string `long:"config-file" env:"CONFIG_FILE" default:"./pipeline.yml" description:"Pipeline configuration file (feeds, date formats, prefixes, source markers)"`
	WorkerCount int    `long:"worker-count" env:"WORKER_COUNT" default:"0" description:"Number of concurrent feed workers (0 = sized to available CPUs)"`
	LoadMode    string `long:"load-mode" env:"LOAD_MODE" default:"replace" choice:"replace" choice:"append" description:"How a batch is loaded into storage"`
	RunTimeout  int    `long:"run-timeout" env:"RUN_TIMEOUT" default:"0" description:"Overall deadline for one batch in seconds (0 = none)"`

	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./rss-harvest.db" description:"SQLite database file"`

	// HTTP fetching
	UserAgent      string `long:"user-agent" env:"USER_AGENT" default:"RSS Harvest/1.0" description:"User agent string for HTTP requests"`
	RequestTimeout int    `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"30" description:"Default per-request timeout in seconds"`
	HostInterval   int    `long:"host-interval" env:"HOST_INTERVAL" default:"0" description:"Minimum interval between requests to one host in milliseconds (0 = unlimited)"`
	RespectRobots  bool   `long:"respect-robots" env:"RESPECT_ROBOTS" description:"Skip page scrapes disallowed by robots.txt"`

	// Serve mode
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://news.example.com)"`
	Schedule     string `long:"schedule" env:"SCHEDULE" default:"0 * * * *" description:"Cron spec for scheduled batches in serve mode"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Mode:           raw.Mode,
		ConfigFile:     raw.ConfigFile,
		WorkerCount:    resolveWorkerCount(raw.WorkerCount),
		LoadMode:       raw.LoadMode,
		RunTimeout:     time.Duration(raw.RunTimeout) * time.Second,
		DBPath:         raw.DBPath,
		UserAgent:      raw.UserAgent,
		RequestTimeout: time.Duration(raw.RequestTimeout) * time.Second,
		HostInterval:   time.Duration(raw.HostInterval) * time.Millisecond,
		RespectRobots:  raw.RespectRobots,
		Port:           raw.Port,
		BaseUrl:        raw.BaseUrl,
		Schedule:       raw.Schedule,
		APIAccessKey:   raw.APIAccessKey,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be positive, got %d", raw.WorkerCount)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request timeout must be positive, got %d", raw.RequestTimeout)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// resolveWorkerCount sizes the pool to available concurrency, capped at 32.
func resolveWorkerCount(n int) int {
	if n != 0 {
		return n
	}
	return min(32, runtime.NumCPU()+4)
}
