package cfg

import "time"

type Cfg struct {
	// Run configuration
	Mode        string
	ConfigFile  string
	WorkerCount int
	LoadMode    string
	RunTimeout  time.Duration

	// Storage configuration
	DBPath string

	// HTTP fetching
	UserAgent      string
	RequestTimeout time.Duration
	HostInterval   time.Duration
	RespectRobots  bool

	// Serve mode
	Port         string
	BaseUrl      string
	Schedule     string
	APIAccessKey string

	// Application metadata
	Debug   bool
	Version string
}
