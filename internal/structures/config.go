package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LedgerConfig struct {
	RPCURL            string        `yaml:"rpcUrl" validate:"required|fullUrl"`
	WSURL             string        `yaml:"wsUrl" validate:"required"`
	RegistryAddress   string        `yaml:"registryAddress" validate:"required"`
	StakingAddress    string        `yaml:"stakingAddress" validate:"required"`
	ValidatorCount    int           `yaml:"validatorCount"`
	CallTimeout       time.Duration `yaml:"callTimeout" validate:"required|min:1"`
	SubscribeMaxDelay time.Duration `yaml:"subscribeMaxDelay"`
}

type ScorerConfig struct {
	URL          string        `yaml:"url" validate:"required|fullUrl"`
	SentimentURL string        `yaml:"sentimentUrl"`
	SentimentKey string        `yaml:"sentimentKey"`
	Timeout      time.Duration `yaml:"timeout" validate:"required|min:1"`
}

type ContentConfig struct {
	GatewayURL   string        `yaml:"gatewayUrl" validate:"required|fullUrl"`
	PinURL       string        `yaml:"pinUrl"`
	PinKey       string        `yaml:"pinKey"`
	PinSecret    string        `yaml:"pinSecret"`
	Timeout      time.Duration `yaml:"timeout" validate:"required|min:1"`
	BlobCacheMB  int           `yaml:"blobCacheMB"`
	BlobCacheTTL time.Duration `yaml:"blobCacheTTL"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" validate:"required|in:postgres,sqlite"`
	DSN    string `yaml:"dsn" validate:"required"`
}

type SyncConfig struct {
	ResyncInterval time.Duration `yaml:"resyncInterval"`
	RecalcInterval time.Duration `yaml:"recalcInterval"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName   string
	Debug     bool
	Path      string
	WebServer Server        `yaml:"webServer"`
	Ledger    LedgerConfig  `yaml:"ledger"`
	Scorer    ScorerConfig  `yaml:"scorer"`
	Content   ContentConfig `yaml:"content"`
	Store     StoreConfig   `yaml:"store"`
	Sync      SyncConfig    `yaml:"sync"`
	Logger    LoggerConfig  `yaml:"logger"`
	Cache     CacheConfig   `yaml:"cache"`
	Metrics   MetricsConfig `yaml:"metrics"`
}
