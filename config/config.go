/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT            = "5002"
	DEFAULT_QUEUE_KEY       = "WITH_HOOK_OFFLINE_MUTATIONS"
	DEFAULT_DEAD_LETTER_KEY = "WITH_HOOK_OFFLINE_MUTATIONS_DEAD"
	DEFAULT_SQLITE_PATH     = "hooksync.db"
	DEFAULT_MAX_ATTEMPTS    = 10
	DEFAULT_BACKOFF_INITIAL = 30
	DEFAULT_KEY_HEADER      = "X-Hooksync-Key"

	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Port            string `json:"port" envconfig:"HOOKSYNC_SERVER_PORT"`
	SecretKey       string `json:"secret_key" envconfig:"HOOKSYNC_SERVER_SECRET_KEY"`
	SecretKeyHeader string `json:"secret_key_header" envconfig:"HOOKSYNC_SERVER_SECRET_KEY_HEADER"`
	Disabled        bool   `json:"disabled" envconfig:"HOOKSYNC_SERVER_DISABLED"`
}

type StorageConfig struct {
	Driver        string `json:"driver" envconfig:"HOOKSYNC_STORAGE_DRIVER"`
	Path          string `json:"path" envconfig:"HOOKSYNC_STORAGE_PATH"`
	QueueKey      string `json:"queue_key" envconfig:"HOOKSYNC_STORAGE_QUEUE_KEY"`
	DeadLetterKey string `json:"dead_letter_key" envconfig:"HOOKSYNC_STORAGE_DEAD_LETTER_KEY"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"HOOKSYNC_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"HOOKSYNC_REDIS_SKIP_TLS_VERIFY"`
}

type BackendConfig struct {
	Url            string `json:"url" envconfig:"HOOKSYNC_BACKEND_URL"`
	ApiKey         string `json:"api_key" envconfig:"HOOKSYNC_BACKEND_API_KEY"`
	AccessToken    string `json:"access_token" envconfig:"HOOKSYNC_BACKEND_ACCESS_TOKEN"`
	TimeoutSeconds int    `json:"timeout_seconds" envconfig:"HOOKSYNC_BACKEND_TIMEOUT_SECONDS"`
}

// SyncConfig controls when and how often the queue is drained. Durations are in seconds.
type SyncConfig struct {
	StartupDelaySeconds   int  `json:"startup_delay_seconds" envconfig:"HOOKSYNC_SYNC_STARTUP_DELAY_SECONDS"`
	IntervalSeconds       int  `json:"interval_seconds" envconfig:"HOOKSYNC_SYNC_INTERVAL_SECONDS"`
	MaxAttempts           *int `json:"max_attempts" envconfig:"HOOKSYNC_SYNC_MAX_ATTEMPTS"`
	BackoffInitialSeconds *int `json:"backoff_initial_seconds" envconfig:"HOOKSYNC_SYNC_BACKOFF_INITIAL_SECONDS"`
	BackoffMaxSeconds     int  `json:"backoff_max_seconds" envconfig:"HOOKSYNC_SYNC_BACKOFF_MAX_SECONDS"`
	DrainLockTTLSeconds   int  `json:"drain_lock_ttl_seconds" envconfig:"HOOKSYNC_SYNC_DRAIN_LOCK_TTL_SECONDS"`
}

type ConnectivityConfig struct {
	ProbeUrl             string `json:"probe_url" envconfig:"HOOKSYNC_CONNECTIVITY_PROBE_URL"`
	ProbeIntervalSeconds int    `json:"probe_interval_seconds" envconfig:"HOOKSYNC_CONNECTIVITY_PROBE_INTERVAL_SECONDS"`
	ProbeTimeoutSeconds  int    `json:"probe_timeout_seconds" envconfig:"HOOKSYNC_CONNECTIVITY_PROBE_TIMEOUT_SECONDS"`
}

type RateLimitConfig struct {
	RequestsPerSecond *float64 `json:"requests_per_second" envconfig:"HOOKSYNC_RATE_LIMIT_RPS"`
	Burst             *int     `json:"burst" envconfig:"HOOKSYNC_RATE_LIMIT_BURST"`
	ExpirySeconds     int      `json:"expiry_seconds" envconfig:"HOOKSYNC_RATE_LIMIT_EXPIRY_SECONDS"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName     string             `json:"project_name" envconfig:"HOOKSYNC_PROJECT_NAME"`
	LogFile         string             `json:"log_file" envconfig:"HOOKSYNC_LOG_FILE"`
	EnableTelemetry bool               `json:"enable_telemetry" envconfig:"HOOKSYNC_ENABLE_TELEMETRY"`
	Server          ServerConfig       `json:"server"`
	Storage         StorageConfig      `json:"storage"`
	Redis           RedisConfig        `json:"redis"`
	Backend         BackendConfig      `json:"backend"`
	Sync            SyncConfig         `json:"sync"`
	Connectivity    ConnectivityConfig `json:"connectivity"`
	Notification    Notification       `json:"notification"`
	RateLimit       RateLimitConfig    `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("hooksync", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called hooksync.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Hooksync"
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Backend.Url = strings.TrimRight(strings.TrimSpace(cnf.Backend.Url), "/")
	cnf.Storage.Driver = strings.ToLower(strings.TrimSpace(cnf.Storage.Driver))

	if cnf.Backend.Url == "" {
		log.Println("Error: Backend URL is empty. It's a required field.")
		return errors.New("backend URL is required")
	}

	switch cnf.Storage.Driver {
	case "":
		cnf.Storage.Driver = StorageSQLite
	case StorageSQLite, StorageMemory:
	case StorageRedis:
		if cnf.Redis.Dns == "" {
			log.Println("Error: Redis DNS is empty. It's required by the redis storage driver.")
			return errors.New("redis DNS is required")
		}
	default:
		return errors.New("unsupported storage driver: " + cnf.Storage.Driver)
	}

	if cnf.Storage.Path == "" {
		cnf.Storage.Path = DEFAULT_SQLITE_PATH
	}
	if cnf.Storage.QueueKey == "" {
		cnf.Storage.QueueKey = DEFAULT_QUEUE_KEY
	}
	if cnf.Storage.DeadLetterKey == "" {
		cnf.Storage.DeadLetterKey = DEFAULT_DEAD_LETTER_KEY
	}

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Backend.TimeoutSeconds <= 0 {
		cnf.Backend.TimeoutSeconds = 30
	}

	cnf.Sync.addDefaults()

	if cnf.Connectivity.ProbeUrl == "" {
		cnf.Connectivity.ProbeUrl = cnf.Backend.Url
	}
	if cnf.Connectivity.ProbeIntervalSeconds <= 0 {
		cnf.Connectivity.ProbeIntervalSeconds = 15
	}
	if cnf.Connectivity.ProbeTimeoutSeconds <= 0 {
		cnf.Connectivity.ProbeTimeoutSeconds = 5
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
	}

	return nil
}

// addDefaults fills unset sync settings. An explicit max_attempts of zero keeps failed
// mutations queued forever; an explicit backoff_initial_seconds of zero retries them on every pass.
func (s *SyncConfig) addDefaults() {
	if s.StartupDelaySeconds <= 0 {
		s.StartupDelaySeconds = 2
	}
	if s.IntervalSeconds <= 0 {
		s.IntervalSeconds = 300
	}
	if s.MaxAttempts == nil || *s.MaxAttempts < 0 {
		attempts := DEFAULT_MAX_ATTEMPTS
		if s.MaxAttempts != nil {
			attempts = 0
		}
		s.MaxAttempts = &attempts
	}
	if s.BackoffInitialSeconds == nil || *s.BackoffInitialSeconds < 0 {
		initial := DEFAULT_BACKOFF_INITIAL
		if s.BackoffInitialSeconds != nil {
			initial = 0
		}
		s.BackoffInitialSeconds = &initial
	}
	if s.BackoffMaxSeconds <= 0 {
		s.BackoffMaxSeconds = 3600
	}
	if s.DrainLockTTLSeconds <= 0 {
		s.DrainLockTTLSeconds = 120
	}
}

func (s SyncConfig) StartupDelay() time.Duration {
	return time.Duration(s.StartupDelaySeconds) * time.Second
}

func (s SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Attempts returns the failure count after which a mutation is dead-lettered. Zero disables dead-lettering.
func (s SyncConfig) Attempts() int {
	if s.MaxAttempts == nil {
		return DEFAULT_MAX_ATTEMPTS
	}
	return *s.MaxAttempts
}

func (s SyncConfig) BackoffInitial() time.Duration {
	if s.BackoffInitialSeconds == nil {
		return DEFAULT_BACKOFF_INITIAL * time.Second
	}
	return time.Duration(*s.BackoffInitialSeconds) * time.Second
}

func (s SyncConfig) BackoffMax() time.Duration {
	return time.Duration(s.BackoffMaxSeconds) * time.Second
}

func (s SyncConfig) DrainLockTTL() time.Duration {
	return time.Duration(s.DrainLockTTLSeconds) * time.Second
}

func (c ConnectivityConfig) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSeconds) * time.Second
}

func (c ConnectivityConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// KeyHeader is the request header carrying the diagnostics secret key.
func (s ServerConfig) KeyHeader() string {
	if s.SecretKeyHeader == "" {
		return DEFAULT_KEY_HEADER
	}
	return s.SecretKeyHeader
}

func (r RateLimitConfig) Enabled() bool {
	return r.RequestsPerSecond != nil && r.Burst != nil
}

// Expiry is how long an idle client's bucket is kept.
func (r RateLimitConfig) Expiry() time.Duration {
	if r.ExpirySeconds <= 0 {
		return time.Hour
	}
	return time.Duration(r.ExpirySeconds) * time.Second
}

func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
