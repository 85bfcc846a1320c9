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

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT                 = "3000"
	DEFAULT_SCHEME               = "shadowpay_v1"
	DEFAULT_PROOF_TYPE           = "groth16"
	DEFAULT_EXAMPLE_INVOICE      = "inv_demo_1"
	DEFAULT_PROTECTED_PREFIX     = "/v1/protected"
	DEFAULT_MIN_NULLIFIER_LENGTH = 16
	DEFAULT_EPOCH_WINDOW         = 2
	DEFAULT_LOCKED_ESCROW        = "LOCKED_ESCROW_FOR_DEMO"
	DEFAULT_PROOF_EVENTS_QUEUE   = "shadowpay_proof_events"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"SHADOWPAY_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"SHADOWPAY_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"SHADOWPAY_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"SHADOWPAY_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"SHADOWPAY_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"SHADOWPAY_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"SHADOWPAY_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"SHADOWPAY_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"SHADOWPAY_REDIS_SKIP_TLS_VERIFY"`
}

// GateConfig holds the knobs of the proof gate itself. None of them change
// the outcome-to-decision table, only descriptive metadata and thresholds.
type GateConfig struct {
	ProtectedPrefix    string `json:"protected_prefix" envconfig:"SHADOWPAY_GATE_PROTECTED_PREFIX"`
	DefaultScheme      string `json:"default_scheme" envconfig:"SHADOWPAY_GATE_DEFAULT_SCHEME"`
	ProofType          string `json:"proof_type" envconfig:"SHADOWPAY_GATE_PROOF_TYPE"`
	ExampleInvoiceID   string `json:"example_invoice_id" envconfig:"SHADOWPAY_GATE_EXAMPLE_INVOICE_ID"`
	MinNullifierLength int    `json:"min_nullifier_length" envconfig:"SHADOWPAY_GATE_MIN_NULLIFIER_LENGTH"`
}

type VerifierConfig struct {
	Url       string `json:"url" envconfig:"SHADOWPAY_VERIFIER_URL"`
	TimeoutMs int    `json:"timeout_ms" envconfig:"SHADOWPAY_VERIFIER_TIMEOUT_MS"`
}

type LedgerConfig struct {
	Url                  string   `json:"url" envconfig:"SHADOWPAY_LEDGER_URL"`
	TimeoutMs            int      `json:"timeout_ms" envconfig:"SHADOWPAY_LEDGER_TIMEOUT_MS"`
	LockedEscrowAccounts []string `json:"locked_escrow_accounts" envconfig:"SHADOWPAY_LEDGER_LOCKED_ESCROW_ACCOUNTS"`
}

type EpochConfig struct {
	RefreshIntervalSec int `json:"refresh_interval_sec" envconfig:"SHADOWPAY_EPOCH_REFRESH_INTERVAL_SEC"`
	// Window is how many of the most recent epochs have accepted roots.
	Window int `json:"window" envconfig:"SHADOWPAY_EPOCH_WINDOW"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"SHADOWPAY_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"SHADOWPAY_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"SHADOWPAY_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type WebhookConfig struct {
	Url     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook  `json:"slack"`
	Webhook WebhookConfig `json:"webhook"`
}

type QueueConfig struct {
	ProofEventsQueue string `json:"proof_events_queue" envconfig:"SHADOWPAY_QUEUE_PROOF_EVENTS"`
	NumberOfWorkers  int    `json:"number_of_workers" envconfig:"SHADOWPAY_QUEUE_NUMBER_OF_WORKERS"`
	MaxRetryAttempts int    `json:"max_retry_attempts" envconfig:"SHADOWPAY_QUEUE_MAX_RETRY_ATTEMPTS"`
}

type TelemetryConfig struct {
	PosthogKey  string `json:"posthog_key" envconfig:"SHADOWPAY_TELEMETRY_POSTHOG_KEY"`
	ServiceName string `json:"service_name" envconfig:"SHADOWPAY_TELEMETRY_SERVICE_NAME"`
}

type Configuration struct {
	ProjectName     string           `json:"project_name" envconfig:"SHADOWPAY_PROJECT_NAME"`
	EnableTelemetry bool             `json:"enable_telemetry" envconfig:"SHADOWPAY_ENABLE_TELEMETRY"`
	Server          ServerConfig     `json:"server"`
	DataSource      DataSourceConfig `json:"data_source"`
	Redis           RedisConfig      `json:"redis"`
	Gate            GateConfig       `json:"gate"`
	Verifier        VerifierConfig   `json:"verifier"`
	Ledger          LedgerConfig     `json:"ledger"`
	Epoch           EpochConfig      `json:"epoch"`
	Notification    Notification     `json:"notification"`
	RateLimit       RateLimitConfig  `json:"rate_limit"`
	Queue           QueueConfig      `json:"queue"`
	Telemetry       TelemetryConfig  `json:"telemetry"`
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
	err = envconfig.Process("shadowpay", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called shadowpay.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "ShadowPay Gate"
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Verifier.Url = strings.TrimSpace(cnf.Verifier.Url)
	cnf.Ledger.Url = strings.TrimSpace(cnf.Ledger.Url)

	if cnf.Server.Secure && cnf.Server.SecretKey == "" {
		log.Println("Error: Secure mode is enabled but no secret key is set.")
		return errors.New("secret key is required in secure mode")
	}

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Warning: Data source DNS is empty. Invoices will be served from the in-memory demo registry.")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Warning: Redis DNS is empty. Nullifiers will be held in process memory and proof events are disabled.")
	}

	cnf.Gate.ProtectedPrefix = strings.TrimSpace(cnf.Gate.ProtectedPrefix)
	if cnf.Gate.ProtectedPrefix == "" {
		cnf.Gate.ProtectedPrefix = DEFAULT_PROTECTED_PREFIX
	}
	if !strings.HasPrefix(cnf.Gate.ProtectedPrefix, "/") {
		return errors.New("gate protected prefix must start with /")
	}
	if cnf.Gate.DefaultScheme == "" {
		cnf.Gate.DefaultScheme = DEFAULT_SCHEME
	}
	if cnf.Gate.ProofType == "" {
		cnf.Gate.ProofType = DEFAULT_PROOF_TYPE
	}
	if cnf.Gate.ExampleInvoiceID == "" {
		cnf.Gate.ExampleInvoiceID = DEFAULT_EXAMPLE_INVOICE
	}
	if cnf.Gate.MinNullifierLength < 0 {
		return errors.New("gate min nullifier length cannot be negative")
	}
	if cnf.Gate.MinNullifierLength == 0 {
		cnf.Gate.MinNullifierLength = DEFAULT_MIN_NULLIFIER_LENGTH
	}

	if cnf.Verifier.TimeoutMs <= 0 {
		cnf.Verifier.TimeoutMs = 2000
	}
	if cnf.Ledger.TimeoutMs <= 0 {
		cnf.Ledger.TimeoutMs = 1000
	}
	if cnf.Ledger.Url == "" && len(cnf.Ledger.LockedEscrowAccounts) == 0 {
		cnf.Ledger.LockedEscrowAccounts = []string{DEFAULT_LOCKED_ESCROW}
	}

	if cnf.Epoch.RefreshIntervalSec <= 0 {
		cnf.Epoch.RefreshIntervalSec = 60
	}
	if cnf.Epoch.Window <= 0 {
		cnf.Epoch.Window = DEFAULT_EPOCH_WINDOW
	}

	if cnf.Queue.ProofEventsQueue == "" {
		cnf.Queue.ProofEventsQueue = DEFAULT_PROOF_EVENTS_QUEUE
	}
	if cnf.Queue.NumberOfWorkers <= 0 {
		cnf.Queue.NumberOfWorkers = 5
	}
	if cnf.Queue.MaxRetryAttempts <= 0 {
		cnf.Queue.MaxRetryAttempts = 5
	}

	if cnf.Telemetry.ServiceName == "" {
		cnf.Telemetry.ServiceName = "SHADOWPAY"
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
// Defaults are applied so tests only need to set the fields they care about.
func MockConfig(mockConfig *Configuration) {
	_ = mockConfig.validateAndAddDefaults()
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
