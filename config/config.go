package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	KeyTempoBaseURL       = "tempo.base_url"
	KeyTempoAPIToken      = "tempo.api_token"
	KeyTempoPageLimit     = "tempo.page_limit"
	KeyJiraBaseURL        = "jira.base_url"
	KeyJiraUser           = "jira.user"
	KeyJiraAPIToken       = "jira.api_token"
	KeyJiraLinkField      = "jira.link_field"
	KeyJiraParentField    = "jira.parent_field"
	KeyJiraEpicLinkField  = "jira.epic_link_field"
	KeyOdooURL            = "odoo.url"
	KeyOdooDB             = "odoo.db"
	KeyOdooUsername       = "odoo.username"
	KeyOdooPassword       = "odoo.password"
	KeyOdooEmployeeField  = "odoo.employee_field"
	KeyOdooFallbackEmpID  = "odoo.fallback_employee_id"
	KeyOdooWorklogIDField = "odoo.worklog_id_field"
	KeySyncLookbackHours  = "sync.lookback_hours"
	KeySyncRequestTimeout = "sync.request_timeout"
	KeySyncDBPath         = "sync.db_path"
	KeyEmailEnabled       = "email.enabled"
	KeyEmailSMTPServer    = "email.smtp_server"
	KeyEmailSMTPPort      = "email.smtp_port"
	KeyEmailFrom          = "email.from"
	KeyEmailPassword      = "email.password"
	KeyEmailTo            = "email.to"
	KeyEmailSubjectPrefix = "email.subject_prefix"
	KeyLoggingLevel       = "logging.level"
	KeyLoggingFormat      = "logging.format"
	KeyLoggingDir         = "logging.dir"
	KeyLoggingFile        = "logging.file"
	KeyLoggingMaxSizeMB   = "logging.max_size_mb"
	KeyLoggingMaxBackups  = "logging.max_backups"
	KeyLoggingMaxAgeDays  = "logging.max_age_days"
)

var allKeys = []string{
	KeyTempoBaseURL, KeyTempoAPIToken, KeyTempoPageLimit,
	KeyJiraBaseURL, KeyJiraUser, KeyJiraAPIToken, KeyJiraLinkField, KeyJiraParentField, KeyJiraEpicLinkField,
	KeyOdooURL, KeyOdooDB, KeyOdooUsername, KeyOdooPassword, KeyOdooEmployeeField, KeyOdooFallbackEmpID, KeyOdooWorklogIDField,
	KeySyncLookbackHours, KeySyncRequestTimeout, KeySyncDBPath,
	KeyEmailEnabled, KeyEmailSMTPServer, KeyEmailSMTPPort, KeyEmailFrom, KeyEmailPassword, KeyEmailTo, KeyEmailSubjectPrefix,
	KeyLoggingLevel, KeyLoggingFormat, KeyLoggingDir, KeyLoggingFile, KeyLoggingMaxSizeMB, KeyLoggingMaxBackups, KeyLoggingMaxAgeDays,
}

// envBindings keeps the variable names of existing .env deployments working.
var envBindings = map[string]string{
	KeyTempoAPIToken:      "TEMPO_API_TOKEN",
	KeyTempoBaseURL:       "TEMPO_BASE_URL",
	KeyJiraBaseURL:        "JIRA_BASE_URL",
	KeyJiraUser:           "JIRA_USER",
	KeyJiraAPIToken:       "JIRA_API_TOKEN",
	KeyOdooURL:            "ODOO_URL",
	KeyOdooDB:             "ODOO_DB",
	KeyOdooUsername:       "ODOO_USERNAME",
	KeyOdooPassword:       "ODOO_PASSWORD",
	KeyOdooEmployeeField:  "ODOO_EMPLOYEE_FIELD",
	KeyOdooFallbackEmpID:  "ODOO_FALLBACK_EMPLOYEE_ID",
	KeySyncLookbackHours:  "LOOKBACK_HOURS",
	KeyEmailEnabled:       "EMAIL_ENABLED",
	KeyEmailSMTPServer:    "EMAIL_SMTP_SERVER",
	KeyEmailSMTPPort:      "EMAIL_SMTP_PORT",
	KeyEmailFrom:          "EMAIL_FROM",
	KeyEmailPassword:      "EMAIL_PASSWORD",
	KeyEmailTo:            "EMAIL_TO",
	KeyEmailSubjectPrefix: "EMAIL_SUBJECT_PREFIX",
	KeyLoggingLevel:       "LOG_LEVEL",
}

type Config struct {
	Tempo   TempoConfig   `mapstructure:"tempo" validate:"required"`
	Jira    JiraConfig    `mapstructure:"jira" validate:"required"`
	Odoo    OdooConfig    `mapstructure:"odoo" validate:"required"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Email   EmailConfig   `mapstructure:"email"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type TempoConfig struct {
	BaseURL   string `mapstructure:"base_url" validate:"required,url"`
	APIToken  string `mapstructure:"api_token" validate:"required"`
	PageLimit int    `mapstructure:"page_limit" validate:"gte=1,lte=5000"`
}

type JiraConfig struct {
	BaseURL       string `mapstructure:"base_url" validate:"required,url"`
	User          string `mapstructure:"user" validate:"required"`
	APIToken      string `mapstructure:"api_token" validate:"required"`
	LinkField     string `mapstructure:"link_field" validate:"required"`
	ParentField   string `mapstructure:"parent_field" validate:"required"`
	EpicLinkField string `mapstructure:"epic_link_field"`
}

type OdooConfig struct {
	URL                string `mapstructure:"url" validate:"required,url"`
	DB                 string `mapstructure:"db" validate:"required"`
	Username           string `mapstructure:"username" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	EmployeeField      string `mapstructure:"employee_field"`
	FallbackEmployeeID int64  `mapstructure:"fallback_employee_id" validate:"gte=0"`
	WorklogIDField     string `mapstructure:"worklog_id_field" validate:"required"`
}

type SyncConfig struct {
	LookbackHours  int           `mapstructure:"lookback_hours" validate:"gte=1"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	DBPath         string        `mapstructure:"db_path"`
}

// EmailConfig is never validated beyond types: a partial setup simply
// disables notifications.
type EmailConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	SMTPServer    string `mapstructure:"smtp_server"`
	SMTPPort      int    `mapstructure:"smtp_port"`
	From          string `mapstructure:"from"`
	Password      string `mapstructure:"password"`
	To            string `mapstructure:"to"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=text json"`
	Dir        string `mapstructure:"dir"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SetDefaults sets default values if not provided
func SetDefaults() {
	setDefaults(viper.GetViper())
}

// BindEnv wires the legacy environment variable names onto config keys.
func BindEnv() error {
	return bindEnv(viper.GetViper())
}

// LoadDotEnv loads KEY=VALUE files into the process environment. Missing
// files are skipped and variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return nil
}

// LoadAndValidate loads config from Viper and validates it
func LoadAndValidate() (*Config, error) {
	return loadAndValidateFromViper(viper.GetViper())
}

// ValidateYAMLContent validates configuration from raw YAML content.
func ValidateYAMLContent(content []byte) (*Config, error) {
	local := viper.New()
	setDefaults(local)
	local.SetConfigType("yaml")
	if err := local.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("read config content: %w", err)
	}
	return loadAndValidateFromViper(local)
}

// ExampleYAML returns the default configuration template.
func ExampleYAML() string {
	return `# worksync configuration
tempo:
  base_url: "https://api.tempo.io/4"
  api_token: ""
  page_limit: 1000

jira:
  base_url: "https://your-company.atlassian.net"
  user: "sync@your-company.com"
  api_token: ""
  link_field: "customfield_10134"
  parent_field: "parent"
  epic_link_field: "customfield_10014"

odoo:
  url: "https://your-odoo.com"
  db: ""
  username: ""
  password: ""
  employee_field: "x_jira_account_id"
  fallback_employee_id: 0
  worklog_id_field: "x_jira_worklog_id"

sync:
  lookback_hours: 24
  request_timeout: 60s
  db_path: "./worksync.db"

email:
  enabled: false
  smtp_server: ""
  smtp_port: 587
  from: ""
  password: ""
  to: ""
  subject_prefix: "[JIRA-SYNC]"

logging:
  level: "info"
  format: "text"
  dir: "logs"
  file: ""
`
}

// ExampleDotEnv returns a .env template with the legacy variable names and
// their default values.
func ExampleDotEnv() (string, error) {
	defaults := viper.New()
	setDefaults(defaults)

	values := make(map[string]string, len(envBindings))
	for key, env := range envBindings {
		values[env] = defaults.GetString(key)
	}
	body, err := godotenv.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("render env template: %w", err)
	}
	return "# worksync environment\n" + body + "\n", nil
}

// NormalizeURL trims whitespace and a trailing slash.
func NormalizeURL(value string) string {
	return strings.TrimRight(strings.TrimSpace(value), "/")
}

func loadAndValidateFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Tempo.BaseURL = NormalizeURL(cfg.Tempo.BaseURL)
	cfg.Jira.BaseURL = NormalizeURL(cfg.Jira.BaseURL)
	cfg.Odoo.URL = NormalizeURL(cfg.Odoo.URL)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if cfg.Sync.RequestTimeout < 0 {
		return nil, fmt.Errorf("validation failed: sync.request_timeout must not be negative")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyTempoBaseURL, "https://api.tempo.io/4")
	v.SetDefault(KeyTempoPageLimit, 1000)
	v.SetDefault(KeyJiraLinkField, "customfield_10134")
	v.SetDefault(KeyJiraParentField, "parent")
	v.SetDefault(KeyJiraEpicLinkField, "customfield_10014")
	v.SetDefault(KeyOdooEmployeeField, "x_jira_account_id")
	v.SetDefault(KeyOdooFallbackEmpID, 0)
	v.SetDefault(KeyOdooWorklogIDField, "x_jira_worklog_id")
	v.SetDefault(KeySyncLookbackHours, 24)
	v.SetDefault(KeySyncRequestTimeout, 60*time.Second)
	v.SetDefault(KeySyncDBPath, "./worksync.db")
	v.SetDefault(KeyEmailEnabled, false)
	v.SetDefault(KeyEmailSMTPPort, 587)
	v.SetDefault(KeyEmailSubjectPrefix, "[JIRA-SYNC]")
	v.SetDefault(KeyLoggingLevel, "info")
	v.SetDefault(KeyLoggingFormat, "text")
	v.SetDefault(KeyLoggingDir, "logs")
	v.SetDefault(KeyLoggingMaxSizeMB, 10)
	v.SetDefault(KeyLoggingMaxBackups, 5)
	v.SetDefault(KeyLoggingMaxAgeDays, 30)
}

// bindEnv binds every key to WORKSYNC_<SECTION>_<NAME> and, where one
// exists, to its legacy name. The prefixed name wins when both are set.
func bindEnv(v *viper.Viper) error {
	for _, key := range allKeys {
		names := []string{EnvName(key)}
		if legacy, ok := envBindings[key]; ok {
			names = append(names, legacy)
		}
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// EnvName is the prefixed environment variable for a config key.
func EnvName(key string) string {
	return "WORKSYNC_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
