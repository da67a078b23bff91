package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the underwriting risk service
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Elasticsearch ElasticsearchConfig
	Kafka         KafkaConfig
	S3            S3Config
	Auth          AuthConfig
	Signing       SigningConfig
	Logging       LoggingConfig
	Reasoning     ReasoningConfig
	Analytics     AnalyticsConfig
	Scoring       ScoringConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// ElasticsearchConfig holds Elasticsearch configuration
type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	ConsumerGroup  string   `mapstructure:"consumer_group"`
	ExtractedTopic string   `mapstructure:"extracted_topic"`
	ProfileTopic   string   `mapstructure:"profile_topic"`
}

// S3Config holds AWS S3 configuration for rollup report storage
type S3Config struct {
	Region        string `mapstructure:"region"`
	ReportsBucket string `mapstructure:"reports_bucket"`
	Endpoint      string `mapstructure:"endpoint"` // For local testing with MinIO
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UseSSL        bool   `mapstructure:"use_ssl"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	JWTPublicKeyPath string `mapstructure:"jwt_public_key_path"`
	JWTIssuer        string `mapstructure:"jwt_issuer"`
}

// SigningConfig holds the HMAC secret used to sign persisted risk results
type SigningConfig struct {
	ResultHMACSecret string `mapstructure:"result_hmac_secret"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	EnablePIIMask bool   `mapstructure:"enable_pii_mask"`
}

// ReasoningConfig holds settings for the textual-reasoning collaborator.
// When Endpoint is empty the rule-based fallback is always used.
type ReasoningConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AnalyticsConfig lifts every analytics threshold into one tunable object
type AnalyticsConfig struct {
	AmountSimilarityPct     float64 `mapstructure:"amount_similarity_pct"`     // salary grouping window
	SalaryDelayDays         int     `mapstructure:"salary_delay_days"`         // days past statement end before delay flag
	StatementRecencyDays    int     `mapstructure:"statement_recency_days"`    // delay check only for recent statements
	DefaultPeriodDays       int     `mapstructure:"default_period_days"`       // gap window when no statement period
	RoundTripWindowDays     int     `mapstructure:"round_trip_window_days"`    // max days between credit and offsetting debit
	RoundTripScanLimit      int     `mapstructure:"round_trip_scan_limit"`     // transactions scanned forward per credit
	RoundTripAmountPct      float64 `mapstructure:"round_trip_amount_pct"`     // debit within this % of the credit
	LargeCreditThreshold    float64 `mapstructure:"large_credit_threshold"`    // credits above this checked for round-trips
	LargeWithdrawalCutoff   float64 `mapstructure:"large_withdrawal_cutoff"`   // cash withdrawals above this flagged
	ReconciliationTolerance float64 `mapstructure:"reconciliation_tolerance"`  // balance-equation rounding absorption
	CCFullPaymentCVPct      float64 `mapstructure:"cc_full_payment_cv_pct"`    // CV below => FULL_PAYMENT
	CCVariableCVPct         float64 `mapstructure:"cc_variable_cv_pct"`        // CV above => VARIABLE
	CCMinimumPaymentPct     float64 `mapstructure:"cc_minimum_payment_pct"`    // min payment below this % of avg => MINIMUM_ONLY
	DTIHighRiskPct          float64 `mapstructure:"dti_high_risk_pct"`         // DTI above => HIGH_RISK
	DTIMediumRiskPct        float64 `mapstructure:"dti_medium_risk_pct"`       // DTI above => MEDIUM_RISK
	DTITrendChangePts       float64 `mapstructure:"dti_trend_change_pts"`      // trend points change for INCREASING
	LiquidityStressedPct    float64 `mapstructure:"liquidity_stressed_pct"`    // AMB/income below => STRESSED
	LiquidityModeratePct    float64 `mapstructure:"liquidity_moderate_pct"`    // AMB/income below => MODERATE
	DescriptionKeyLength    int     `mapstructure:"description_key_length"`    // dedup key description truncation
	ConsistencyFloor        float64 `mapstructure:"consistency_floor"`         // consistency below => instability anomaly
	VariationPctTwoSalaries float64 `mapstructure:"variation_pct_two_salaries"`
	VariationPctDefault     float64 `mapstructure:"variation_pct_default"`
}

// ScoringConfig holds the additive scoring weights and level floors
type ScoringConfig struct {
	CriticalWeight float64 `mapstructure:"critical_weight"`
	HighWeight     float64 `mapstructure:"high_weight"`
	MediumWeight   float64 `mapstructure:"medium_weight"`
	LowWeight      float64 `mapstructure:"low_weight"`
	QualityWeight  float64 `mapstructure:"quality_weight"` // applied to (100 - quality_score)
	MediumFloor    float64 `mapstructure:"medium_floor"`
	HighFloor      float64 `mapstructure:"high_floor"`
	CriticalFloor  float64 `mapstructure:"critical_floor"`
	FallbackScore  float64 `mapstructure:"fallback_score"` // used when scoring itself fails
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("RISK")
	v.AutomaticEnv()

	// Read config file if exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// DefaultAnalytics returns the calibrated analytics thresholds.
// Shared by Load defaults and by unit tests that construct analyzers directly.
func DefaultAnalytics() AnalyticsConfig {
	return AnalyticsConfig{
		AmountSimilarityPct:     20,
		SalaryDelayDays:         45,
		StatementRecencyDays:    90,
		DefaultPeriodDays:       180,
		RoundTripWindowDays:     5,
		RoundTripScanLimit:      50,
		RoundTripAmountPct:      10,
		LargeCreditThreshold:    50000,
		LargeWithdrawalCutoff:   50000,
		ReconciliationTolerance: 1,
		CCFullPaymentCVPct:      15,
		CCVariableCVPct:         50,
		CCMinimumPaymentPct:     30,
		DTIHighRiskPct:          50,
		DTIMediumRiskPct:        30,
		DTITrendChangePts:       5,
		LiquidityStressedPct:    10,
		LiquidityModeratePct:    50,
		DescriptionKeyLength:    100,
		ConsistencyFloor:        50,
		VariationPctTwoSalaries: 30,
		VariationPctDefault:     50,
	}
}

// DefaultScoring returns the calibrated scoring weights and level floors.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		CriticalWeight: 60,
		HighWeight:     30,
		MediumWeight:   10,
		LowWeight:      2,
		QualityWeight:  0.2,
		MediumFloor:    30,
		HighFloor:      60,
		CriticalFloor:  80,
		FallbackScore:  50,
	}
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8086)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "underwriting_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	// Elasticsearch
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.username", "elastic")
	v.SetDefault("elasticsearch.password", "changeme")
	v.SetDefault("elasticsearch.index", "risk-analyses")

	// Kafka
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group", "underwriting-risk-service")
	v.SetDefault("kafka.extracted_topic", "underwriting.documents.extracted")
	v.SetDefault("kafka.profile_topic", "underwriting.profiles")

	// S3
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.reports_bucket", "underwriting-risk-reports")
	v.SetDefault("s3.use_ssl", true)

	// Auth
	v.SetDefault("auth.jwt_public_key_path", "./keys/jwt_public.pem")
	v.SetDefault("auth.jwt_issuer", "banking-auth-service")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.enable_pii_mask", true)

	// Reasoning
	v.SetDefault("reasoning.model", "gpt-4o-mini")
	v.SetDefault("reasoning.timeout", "20s")

	// Analytics
	a := DefaultAnalytics()
	v.SetDefault("analytics.amount_similarity_pct", a.AmountSimilarityPct)
	v.SetDefault("analytics.salary_delay_days", a.SalaryDelayDays)
	v.SetDefault("analytics.statement_recency_days", a.StatementRecencyDays)
	v.SetDefault("analytics.default_period_days", a.DefaultPeriodDays)
	v.SetDefault("analytics.round_trip_window_days", a.RoundTripWindowDays)
	v.SetDefault("analytics.round_trip_scan_limit", a.RoundTripScanLimit)
	v.SetDefault("analytics.round_trip_amount_pct", a.RoundTripAmountPct)
	v.SetDefault("analytics.large_credit_threshold", a.LargeCreditThreshold)
	v.SetDefault("analytics.large_withdrawal_cutoff", a.LargeWithdrawalCutoff)
	v.SetDefault("analytics.reconciliation_tolerance", a.ReconciliationTolerance)
	v.SetDefault("analytics.cc_full_payment_cv_pct", a.CCFullPaymentCVPct)
	v.SetDefault("analytics.cc_variable_cv_pct", a.CCVariableCVPct)
	v.SetDefault("analytics.cc_minimum_payment_pct", a.CCMinimumPaymentPct)
	v.SetDefault("analytics.dti_high_risk_pct", a.DTIHighRiskPct)
	v.SetDefault("analytics.dti_medium_risk_pct", a.DTIMediumRiskPct)
	v.SetDefault("analytics.dti_trend_change_pts", a.DTITrendChangePts)
	v.SetDefault("analytics.liquidity_stressed_pct", a.LiquidityStressedPct)
	v.SetDefault("analytics.liquidity_moderate_pct", a.LiquidityModeratePct)
	v.SetDefault("analytics.description_key_length", a.DescriptionKeyLength)
	v.SetDefault("analytics.consistency_floor", a.ConsistencyFloor)
	v.SetDefault("analytics.variation_pct_two_salaries", a.VariationPctTwoSalaries)
	v.SetDefault("analytics.variation_pct_default", a.VariationPctDefault)

	// Scoring
	s := DefaultScoring()
	v.SetDefault("scoring.critical_weight", s.CriticalWeight)
	v.SetDefault("scoring.high_weight", s.HighWeight)
	v.SetDefault("scoring.medium_weight", s.MediumWeight)
	v.SetDefault("scoring.low_weight", s.LowWeight)
	v.SetDefault("scoring.quality_weight", s.QualityWeight)
	v.SetDefault("scoring.medium_floor", s.MediumFloor)
	v.SetDefault("scoring.high_floor", s.HighFloor)
	v.SetDefault("scoring.critical_floor", s.CriticalFloor)
	v.SetDefault("scoring.fallback_score", s.FallbackScore)
}
