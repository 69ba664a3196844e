// backend-go/internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Forecast  ForecastConfig
	Anomaly   AnomalyConfig
	EOQ       EOQConfig
	Model     ModelConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	Events    EventsConfig
}

type ServerConfig struct {
	Port           string
	AdminPort      string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	BatchWorkers   int
	BatchMaxItems  int
}

type DatabaseConfig struct {
	Driver   string
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ForecastTTLSeconds int
	MemoryMaxEntries   int
}

// ForecastConfig drives forecaster selection and neural training
type ForecastConfig struct {
	HistoryDays        int
	DefaultHorizon     int
	MaxHorizon         int
	MinNeuralHistory   int
	MinTrainingWindows int
	TrainingEpochs     int
	BatchSize          int
	ValidationSplit    float64
	LearningRate       float64
}

// AnomalyConfig holds the rolling z-score thresholds
type AnomalyConfig struct {
	HistoryDays     int
	WindowDays      int
	MinObservations int
	ZThreshold      float64
	ZMedium         float64
	ZHigh           float64
}

// EOQConfig holds the inventory-theory cost parameters
type EOQConfig struct {
	OrderingCost       float64
	HoldingCostRate    float64
	DefaultHoldingCost float64
	LeadTimeDays       float64
	ServiceLevelZ      float64
}

type ModelConfig struct {
	Store                  string
	Dir                    string
	ObjectPrefix           string
	TrainingTimeoutSeconds int
	PersistAfterTraining   bool
	Seed                   uint64
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type SchedulerConfig struct {
	Enabled         bool
	RefreshSchedule string
	PrimeSchedule   string
	PersistSchedule string
	RefreshLimit    int
}

type EventsConfig struct {
	Enabled bool
	Channel string
}

// TrainingTimeout returns the bound on a single neural training run
func (m ModelConfig) TrainingTimeout() time.Duration {
	if m.TrainingTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(m.TrainingTimeoutSeconds) * time.Second
}

// ForecastTTL returns how long a computed forecast stays cached
func (c CacheConfig) ForecastTTL() time.Duration {
	if c.ForecastTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.ForecastTTLSeconds) * time.Second
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.GetViper()
		setDefaults(v)

		// Read from environment variables
		v.AutomaticEnv()

		if v.GetString("MODEL_STORE") == "file" {
			ensureDir(v.GetString("MODEL_DIR"))
		}

		instance = fromViper(v)
	})

	return instance
}

// Default returns the configuration built from defaults only, ignoring the environment
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ADMIN_PORT", "9090")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 120)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("BATCH_WORKERS", 4)
	v.SetDefault("BATCH_MAX_ITEMS", 500)

	v.SetDefault("DB_DRIVER", "pgx")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "stockcast")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_FORECAST_TTL_SECONDS", 3600)
	v.SetDefault("CACHE_MEMORY_MAX_ENTRIES", 1000)

	v.SetDefault("FORECAST_HISTORY_DAYS", 180)
	v.SetDefault("FORECAST_DEFAULT_HORIZON", 30)
	v.SetDefault("FORECAST_MAX_HORIZON", 365)
	v.SetDefault("FORECAST_MIN_NEURAL_HISTORY", 30)
	v.SetDefault("FORECAST_MIN_TRAINING_WINDOWS", 10)
	v.SetDefault("FORECAST_TRAINING_EPOCHS", 50)
	v.SetDefault("FORECAST_BATCH_SIZE", 32)
	v.SetDefault("FORECAST_VALIDATION_SPLIT", 0.2)
	v.SetDefault("FORECAST_LEARNING_RATE", 0.001)

	v.SetDefault("ANOMALY_HISTORY_DAYS", 90)
	v.SetDefault("ANOMALY_WINDOW_DAYS", 7)
	v.SetDefault("ANOMALY_MIN_OBSERVATIONS", 14)
	v.SetDefault("ANOMALY_Z_THRESHOLD", 2.0)
	v.SetDefault("ANOMALY_Z_MEDIUM", 2.5)
	v.SetDefault("ANOMALY_Z_HIGH", 3.0)

	v.SetDefault("EOQ_ORDERING_COST", 50.0)
	v.SetDefault("EOQ_HOLDING_COST_RATE", 0.25)
	v.SetDefault("EOQ_DEFAULT_HOLDING_COST", 2.0)
	v.SetDefault("EOQ_LEAD_TIME_DAYS", 7.0)
	v.SetDefault("EOQ_SERVICE_LEVEL_Z", 1.645)

	v.SetDefault("MODEL_STORE", "file")
	v.SetDefault("MODEL_DIR", "./data/models")
	v.SetDefault("MODEL_OBJECT_PREFIX", "models")
	v.SetDefault("MODEL_TRAINING_TIMEOUT_SECONDS", 30)
	v.SetDefault("MODEL_PERSIST_AFTER_TRAINING", true)
	v.SetDefault("MODEL_SEED", 42)

	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "stockcast")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_REFRESH_SCHEDULE", "0 0 2 * * *")
	v.SetDefault("SCHEDULER_PRIME_SCHEDULE", "@every 6h")
	v.SetDefault("SCHEDULER_PERSIST_SCHEDULE", "@every 30m")
	v.SetDefault("SCHEDULER_REFRESH_LIMIT", 200)

	v.SetDefault("EVENTS_ENABLED", false)
	v.SetDefault("EVENTS_CHANNEL", "stockcast:events")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			AdminPort:      v.GetString("SERVER_ADMIN_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			BatchWorkers:   v.GetInt("BATCH_WORKERS"),
			BatchMaxItems:  v.GetInt("BATCH_MAX_ITEMS"),
		},
		Database: DatabaseConfig{
			Driver:   v.GetString("DB_DRIVER"),
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("CACHE_ENABLED"),
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			ForecastTTLSeconds: v.GetInt("CACHE_FORECAST_TTL_SECONDS"),
			MemoryMaxEntries:   v.GetInt("CACHE_MEMORY_MAX_ENTRIES"),
		},
		Forecast: ForecastConfig{
			HistoryDays:        v.GetInt("FORECAST_HISTORY_DAYS"),
			DefaultHorizon:     v.GetInt("FORECAST_DEFAULT_HORIZON"),
			MaxHorizon:         v.GetInt("FORECAST_MAX_HORIZON"),
			MinNeuralHistory:   v.GetInt("FORECAST_MIN_NEURAL_HISTORY"),
			MinTrainingWindows: v.GetInt("FORECAST_MIN_TRAINING_WINDOWS"),
			TrainingEpochs:     v.GetInt("FORECAST_TRAINING_EPOCHS"),
			BatchSize:          v.GetInt("FORECAST_BATCH_SIZE"),
			ValidationSplit:    v.GetFloat64("FORECAST_VALIDATION_SPLIT"),
			LearningRate:       v.GetFloat64("FORECAST_LEARNING_RATE"),
		},
		Anomaly: AnomalyConfig{
			HistoryDays:     v.GetInt("ANOMALY_HISTORY_DAYS"),
			WindowDays:      v.GetInt("ANOMALY_WINDOW_DAYS"),
			MinObservations: v.GetInt("ANOMALY_MIN_OBSERVATIONS"),
			ZThreshold:      v.GetFloat64("ANOMALY_Z_THRESHOLD"),
			ZMedium:         v.GetFloat64("ANOMALY_Z_MEDIUM"),
			ZHigh:           v.GetFloat64("ANOMALY_Z_HIGH"),
		},
		EOQ: EOQConfig{
			OrderingCost:       v.GetFloat64("EOQ_ORDERING_COST"),
			HoldingCostRate:    v.GetFloat64("EOQ_HOLDING_COST_RATE"),
			DefaultHoldingCost: v.GetFloat64("EOQ_DEFAULT_HOLDING_COST"),
			LeadTimeDays:       v.GetFloat64("EOQ_LEAD_TIME_DAYS"),
			ServiceLevelZ:      v.GetFloat64("EOQ_SERVICE_LEVEL_Z"),
		},
		Model: ModelConfig{
			Store:                  v.GetString("MODEL_STORE"),
			Dir:                    v.GetString("MODEL_DIR"),
			ObjectPrefix:           v.GetString("MODEL_OBJECT_PREFIX"),
			TrainingTimeoutSeconds: v.GetInt("MODEL_TRAINING_TIMEOUT_SECONDS"),
			PersistAfterTraining:   v.GetBool("MODEL_PERSIST_AFTER_TRAINING"),
			Seed:                   v.GetUint64("MODEL_SEED"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
		Scheduler: SchedulerConfig{
			Enabled:         v.GetBool("SCHEDULER_ENABLED"),
			RefreshSchedule: v.GetString("SCHEDULER_REFRESH_SCHEDULE"),
			PrimeSchedule:   v.GetString("SCHEDULER_PRIME_SCHEDULE"),
			PersistSchedule: v.GetString("SCHEDULER_PERSIST_SCHEDULE"),
			RefreshLimit:    v.GetInt("SCHEDULER_REFRESH_LIMIT"),
		},
		Events: EventsConfig{
			Enabled: v.GetBool("EVENTS_ENABLED"),
			Channel: v.GetString("EVENTS_CHANNEL"),
		},
	}
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
