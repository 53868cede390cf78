package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "FOOD4U"

// Cart session store backends.
const (
	StoreMongo     = "mongo"
	StoreFirestore = "firestore"
	StoreRedis     = "redis"
)

// Auth modes.
const (
	AuthFirebase = "firebase"
	AuthDev      = "dev"
)

type Config struct {
	App    AppConfig
	Server ServerConfig
	Cart   CartConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	GCP    GCPConfig
	Kafka  KafkaConfig
	Auth   AuthConfig
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Name      string `envconfig:"FOOD4U_APP_NAME" default:"food4u"`
	LogLevel  string `envconfig:"FOOD4U_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"FOOD4U_LOG_FORMAT" default:"json"`
}

type ServerConfig struct {
	HTTPPort        string        `envconfig:"FOOD4U_HTTP_PORT" default:"8080"`
	GRPCPort        string        `envconfig:"FOOD4U_GRPC_PORT" default:"50051"`
	RequestTimeout  time.Duration `envconfig:"FOOD4U_REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"FOOD4U_SHUTDOWN_TIMEOUT" default:"10s"`
	MaxBodyBytes    int64         `envconfig:"FOOD4U_MAX_BODY_BYTES" default:"1048576"`
	MaxImageBytes   int64         `envconfig:"FOOD4U_MAX_IMAGE_BYTES" default:"5242880"`
}

type CartConfig struct {
	TTL           time.Duration `envconfig:"FOOD4U_CART_TTL" default:"3m"`
	Tick          time.Duration `envconfig:"FOOD4U_CART_TICK" default:"1s"`
	Store         string        `envconfig:"FOOD4U_CART_STORE" default:"mongo"`
	SyncQueueSize int           `envconfig:"FOOD4U_CART_SYNC_QUEUE_SIZE" default:"256"`
	SyncTimeout   time.Duration `envconfig:"FOOD4U_CART_SYNC_TIMEOUT" default:"5s"`
}

type MongoConfig struct {
	URI         string `envconfig:"FOOD4U_MONGO_URI" default:"mongodb://localhost:27017"`
	Database    string `envconfig:"FOOD4U_MONGO_DATABASE" default:"food4u"`
	MaxPoolSize uint64 `envconfig:"FOOD4U_MONGO_MAX_POOL_SIZE" default:"50"`
	MinPoolSize uint64 `envconfig:"FOOD4U_MONGO_MIN_POOL_SIZE" default:"5"`
}

type RedisConfig struct {
	Addr         string        `envconfig:"FOOD4U_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"FOOD4U_REDIS_PASSWORD"`
	DB           int           `envconfig:"FOOD4U_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FOOD4U_REDIS_POOL_SIZE" default:"50"`
	MinIdleConns int           `envconfig:"FOOD4U_REDIS_MIN_IDLE_CONNS" default:"10"`
	MenuCacheTTL time.Duration `envconfig:"FOOD4U_MENU_CACHE_TTL" default:"15m"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"FOOD4U_GCP_PROJECT_ID"`
	GCSBucket string `envconfig:"FOOD4U_GCS_BUCKET"`
	// CredentialsFile overrides application default credentials.
	CredentialsFile string `envconfig:"FOOD4U_GCP_CREDENTIALS_FILE"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"FOOD4U_KAFKA_BROKERS"`
	Topic   string   `envconfig:"FOOD4U_KAFKA_TOPIC" default:"food4u.orders"`
	// GroupID must be unique per instance so every instance sees every order.
	GroupID string `envconfig:"FOOD4U_KAFKA_GROUP_ID"`
}

// Enabled reports whether order events are published and consumed.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type AuthConfig struct {
	Mode string `envconfig:"FOOD4U_AUTH_MODE" default:"firebase"`
}

func (c *Config) Validate() error {
	switch c.Cart.Store {
	case StoreMongo, StoreRedis:
	case StoreFirestore:
		if c.GCP.ProjectID == "" {
			return fmt.Errorf("config: %s_GCP_PROJECT_ID is required for the firestore cart store", EnvPrefix)
		}
	default:
		return fmt.Errorf("config: unknown cart store %q", c.Cart.Store)
	}

	switch strings.ToLower(c.Auth.Mode) {
	case AuthFirebase, AuthDev:
		c.Auth.Mode = strings.ToLower(c.Auth.Mode)
	default:
		return fmt.Errorf("config: unknown auth mode %q", c.Auth.Mode)
	}

	if c.Cart.TTL <= 0 || c.Cart.Tick <= 0 {
		return fmt.Errorf("config: cart ttl and tick must be positive")
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("config: kafka topic is required when brokers are set")
	}
	return nil
}
