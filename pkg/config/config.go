package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración del motor (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	HTTP      HTTPConfig
	Scheduler SchedulerConfig
	Kafka     KafkaConfig
	Otel      OtelConfig
	JWT       JWTConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	Driver      string // postgres | memory (demo y pruebas locales, sin persistencia)
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	Migrate     bool // aplica schema.sql al arrancar
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// HTTPConfig servidor de operaciones (health y "ejecutar ahora").
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JobConfig período y pool de un job programado.
type JobConfig struct {
	Period    time.Duration
	Workers   int
	QueueSize int
}

// SchedulerConfig configuración de los jobs de redistribución y compra automática.
type SchedulerConfig struct {
	Enabled        bool
	Redistribution JobConfig
	AutoOrder      JobConfig
	LockTimeout    time.Duration
	TieBreak       string // largest_surplus | lowest_id
	AllowSplit     bool
}

// KafkaConfig publicación de eventos del motor. Sin brokers se usa un publicador no-op.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// OtelConfig exportador de trazas. Endpoint vacío desactiva el exportador.
type OtelConfig struct {
	Endpoint   string
	AuthHeader string
	Insecure   bool
}

// JWTConfig firma de los tokens de la API (empresa y rol en los claims).
type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration int // minutos
}

// TTL vigencia de los tokens emitidos.
func (c JWTConfig) TTL() time.Duration {
	return time.Duration(c.Expiration) * time.Minute
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, REDISTRIBUTION_PERIOD, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "stock-replenishment"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			Driver:      getString(v, "DB_DRIVER", "postgres"),
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "stock_replenishment"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 25),
			Migrate:     getBool(v, "DB_MIGRATE", false),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8081),
		},
		Scheduler: SchedulerConfig{
			Enabled: getBool(v, "SCHEDULER_ENABLED", true),
			Redistribution: JobConfig{
				Period:    getDuration(v, "REDISTRIBUTION_PERIOD", 15*time.Minute),
				Workers:   getInt(v, "REDISTRIBUTION_WORKERS", 3),
				QueueSize: getInt(v, "REDISTRIBUTION_QUEUE", 32),
			},
			AutoOrder: JobConfig{
				Period:    getDuration(v, "AUTO_ORDER_PERIOD", time.Hour),
				Workers:   getInt(v, "AUTO_ORDER_WORKERS", 2),
				QueueSize: getInt(v, "AUTO_ORDER_QUEUE", 32),
			},
			LockTimeout: getDuration(v, "LOCK_TIMEOUT", 2*time.Second),
			TieBreak:    getString(v, "REDISTRIBUTION_TIE_BREAK", "largest_surplus"),
			AllowSplit:  getBool(v, "REDISTRIBUTION_ALLOW_SPLIT", false),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getString(v, "KAFKA_BROKERS", "")),
			Topic:   getString(v, "KAFKA_TOPIC", "inventory.replenishment"),
		},
		Otel: OtelConfig{
			Endpoint:   getString(v, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			AuthHeader: getString(v, "OTEL_AUTH_HEADER", ""),
			Insecure:   getBool(v, "OTEL_INSECURE", false),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Issuer:     getString(v, "JWT_ISSUER", "stock-replenishment"),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
		},
	}

	if cfg.Scheduler.Redistribution.Period <= 0 || cfg.Scheduler.AutoOrder.Period <= 0 {
		return nil, fmt.Errorf("los períodos del scheduler deben ser positivos")
	}
	if cfg.DB.Driver != "postgres" && cfg.DB.Driver != "memory" {
		return nil, fmt.Errorf("DB_DRIVER desconocido: %s", cfg.DB.Driver)
	}
	if cfg.App.Env == "production" && cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET es obligatorio en production")
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

// getDuration acepta "90s", "15m" o segundos enteros.
func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	raw := v.GetString(key)
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
