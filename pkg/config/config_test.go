package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Redistribution.Period)
	assert.Equal(t, 3, cfg.Scheduler.Redistribution.Workers)
	assert.Equal(t, 2, cfg.Scheduler.AutoOrder.Workers)
	assert.Equal(t, 2*time.Second, cfg.Scheduler.LockTimeout)
	assert.Equal(t, "largest_surplus", cfg.Scheduler.TieBreak)
	assert.False(t, cfg.Scheduler.AllowSplit)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "postgres", cfg.DB.Driver)
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("REDISTRIBUTION_PERIOD", "90s")
	v.Set("AUTO_ORDER_PERIOD", "120")
	v.Set("REDISTRIBUTION_WORKERS", "5")
	v.Set("KAFKA_BROKERS", "k1:9092, k2:9092,")
	v.Set("REDISTRIBUTION_ALLOW_SPLIT", true)

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.Redistribution.Period)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.AutoOrder.Period)
	assert.Equal(t, 5, cfg.Scheduler.Redistribution.Workers)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Scheduler.AllowSplit)
}

func TestFromViper_PeriodoInvalido(t *testing.T) {
	v := viper.New()
	v.Set("REDISTRIBUTION_PERIOD", "-1m")
	_, err := fromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_DSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "inv", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/inv?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}

func TestFromViper_JWT(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "stock-replenishment", cfg.JWT.Issuer)
	assert.Equal(t, 60, cfg.JWT.Expiration)

	v := viper.New()
	v.Set("APP_ENV", "production")
	_, err = fromViper(v)
	assert.ErrorContains(t, err, "JWT_SECRET")

	v.Set("JWT_SECRET", "s3cr3t")
	cfg, err = fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.JWT.Secret)
}

func TestFromViper_DriverDesconocido(t *testing.T) {
	v := viper.New()
	v.Set("DB_DRIVER", "sqlite")
	_, err := fromViper(v)
	assert.ErrorContains(t, err, "DB_DRIVER")
}
