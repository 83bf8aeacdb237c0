package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	exchangeBaseENV   = "EXCHANGE_BASE_URL"
	exchangeWSENV     = "EXCHANGE_WS_URL"
)

// Config ...
type Config struct {
	Telegram struct {
		Token string `yaml:"token"`
	} `yaml:"telegram"`
	DB      string `yaml:"db_dsn"`
	Service struct {
		Host      string `yaml:"host"`
		AdminPort int    `yaml:"admin_port"`
	} `yaml:"service"`
	Exchange struct {
		BaseURL string `yaml:"base_url"`
		WSURL   string `yaml:"ws_url"`
	} `yaml:"exchange"`
	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// Планировщик проходов
	PassInterval time.Duration `yaml:"pass_interval"`
	CallTimeout  time.Duration `yaml:"call_timeout"`
	CandleLimit  int           `yaml:"candle_limit"`

	// Бюджет одной сделки в quote-валюте
	OrderNotionalUSD float64 `yaml:"order_notional_usd"`

	// Прогревать WS-стримы цен по активным символам
	StreamPrices bool `yaml:"stream_prices"`
}

func NewConfig() (*Config, error) {
	// .env опционален, локальный запуск
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		PassInterval:     durationFromEnv("PASS_INTERVAL", "1m"),
		CallTimeout:      durationFromEnv("CALL_TIMEOUT", "10s"),
		CandleLimit:      intFromEnv("CANDLE_LIMIT", 100),
		OrderNotionalUSD: floatFromEnv("ORDER_NOTIONAL_USD", 100),
		StreamPrices:     boolFromEnv("STREAM_PRICES", true),
	}
	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}

	dsn := os.Getenv(databaseDSN)
	if dsn != "" {
		config.DB = dsn
	}

	if v := os.Getenv(exchangeBaseENV); v != "" {
		config.Exchange.BaseURL = v
	}
	if v := os.Getenv(exchangeWSENV); v != "" {
		config.Exchange.WSURL = v
	}

	return &config, nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
