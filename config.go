package main

import (
	"os"
	"strconv"
	"time"

	"github.com/vmemphis/data-parser/database"
)

type Config struct {
	FacilityFile string
	Debug        bool

	Database database.Config
	RedisURI string
	// CacheScope prefixes the active set keys, empty for the bare names.
	CacheScope string

	DataURL      string
	MetarURL     string
	PirepURL     string
	FetchTimeout time.Duration

	AccountingURL string
	AccountingKey string

	MetricsAddr string
}

func LoadConfig(facilityFile string) Config {
	if facilityFile == "" {
		facilityFile = Getenv("FACILITY_FILE", "facility.json")
	}
	return Config{
		FacilityFile: facilityFile,
		Debug:        GetenvBool("DEBUG", false),
		Database: database.Config{
			Username: Getenv("DB_USERNAME", "root"),
			Password: Getenv("DB_PASSWORD", "secret"),
			Hostname: Getenv("DB_HOSTNAME", "localhost"),
			Port:     Getenv("DB_PORT", "3306"),
			Database: Getenv("DB_DATABASE", "zme"),
		},
		RedisURI:      Getenv("REDIS_URI", "redis://localhost:6379/0"),
		CacheScope:    Getenv("CACHE_SCOPE", ""),
		DataURL:       Getenv("VATSIM_DATA_URL", ""),
		MetarURL:      Getenv("METAR_URL", ""),
		PirepURL:      Getenv("PIREP_URL", ""),
		FetchTimeout:  GetenvDuration("FETCH_TIMEOUT", 10*time.Second),
		AccountingURL: Getenv("ZAB_API_URL", ""),
		AccountingKey: Getenv("ZAB_API_KEY", ""),
		MetricsAddr:   Getenv("METRICS_ADDR", ":9100"),
	}
}

func Getenv(key string, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return value
}

func GetenvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(Getenv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

func GetenvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(Getenv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
