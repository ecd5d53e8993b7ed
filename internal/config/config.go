// Package config centralises the exporter's runtime configuration. A Config is
// built once at startup and handed to every component that needs it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MaxPageSize is the largest page the activity list endpoint accepts.
const MaxPageSize = 1000

// URLs are the Garmin Connect endpoints the exporter talks to.
type URLs struct {
	Login            string `yaml:"LOGIN"`
	PostAuth         string `yaml:"POST_AUTH"`
	UserStats        string `yaml:"USERSTATS"`
	List             string `yaml:"LIST"`
	Activity         string `yaml:"ACTIVITY"`
	Device           string `yaml:"DEVICE"`
	Gear             string `yaml:"GEAR"`
	ActivityTypes    string `yaml:"ACT_PROPS"`
	EventTypes       string `yaml:"EVT_PROPS"`
	OriginalActivity string `yaml:"ORIGINAL_ACTIVITY"`
	GPXActivity      string `yaml:"GPX_ACTIVITY"`
	TCXActivity      string `yaml:"TCX_ACTIVITY"`
	ActivityPage     string `yaml:"ACTIVITY_PAGE"`
	// Values used as query parameters during the SSO handshake.
	SSO     string `yaml:"SSO"`
	WebHost string `yaml:"WEBHOST"`
	Signin  string `yaml:"BASE_URL"`
	CSS     string `yaml:"CSS"`
}

// Config captures runtime configuration values for the exporter.
type Config struct {
	Username    string
	Password    string
	URLs        URLs
	HTTPTimeout time.Duration
	MaxTries    int
	PageSize    int
	LedgerPath  string
	HTTPAddress string
}

// DefaultURLs returns the public Garmin Connect endpoints.
func DefaultURLs() URLs {
	const proxy = "https://connect.garmin.com/modern/proxy"
	return URLs{
		Login:            "https://sso.garmin.com/sso/signin",
		PostAuth:         "https://connect.garmin.com/modern/",
		UserStats:        proxy + "/userstats-service/statistics",
		List:             proxy + "/activitylist-service/activities/search/activities",
		Activity:         proxy + "/activity-service/activity",
		Device:           proxy + "/device-service/deviceservice/app-info",
		Gear:             proxy + "/gear-service/gear/filterGear",
		ActivityTypes:    "https://connect.garmin.com/modern/main/js/properties/activity_types/activity_types.properties",
		EventTypes:       "https://connect.garmin.com/modern/main/js/properties/event_types/event_types.properties",
		OriginalActivity: proxy + "/download-service/files/activity",
		GPXActivity:      proxy + "/download-service/export/gpx/activity",
		TCXActivity:      proxy + "/download-service/export/tcx/activity",
		ActivityPage:     "https://connect.garmin.com/modern/activity",
		SSO:              "https://sso.garmin.com/sso",
		WebHost:          "https://connect.garmin.com",
		Signin:           "https://connect.garmin.com/en-US/signin",
		CSS:              "https://static.garmincdn.com/com.garmin.connect/ui/css/gauth-custom-v1.2-min.css",
	}
}

// DefaultLedgerPath is where the export ledger lives unless overridden.
func DefaultLedgerPath() string {
	return filepath.Join(xdg.DataHome, "garminexport", "ledger.db")
}

// Load reads .env (if present) and the environment into a Config, applying
// defaults for anything unset. GARMIN_URLS_FILE may name a YAML file whose
// top-level "urls" map overrides individual endpoints.
func Load() (Config, error) {
	// A missing .env is normal; the process environment is used as is.
	_ = godotenv.Load()

	cfg := Config{
		Username:    getEnv("GARMIN_USERNAME", ""),
		Password:    getEnv("GARMIN_PASSWORD", ""),
		URLs:        DefaultURLs(),
		HTTPTimeout: getDurationEnv("GARMIN_HTTP_TIMEOUT", 30*time.Second),
		MaxTries:    getIntEnv("GARMIN_MAX_TRIES", 3),
		PageSize:    getIntEnv("GARMIN_PAGE_SIZE", MaxPageSize),
		LedgerPath:  getEnv("GARMIN_LEDGER_PATH", DefaultLedgerPath()),
		HTTPAddress: getEnv("GARMIN_HTTP_ADDR", ":8888"),
	}
	if cfg.PageSize <= 0 || cfg.PageSize > MaxPageSize {
		cfg.PageSize = MaxPageSize
	}
	if cfg.MaxTries <= 0 {
		cfg.MaxTries = 3
	}

	if path := getEnv("GARMIN_URLS_FILE", ""); path != "" {
		urls, err := LoadURLs(path, cfg.URLs)
		if err != nil {
			return Config{}, err
		}
		cfg.URLs = urls
	}
	return cfg, nil
}

// LoadURLs overlays the "urls" map of a YAML settings file onto base.
func LoadURLs(path string, base URLs) (URLs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return URLs{}, fmt.Errorf("failed to read url settings: %w", err)
	}
	doc := struct {
		URLs yaml.Node `yaml:"urls"`
	}{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return URLs{}, fmt.Errorf("failed to parse url settings %s: %w", path, err)
	}
	if doc.URLs.Kind == 0 {
		return base, nil
	}
	// Decoding onto a copy keeps defaults for keys the file leaves out.
	out := base
	if err := doc.URLs.Decode(&out); err != nil {
		return URLs{}, fmt.Errorf("failed to decode urls in %s: %w", path, err)
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
