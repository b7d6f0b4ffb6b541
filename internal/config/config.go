// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	Host        string // HOST — base hostname used to mint IRIs (required)
	Port        string // PORT
	TLSCertPath string // TLS_CERT — if unset, serves plain HTTP (dev mode)
	TLSKeyPath  string // TLS_KEY
	DatabaseURL string // DATABASE_URL
	RSAKeyDir   string // RSA_PRIVATE_KEY_DIR — read but not used; actor keys are stored in the accounts table
	OpsPassword string // OPS_PASSWORD — enables /ops/* when set
	LogLevel    string // LOG_LEVEL

	PageSize            int           // PAGE_SIZE — OrderedCollectionPage capacity
	DeliveryWorkers     int           // DELIVERY_WORKERS
	DeliveryMaxAttempts int           // DELIVERY_MAX_ATTEMPTS
	DeliveryCBThreshold int           // DELIVERY_CB_THRESHOLD
	FederationTimeout   time.Duration // FEDERATION_TIMEOUT
}

// OpsEnabled returns true if the read-only operations surface is enabled.
func (c *Config) OpsEnabled() bool {
	return c.OpsPassword != ""
}

// Load reads configuration from environment variables.
// Exits the process if HOST is missing.
func Load() *Config {
	host := os.Getenv("HOST")
	if host == "" {
		fmt.Fprintln(os.Stderr, "ERROR: HOST is not set!")
		fmt.Fprintln(os.Stderr, "Set it to the public base URL this instance mints IRIs under, e.g. https://example.social")
		os.Exit(1)
	}

	return &Config{
		Host:        host,
		Port:        getEnv("PORT", "8000"),
		TLSCertPath: os.Getenv("TLS_CERT"),
		TLSKeyPath:  os.Getenv("TLS_KEY"),
		DatabaseURL: getEnv("DATABASE_URL", "onepagepub.db"),
		RSAKeyDir:   getEnv("RSA_PRIVATE_KEY_DIR", "./keys"),
		OpsPassword: os.Getenv("OPS_PASSWORD"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		PageSize:            parseInt(os.Getenv("PAGE_SIZE"), 20),
		DeliveryWorkers:     parseInt(os.Getenv("DELIVERY_WORKERS"), 10),
		DeliveryMaxAttempts: parseInt(os.Getenv("DELIVERY_MAX_ATTEMPTS"), 8),
		DeliveryCBThreshold: parseInt(os.Getenv("DELIVERY_CB_THRESHOLD"), 5),
		FederationTimeout:   parseDuration(os.Getenv("FEDERATION_TIMEOUT"), 30*time.Second),
	}
}

// URL returns the parsed Host as a *url.URL.
func (c *Config) URL() *url.URL {
	u, _ := url.Parse(c.Host)
	return u
}

// IRI constructs an absolute IRI from a path rooted at Host.
func (c *Config) IRI(path string) string {
	return strings.TrimRight(c.Host, "/") + path
}

// MintID implements §4.1's ID-minting rule: base + "/" + type_lowercase +
// "/" + random_token, used for every freshly created object, activity,
// actor, collection, and key.
func (c *Config) MintID(docType, token string) string {
	return strings.TrimRight(c.Host, "/") + "/" + strings.ToLower(docType) + "/" + token
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return i
}
