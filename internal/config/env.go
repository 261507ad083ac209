package config

import (
    "os"
    "path/filepath"
    "strconv"
    "strings"
    "time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level        string
    Pretty       bool
    File         string
    MaxSizeMB    int
    MaxBackups   int
    MaxAgeDays   int
    Compress     bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// OCRConfig defines extraction defaults and hard caps.
type OCRConfig struct {
    DefaultLanguage string
    DefaultMaxPages int
    MaxPagesCap     int
    DefaultDPI      int
    DPICap          int
}

// HTTPConfig defines the server surface and input limits.
type HTTPConfig struct {
    Port           string
    MaxBodyBytes   int64
    FetchTimeout   time.Duration
    SafeRoot       string
    TempSweepAge   time.Duration
    TempSweepEvery time.Duration
}

// Config is the top-level configuration.
type Config struct {
    Logging LoggingConfig
    Axiom   AxiomConfig
    OCR     OCRConfig
    HTTP    HTTPConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    // Logging defaults
    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/ocrapi.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    // Axiom defaults
    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_ocrapi",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    // OCR defaults
    cfg.OCR = OCRConfig{
        DefaultLanguage: getEnv("OCR_LANG_DEFAULT", "eng"),
        DefaultMaxPages: parseInt(getEnv("OCR_MAX_PAGES_DEFAULT", "10"), 10),
        MaxPagesCap:     parseInt(getEnv("OCR_MAX_PAGES_CAP", "20"), 20),
        DefaultDPI:      parseInt(getEnv("OCR_DPI_DEFAULT", "200"), 200),
        DPICap:          parseInt(getEnv("OCR_DPI_CAP", "300"), 300),
    }

    // HTTP defaults
    cfg.HTTP = HTTPConfig{
        Port:           getEnv("PORT", "8080"),
        MaxBodyBytes:   int64(parseInt(getEnv("MAX_UPLOAD_MB", "16"), 16)) << 20,
        FetchTimeout:   parseDuration(getEnv("FETCH_TIMEOUT", "60s"), 60*time.Second),
        SafeRoot:       resolveSafeRoot(getEnv("SAFE_ROOT", "pdfs")),
        TempSweepAge:   parseDuration(getEnv("TEMP_SWEEP_AGE", "1h"), time.Hour),
        TempSweepEvery: parseDuration(getEnv("TEMP_SWEEP_EVERY", "30m"), 30*time.Minute),
    }

    return cfg
}

// resolveSafeRoot canonicalizes the local-path root once at startup.
// The resolver compares candidate paths against this value, so it must
// already be symlink-free and absolute.
func resolveSafeRoot(dir string) string {
    abs, err := filepath.Abs(dir)
    if err != nil { return dir }
    if resolved, err := filepath.EvalSymlinks(abs); err == nil {
        return resolved
    }
    return abs
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
