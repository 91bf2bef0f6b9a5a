package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config 应用配置
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string

	Ingest IngestConfig
	Dwell  DwellConfig
	Engine EngineConfig

	ProcessInterval time.Duration // Background processing cadence
	ProcessTimeout  time.Duration // Per-device batch timeout
}

// IngestConfig holds the hot-path thresholds applied at ingestion time.
type IngestConfig struct {
	// Change detection: a ping is emitted downstream when any one of these
	// is exceeded relative to the last emitted ping.
	MinDistanceM  float64 // meters
	MinTimeS      float64 // seconds
	MinSpeedKmh   float64 // km/h delta
	MinBearingDeg float64 // degrees, circular

	DedupTTL       time.Duration // How long a ping tuple stays "seen"
	StaleThreshold time.Duration // Max client-to-server age before a ping is stale
}

// DwellConfig holds the ad-hoc dwell/drive analyzer thresholds.
type DwellConfig struct {
	RadiusM          float64       // Dwell anchor radius
	MinDuration      time.Duration // Minimum dwell span
	SimplifyEpsilonM float64       // RDP epsilon for drive polylines
}

// EngineConfig holds the canonical session engine thresholds.
type EngineConfig struct {
	MaxAccuracyM float64       // Quality gate: pings above this are skipped
	MaxSpeedKmh  float64       // Quality gate: faster pings count as in motion
	MaxGap       time.Duration // Gap that closes a candidate session
	MinDuration  time.Duration // Sessions shorter than this are dropped
	MergeGap     time.Duration // Max gap between adjacent sessions to merge
	MergeRadiusM float64       // Max centroid distance to merge
}

// Load 加载配置
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/mytrip.db"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-in-production"
	}

	return &Config{
		Port:      port,
		DBPath:    dbPath,
		JWTSecret: jwtSecret,
		Ingest: IngestConfig{
			MinDistanceM:   envFloat("CHANGE_MIN_DISTANCE_M", 20),
			MinTimeS:       envFloat("CHANGE_MIN_TIME_S", 300),
			MinSpeedKmh:    envFloat("CHANGE_MIN_SPEED_KMH", 5),
			MinBearingDeg:  envFloat("CHANGE_MIN_BEARING_DEG", 15),
			DedupTTL:       envDuration("DEDUP_TTL", 300*time.Second),
			StaleThreshold: envDuration("STALE_THRESHOLD", 300*time.Second),
		},
		Dwell: DwellConfig{
			RadiusM:          envFloat("DWELL_RADIUS_M", 50),
			MinDuration:      envDuration("DWELL_MIN_DURATION", 300*time.Second),
			SimplifyEpsilonM: envFloat("SIMPLIFY_EPSILON_M", 10),
		},
		Engine: EngineConfig{
			MaxAccuracyM: envFloat("ENGINE_MAX_ACCURACY_M", 100),
			MaxSpeedKmh:  envFloat("ENGINE_MAX_SPEED_KMH", 5),
			MaxGap:       envDuration("ENGINE_MAX_GAP", time.Hour),
			MinDuration:  envDuration("ENGINE_MIN_DURATION", 60*time.Second),
			MergeGap:     envDuration("ENGINE_MERGE_GAP", 300*time.Second),
			MergeRadiusM: envFloat("ENGINE_MERGE_RADIUS_M", 30),
		},
		ProcessInterval: envDuration("PROCESS_INTERVAL", 5*time.Minute),
		ProcessTimeout:  envDuration("PROCESS_TIMEOUT", 2*time.Minute),
	}
}

// Validate fails fast on threshold values the pipeline cannot run with.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"change min distance", c.Ingest.MinDistanceM > 0},
		{"change min time", c.Ingest.MinTimeS > 0},
		{"change min speed", c.Ingest.MinSpeedKmh > 0},
		{"change min bearing", c.Ingest.MinBearingDeg > 0},
		{"dedup ttl", c.Ingest.DedupTTL > 0},
		{"stale threshold", c.Ingest.StaleThreshold > 0},
		{"dwell radius", c.Dwell.RadiusM > 0},
		{"dwell min duration", c.Dwell.MinDuration > 0},
		{"simplify epsilon", c.Dwell.SimplifyEpsilonM > 0},
		{"engine max accuracy", c.Engine.MaxAccuracyM > 0},
		{"engine max speed", c.Engine.MaxSpeedKmh > 0},
		{"engine max gap", c.Engine.MaxGap > 0},
		{"engine min duration", c.Engine.MinDuration > 0},
		{"engine merge gap", c.Engine.MergeGap > 0},
		{"engine merge radius", c.Engine.MergeRadiusM > 0},
	}

	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("invalid configuration: %s must be positive", check.name)
		}
	}
	return nil
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
