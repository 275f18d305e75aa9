// Package config provides centralized default values for ExamGuard
package config

import (
	"bufio"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		file, err := os.Open(".env")
		if err != nil {
			return
		}
		defer file.Close()

		log.Println("Loading configuration overrides from .env file...")
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())

			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%.2f (default: %.2f)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	FrontendURL        string

	// Identity
	JWTSecret           string
	OperatorPasskeyHash string

	// Database
	DBDriver                 string
	DBPath                   string
	DBURL                    string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	DBConnMaxIdleMinutes     int
	SlowQueryThreshold       time.Duration

	// Session Registry
	HeartbeatTimeout       time.Duration
	HeartbeatSweepInterval time.Duration
	TerminatedRetention    time.Duration

	// Classifier Thresholds
	LoudnessThresholdDBFS float64
	GazeRatioThreshold    float64

	// Broadcast Hub
	ObserverSendBuffer     int
	ObserverWriteWait      time.Duration
	ObserverPongWait       time.Duration
	ObserverPingInterval   time.Duration
	ObserverMaxMessageSize int64

	// Analysis Collaborators
	FaceAnalyzerURL     string
	FaceAnalyzerTimeout time.Duration
	AAIAPIKey           string

	// Evidence Storage
	EvidenceDir         string
	SnapshotMaxWidth    int
	SnapshotWebPQuality float32

	// Alert Escalation
	ResendAPIKey   string
	EscalationFrom string
	EscalationTo   string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	FrontendURL = getEnvString("FRONTEND_URL", "http://localhost:3000")

	// Identity
	JWTSecret = getEnvString("JWT_SECRET_KEY", "dev-secret-key-change-in-production")
	OperatorPasskeyHash = getEnvString("OPERATOR_PASSKEY_HASH", "")

	// Database
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBPath = getEnvString("DB_PATH", "examguard.db")
	DBURL = getEnvString("DB_URL", "")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	DBConnMaxIdleMinutes = getEnvInt("DB_CONN_MAX_IDLE_MINUTES", 3)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 50*time.Millisecond)

	// Session Registry
	HeartbeatTimeout = getEnvDuration("HEARTBEAT_TIMEOUT", 90*time.Second)
	HeartbeatSweepInterval = getEnvDuration("HEARTBEAT_SWEEP_INTERVAL", 30*time.Second)
	TerminatedRetention = getEnvDuration("TERMINATED_RETENTION", time.Hour)

	// Classifier Thresholds
	LoudnessThresholdDBFS = getEnvFloat("LOUDNESS_THRESHOLD_DBFS", -10.0)
	GazeRatioThreshold = getEnvFloat("GAZE_RATIO_THRESHOLD", 0.35)

	// Broadcast Hub
	ObserverSendBuffer = getEnvInt("OBSERVER_SEND_BUFFER", 64)
	ObserverWriteWait = getEnvDuration("OBSERVER_WRITE_WAIT", 10*time.Second)
	ObserverPongWait = getEnvDuration("OBSERVER_PONG_WAIT", 60*time.Second)
	ObserverPingInterval = getEnvDuration("OBSERVER_PING_INTERVAL", 54*time.Second)
	ObserverMaxMessageSize = int64(getEnvInt("OBSERVER_MAX_MESSAGE_SIZE", 1024))

	// Analysis Collaborators
	FaceAnalyzerURL = getEnvString("FACE_ANALYZER_URL", "http://localhost:5001")
	FaceAnalyzerTimeout = getEnvDuration("FACE_ANALYZER_TIMEOUT", 10*time.Second)
	AAIAPIKey = getEnvString("AAI_API_KEY", "")

	// Evidence Storage
	EvidenceDir = getEnvString("EVIDENCE_DIR", "evidence")
	SnapshotMaxWidth = getEnvInt("SNAPSHOT_MAX_WIDTH", 640)
	SnapshotWebPQuality = float32(getEnvFloat("SNAPSHOT_WEBP_QUALITY", 80))

	// Alert Escalation
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	EscalationFrom = getEnvString("ESCALATION_EMAIL_FROM", "alerts@examguard.local")
	EscalationTo = getEnvString("ESCALATION_EMAIL_TO", "")
}
