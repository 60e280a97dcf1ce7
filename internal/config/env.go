package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Capacity policies for bus check-in. "warn" admits over-capacity scans and
// logs them; "enforce" rejects them with a conflict.
const (
	CapacityWarn    = "warn"
	CapacityEnforce = "enforce"
)

type Env struct {
	AppAddr string
	GinMode string

	DBDSN string

	JWTSecret string

	GatewayKeyID   string
	GatewaySecret  string
	GatewayBaseURL string

	RedisAddr string

	SweepInterval     time.Duration
	PaymentPendingTTL time.Duration
	PaymentRetryLimit int
	CapacityPolicy    string

	CORSAllowedOrigins []string
}

func LoadEnv() Env {
	appAddr := strings.TrimSpace(os.Getenv("APP_ADDR"))
	if appAddr == "" {
		appAddr = ":8080"
	}

	dsn := strings.TrimSpace(os.Getenv("DB_DSN"))
	if dsn == "" {
		dsn = "root:@tcp(127.0.0.1:3306)/buspass?parseTime=true&loc=Local&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"
	}

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		secret = "super-secret-key-change-me"
	}

	policy := strings.ToLower(strings.TrimSpace(os.Getenv("CAPACITY_POLICY")))
	if policy != CapacityEnforce {
		policy = CapacityWarn
	}

	var origins []string
	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	return Env{
		AppAddr:            appAddr,
		GinMode:            strings.TrimSpace(os.Getenv("GIN_MODE")),
		DBDSN:              dsn,
		JWTSecret:          secret,
		GatewayKeyID:       strings.TrimSpace(os.Getenv("GATEWAY_KEY_ID")),
		GatewaySecret:      strings.TrimSpace(os.Getenv("GATEWAY_SECRET")),
		GatewayBaseURL:     strings.TrimSpace(os.Getenv("GATEWAY_BASE_URL")),
		RedisAddr:          strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		SweepInterval:      envDuration("SWEEP_INTERVAL", 15*time.Minute),
		PaymentPendingTTL:  envDuration("PAYMENT_PENDING_TTL", 48*time.Hour),
		PaymentRetryLimit:  envInt("PAYMENT_RETRY_LIMIT", 3),
		CapacityPolicy:     policy,
		CORSAllowedOrigins: origins,
	}
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
