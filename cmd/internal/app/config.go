package app

import "time"

// DefaultCORSOrigins are the production site origins plus the local dev server.
var DefaultCORSOrigins = []string{
	"http://getcanvapro.in",
	"https://getcanvapro.in",
	"http://www.getcanvapro.in",
	"https://www.getcanvapro.in",
	"http://localhost:3000",
}

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string // "json" or "pretty"

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// Backend selection: MongoURI wins over DatabaseURL; neither means in-memory.
	MongoURI      string
	MongoDatabase string

	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	DBAutoMigrate bool

	// If true, /readyz returns 503 unless a database is configured and reachable.
	ReadinessRequireDB bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	StaticDir string

	UploadDir      string
	MaxResumeBytes int64

	PromoLinksFile string
	GateAdDelay    time.Duration
	GateResetDelay time.Duration
	GateFollowURL  string

	// AdminToken enables GET /api/internship/applications when non-empty.
	AdminToken string

	MetricsEnabled bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("GETCANVAPRO_HTTP_ADDR", "0.0.0.0:3000"),
		LogLevel:  EnvString("GETCANVAPRO_LOG_LEVEL", "info"),
		LogFormat: EnvString("GETCANVAPRO_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("GETCANVAPRO_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("GETCANVAPRO_HTTP_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:      EnvDuration("GETCANVAPRO_HTTP_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       EnvDuration("GETCANVAPRO_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("GETCANVAPRO_HTTP_MAX_HEADER_BYTES", 1<<20),

		MongoURI:      EnvString("MONGODB_URI", ""),
		MongoDatabase: EnvString("GETCANVAPRO_MONGODB_DATABASE", "getcanvapro"),

		DatabaseURL:   EnvString("GETCANVAPRO_DATABASE_URL", ""),
		DBMaxConns:    EnvInt32("GETCANVAPRO_DB_MAX_CONNS", 10),
		DBMinConns:    EnvInt32("GETCANVAPRO_DB_MIN_CONNS", 0),
		DBAutoMigrate: EnvBool("GETCANVAPRO_DB_AUTO_MIGRATE", true),

		ReadinessRequireDB: EnvBool("GETCANVAPRO_READINESS_REQUIRE_DB", false),

		CORSAllowedOrigins:   EnvCSV("GETCANVAPRO_CORS_ALLOWED_ORIGINS", DefaultCORSOrigins),
		CORSAllowCredentials: EnvBool("GETCANVAPRO_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("GETCANVAPRO_CORS_MAX_AGE_SECONDS", 600),

		StaticDir: EnvString("GETCANVAPRO_STATIC_DIR", "public"),

		UploadDir:      EnvString("GETCANVAPRO_UPLOAD_DIR", "uploads"),
		MaxResumeBytes: EnvInt64("GETCANVAPRO_MAX_RESUME_BYTES", 5<<20),

		PromoLinksFile: EnvString("GETCANVAPRO_PROMO_LINKS_FILE", ""),
		GateAdDelay:    EnvDuration("GETCANVAPRO_GATE_AD_DELAY", 2*time.Second),
		GateResetDelay: EnvDuration("GETCANVAPRO_GATE_RESET_DELAY", 300*time.Millisecond),
		GateFollowURL:  EnvString("GETCANVAPRO_GATE_FOLLOW_URL", "https://www.instagram.com/tridev.maurya/"),

		AdminToken: EnvString("GETCANVAPRO_ADMIN_TOKEN", ""),

		MetricsEnabled: EnvBool("GETCANVAPRO_METRICS_ENABLED", true),
	}
}

// Backend names the persistence backend Config selects.
func (c Config) Backend() string {
	switch {
	case c.MongoURI != "":
		return "mongo"
	case c.DatabaseURL != "":
		return "postgres"
	default:
		return "memory"
	}
}
