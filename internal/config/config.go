package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
)

// Config holds the runtime configuration for the server. Each field
// corresponds to an environment variable; required variables are
// enforced by must() and abort startup when missing.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	JWTSecret    string // secret used to sign admin JWTs
	AccessTTLMin int    // admin access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for admin password hashing
	AdminEmail   string // seed admin account email (optional; empty skips seeding)
	AdminPass    string // seed admin account password (optional)

	StoreName    string // shop name used in conversational replies
	StoreAddress string // shop address for the hours/info message
	StorePhone   string // shop phone for the hours/info message
}

// Load reads configuration from the environment. Missing required
// variables cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"), // empty allowed
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   mustInt("BCRYPT_COST"),
		AdminEmail:   os.Getenv("ADMIN_EMAIL"),
		AdminPass:    os.Getenv("ADMIN_PASSWORD"),
		StoreName:    envStr("STORE_NAME", "Magokoro Onigiri"),
		StoreAddress: envStr("STORE_ADDRESS", "1-1-15 Kuge, Kazo, Saitama 347-0105"),
		StorePhone:   envStr("STORE_PHONE", "0480-XX-XXXX"),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
