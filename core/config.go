package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env                       string
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		SendgridApiKey            string
		RollbarToken              string
		WorkDir                   string
		PasswordResetTimeoutDelta time.Duration
		defaultFromEmail          string

		Server   ServerConfig
		Database DatabaseConfig
		OTP      OTPConfig
		Media    MediaConfig
		Shell    ShellConfig
		Jobs     JobsConfig
	}

	ServerConfig struct {
		Address            string
		DebugHost          string
		Host               string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		CookieName         string
		CookieSecure       bool
		HydrationTimeout   time.Duration
		LoginRateLimit     int
		CORSAllowOrigins   []string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	OTPConfig struct {
		Length      int
		TTL         time.Duration
		MaxAttempts int
	}

	MediaConfig struct {
		Dir           string
		MaxUploadSize int64
	}

	ShellConfig struct {
		Breakpoint int
	}

	JobsConfig struct {
		PurgeSpec string
	}
)

// NewConfig loads the app configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed by the ENV name, e.g. `PROD_SECRETKEY`, `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Madrasa")
	v.SetDefault("secretKey", "h8#k2vq!x9-3fj$u0p+wz_mde4r7(c1t&y6a)o5n=lbs")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Madrasa <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.cookieName", "session")
	v.SetDefault("server.cookieSecure", false)
	v.SetDefault("server.hydrationTimeout", 3*time.Second)
	v.SetDefault("server.loginRateLimit", 30)
	v.SetDefault("server.corsAllowOrigins", []string{"http://localhost:3000"})

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "madrasa")
	v.SetDefault("database.user", "madrasa")
	v.SetDefault("database.password", "madrasa")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("otp.length", 6)
	v.SetDefault("otp.ttl", 10*time.Minute)
	v.SetDefault("otp.maxAttempts", 5)

	v.SetDefault("media.dir", "media")
	v.SetDefault("media.maxUploadSize", int64(10<<20))

	v.SetDefault("shell.breakpoint", 1024)

	v.SetDefault("jobs.purgeSpec", "@every 1h")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "QA", "PROD":
		v.SetDefault("debug", false)
		v.SetDefault("server.cookieSecure", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		WorkDir:                   workDir,
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Address:            v.GetString("server.address"),
			DebugHost:          v.GetString("server.debugHost"),
			Host:               v.GetString("server.host"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			CookieName:         v.GetString("server.cookieName"),
			CookieSecure:       v.GetBool("server.cookieSecure"),
			HydrationTimeout:   v.GetDuration("server.hydrationTimeout"),
			LoginRateLimit:     v.GetInt("server.loginRateLimit"),
			CORSAllowOrigins:   v.GetStringSlice("server.corsAllowOrigins"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		OTP: OTPConfig{
			Length:      v.GetInt("otp.length"),
			TTL:         v.GetDuration("otp.ttl"),
			MaxAttempts: v.GetInt("otp.maxAttempts"),
		},
		Media: MediaConfig{
			Dir:           v.GetString("media.dir"),
			MaxUploadSize: v.GetInt64("media.maxUploadSize"),
		},
		Shell: ShellConfig{
			Breakpoint: v.GetInt("shell.breakpoint"),
		},
		Jobs: JobsConfig{
			PurgeSpec: v.GetString("jobs.purgeSpec"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: no env lookups, short durations.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		AppName:                   "Madrasa",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		defaultFromEmail:          "Madrasa <noreply@localhost>",
		Server: ServerConfig{
			Address:            ":0",
			Host:               "localhost",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
			CookieName:         "session",
			HydrationTimeout:   200 * time.Millisecond,
			LoginRateLimit:     1000,
		},
		OTP: OTPConfig{
			Length:      6,
			TTL:         10 * time.Minute,
			MaxAttempts: 3,
		},
		Media: MediaConfig{
			Dir:           os.TempDir(),
			MaxUploadSize: 1 << 20,
		},
		Shell: ShellConfig{
			Breakpoint: 1024,
		},
		Jobs: JobsConfig{
			PurgeSpec: "@every 1h",
		},
	}
}

// DefaultFromEmail parses the configured sender address; it falls back to the bare value as address.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	return *addr
}

// Address returns the `host:port` of the database server.
func (db DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", db.Host, db.Port)
}
