package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database backends
const (
	DatabaseInMem     = "inmem"
	DatabaseBolt      = "bolt"
	DatabaseFirestore = "firestore"
)

type (
	serverConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	databaseConfig struct {
		Engine   string
		BoltPath string
	}

	firebaseConfig struct {
		ProjectID       string
		CredentialsFile string
	}

	redisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	b2Config struct {
		Account string
		Key     string
		Bucket  string
	}

	Config struct {
		Env      string
		Debug    bool
		TestMode bool
		Build    string
		AppName  string

		SecretKey            string
		FrontendBaseURL      string
		DefaultFromEmail     mail.Address
		BootstrapEditorEmail string
		LegacyEditorPassword string
		MaxUploadBytes       int64
		SyncRetryDelay       time.Duration

		SendgridApiKey string
		RollbarToken   string

		Server   serverConfig
		Database databaseConfig
		Firebase firebaseConfig
		Redis    redisConfig
		B2       b2Config
	}
)

// NewConfig loads the configuration of the current environment (ENV: DEV, TEST, QA, PROD).
// Values are read from the environment, after loading config/.env.<env> if it exists.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "EBD Digital")
	conf.SetDefault("secretKey", "k2f8-9s0w)ebd$+33=yq&uo2h9(h!x)#*c7(#yg4h^$pofm4kzq")
	conf.SetDefault("frontendBaseUrl", "http://localhost:3000")
	conf.SetDefault("defaultFromName", "EBD Digital")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("bootstrapEditorEmail", "editor@ebd.com")
	conf.SetDefault("legacyEditorPassword", "")
	conf.SetDefault("maxUploadBytes", int64(1024*1024))
	conf.SetDefault("syncRetryDelay", 5*time.Second)
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("serverHost", "0.0.0.0:8000")
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("database", DatabaseBolt)
	conf.SetDefault("boltPath", "ebd.db")
	conf.SetDefault("firebaseProjectId", "")
	conf.SetDefault("firebaseCredentialsFile", "")
	conf.SetDefault("redisAddr", "")
	conf.SetDefault("redisPassword", "")
	conf.SetDefault("redisDb", 0)
	conf.SetDefault("b2Account", "")
	conf.SetDefault("b2Key", "")
	conf.SetDefault("b2Bucket", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
		conf.SetDefault("database", DatabaseInMem)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	conf.AutomaticEnv()

	return &Config{
		Env:      env,
		Debug:    conf.GetBool("debug"),
		TestMode: conf.GetBool("testMode"),
		Build:    conf.GetString("build"),
		AppName:  conf.GetString("appName"),

		SecretKey:       conf.GetString("secretKey"),
		FrontendBaseURL: conf.GetString("frontendBaseUrl"),
		DefaultFromEmail: mail.Address{
			Name:    conf.GetString("defaultFromName"),
			Address: conf.GetString("defaultFromEmail"),
		},
		BootstrapEditorEmail: CleanString(conf.GetString("bootstrapEditorEmail"), true /* lower */),
		LegacyEditorPassword: conf.GetString("legacyEditorPassword"),
		MaxUploadBytes:       conf.GetInt64("maxUploadBytes"),
		SyncRetryDelay:       conf.GetDuration("syncRetryDelay"),

		SendgridApiKey: conf.GetString("sendgridApiKey"),
		RollbarToken:   conf.GetString("rollbarToken"),

		Server: serverConfig{
			Host:                      conf.GetString("serverHost"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: databaseConfig{
			Engine:   conf.GetString("database"),
			BoltPath: conf.GetString("boltPath"),
		},
		Firebase: firebaseConfig{
			ProjectID:       conf.GetString("firebaseProjectId"),
			CredentialsFile: conf.GetString("firebaseCredentialsFile"),
		},
		Redis: redisConfig{
			Addr:     conf.GetString("redisAddr"),
			Password: conf.GetString("redisPassword"),
			DB:       conf.GetInt("redisDb"),
		},
		B2: b2Config{
			Account: conf.GetString("b2Account"),
			Key:     conf.GetString("b2Key"),
			Bucket:  conf.GetString("b2Bucket"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: in-memory database, no external services.
func NewTestConfig() *Config {
	return &Config{
		Env:                  "TEST",
		Debug:                false,
		TestMode:             true,
		Build:                "test",
		AppName:              "EBD Digital",
		SecretKey:            "test-secret",
		FrontendBaseURL:      "http://localhost:3000",
		DefaultFromEmail:     mail.Address{Name: "EBD Digital", Address: "noreply@localhost"},
		BootstrapEditorEmail: "editor@ebd.com",
		MaxUploadBytes:       1024 * 1024,
		SyncRetryDelay:       10 * time.Millisecond,
		Server: serverConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Database: databaseConfig{Engine: DatabaseInMem},
	}
}
