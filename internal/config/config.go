package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	auth "github.com/mind-engage/mindengage-lingua/internal/auth/middleware"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Env      string
	Mode     Mode
	HTTPAddr string
	SiteID   string

	DBDriver string
	DBDSN    string

	AuthSecret      string
	EnableLocalAuth bool
	AdminUser       string
	AdminPassHash   string // bcrypt

	CORSOrigins []string

	RollbarToken string
	Build        string

	ShutdownTimeout time.Duration
}

// FromEnv reads the process environment, after loading .env.<env> and .env
// from the working directory when present. Real environment variables win.
func FromEnv() Config {
	env := strings.ToLower(os.Getenv("ENV"))
	if env == "" {
		env = "dev"
	}
	for _, p := range []string{".env." + env, ".env"} {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err != nil {
				log.Fatalf("config: godotenv(%s): %v", p, err)
			}
		}
	}
	return fromViper(newViper(), env)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("MODE", string(ModeOffline))
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("SITE_ID", "local")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("AUTH_HMAC_SECRET", "supersecret-dev-key")
	v.SetDefault("ADMIN_USER", "admin")
	v.SetDefault("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("ROLLBAR_TOKEN", "")
	v.SetDefault("BUILD", "dev")
	v.SetDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper, env string) Config {
	mode := Mode(strings.ToLower(v.GetString("MODE")))
	if mode != ModeOnline {
		mode = ModeOffline
	}
	localAuth := mode == ModeOffline
	if v.IsSet("ENABLE_LOCAL_AUTH") {
		localAuth = v.GetBool("ENABLE_LOCAL_AUTH")
	}
	return Config{
		Env:             env,
		Mode:            mode,
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		SiteID:          v.GetString("SITE_ID"),
		DBDriver:        v.GetString("DB_DRIVER"),
		DBDSN:           v.GetString("DB_DSN"),
		AuthSecret:      v.GetString("AUTH_HMAC_SECRET"),
		EnableLocalAuth: localAuth,
		AdminUser:       v.GetString("ADMIN_USER"),
		AdminPassHash:   v.GetString("ADMIN_PASS_HASH"),
		CORSOrigins:     csv(v.GetString("CORS_ORIGINS")),
		RollbarToken:    v.GetString("ROLLBAR_TOKEN"),
		Build:           v.GetString("BUILD"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
}

// LocalLogin returns the /auth/login settings, or nil when local login is off.
// The admin hash has a default, so only EnableLocalAuth turns the route on.
func (c Config) LocalLogin() *auth.LocalLogin {
	if !c.EnableLocalAuth {
		return nil
	}
	return &auth.LocalLogin{
		AdminUser:     c.AdminUser,
		AdminPassHash: c.AdminPassHash,
		AllowDevUsers: true,
	}
}

func csv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
