package main

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"time"

	"github.com/raicesdev/bienesraices/internal/auth"
	"github.com/raicesdev/bienesraices/internal/email"
	"github.com/raicesdev/bienesraices/internal/email/mailgun"
	"github.com/raicesdev/bienesraices/internal/krypto"
	"github.com/raicesdev/bienesraices/internal/web"
)

// httpConfig is the configuration for the HTTP server.
type httpConfig struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	server          web.ServerConfig
}

// dbConfig is the configuration for the SQLite database.
type dbConfig struct {
	file    string
	migrate bool
}

// sessionConfig is the configuration for the session tokens.
type sessionConfig struct {
	key krypto.Key
	ttl time.Duration
}

// emailConfig is the configuration for outgoing email.
type emailConfig struct {
	driver  string
	from    email.Address
	mailgun mailgun.Settings
}

// config is the configuration for the server command.
type config struct {
	http       httpConfig
	db         dbConfig
	auth       auth.ServiceConfig
	session    sessionConfig
	email      emailConfig
	uploadsDir string
}

// defaultConfig returns a config with sane default values.
func defaultConfig() config {
	return config{
		http: httpConfig{
			addr:            ":8888",
			readTimeout:     time.Second * 5,
			writeTimeout:    time.Second * 10,
			idleTimeout:     time.Second * 120,
			shutdownTimeout: time.Second * 15,
			server: web.ServerConfig{
				SecureCookie: true,
			},
		},
		db: dbConfig{
			file:    "bienesraices.db",
			migrate: true,
		},
		auth: auth.ServiceConfig{
			WorkerTimeout: time.Second * 10,
			BaseURL:       mustURL("http://localhost:8888"),
		},
		session: sessionConfig{
			ttl: time.Hour * 24,
		},
		email: emailConfig{
			driver: "log",
			mailgun: mailgun.Settings{
				APIHost:  "api.mailgun.net",
				Username: "api",
			},
		},
		uploadsDir: "uploads",
	}
}

// requiredEnvKeys have no safe default, the server refuses to start
// without them.
var requiredEnvKeys = []string{
	"HTTP_CSRF_KEY",
	"SESSION_KEY",
	"EMAIL_FROM",
}

// envMap maps environment variable names to fields in the config struct.
var envMap = map[string]func(v string, c *config) error{
	"HTTP_ADDR": func(v string, c *config) error {
		c.http.addr = v
		return nil
	},
	"HTTP_READ_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.readTimeout, 0, math.MaxInt64)
	},
	"HTTP_WRITE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.writeTimeout, 0, math.MaxInt64)
	},
	"HTTP_IDLE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.idleTimeout, 0, math.MaxInt64)
	},
	"HTTP_SHUTDOWN_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.shutdownTimeout, 0, math.MaxInt64)
	},
	"HTTP_CSRF_KEY": func(v string, c *config) error {
		return confKey(v, &c.http.server.CSRFKey)
	},
	"HTTP_SECURE_COOKIE": func(v string, c *config) error {
		return confBool(v, &c.http.server.SecureCookie)
	},
	"BASE_URL": func(v string, c *config) error {
		return confURL(v, &c.auth.BaseURL)
	},
	"DB_FILENAME": func(v string, c *config) error {
		return confNonEmptyString(v, &c.db.file)
	},
	"DB_MIGRATE": func(v string, c *config) error {
		return confBool(v, &c.db.migrate)
	},
	"SESSION_KEY": func(v string, c *config) error {
		return confKey(v, &c.session.key)
	},
	"SESSION_TTL": func(v string, c *config) error {
		return confDuration(v, &c.session.ttl, time.Minute, math.MaxInt64)
	},
	"AUTH_WORKER_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.auth.WorkerTimeout, 0, math.MaxInt64)
	},
	"EMAIL_DRIVER": func(v string, c *config) error {
		if v != "log" && v != "mailgun" {
			return fmt.Errorf("unknown email driver %q", v)
		}
		c.email.driver = v
		return nil
	},
	"EMAIL_FROM": func(v string, c *config) error {
		return confAddress(v, &c.email.from)
	},
	"MAILGUN_API_HOST": func(v string, c *config) error {
		return confNonEmptyString(v, &c.email.mailgun.APIHost)
	},
	"MAILGUN_DOMAIN": func(v string, c *config) error {
		return confNonEmptyString(v, &c.email.mailgun.Domain)
	},
	"MAILGUN_API_KEY": func(v string, c *config) error {
		c.email.mailgun.Password = krypto.NewSecret(v)
		return nil
	},
	"UPLOADS_DIR": func(v string, c *config) error {
		return confNonEmptyString(v, &c.uploadsDir)
	},
}

// configFromEnv returns a config with values from the environment. It falls
// back to default values for any missing environment variables, except for
// the required ones.
//
// It does a best effort to validate provided values, so that mistakes are
// caught ASAP. However, there is no guarantee that the returned config
// is valid and will work.
func configFromEnv() (config, error) {
	c := defaultConfig()

	var errs []error

	for _, key := range requiredEnvKeys {
		if _, ok := os.LookupEnv(key); !ok {
			errs = append(errs, fmt.Errorf("missing required env variable %s", key))
		}
	}

	for key, mf := range envMap {
		if val, ok := os.LookupEnv(key); ok {
			if err := mf(val, &c); err != nil {
				errs = append(errs, fmt.Errorf("invalid env variable %s: %w", key, err))
			}
		}
	}

	return c, errors.Join(errs...)
}

// confDuration attempts to parse v into tgt and checks if the result is in
// the provided range (inclusive).
func confDuration(v string, tgt *time.Duration, min, max time.Duration) error {
	dur, err := time.ParseDuration(v)
	if err != nil {
		return err
	}

	if dur < min || dur > max {
		return fmt.Errorf("duration %s not in range [%s, %s] (inclusive)", dur, min, max)
	}

	*tgt = dur

	return nil
}

func confKey(v string, tgt *krypto.Key) error {
	key, err := krypto.ParseKey(v)
	if err != nil {
		return err
	}

	*tgt = key

	return nil
}

func confBool(v string, tgt *bool) error {
	switch v {
	case "true":
		*tgt = true
	case "false":
		*tgt = false
	default:
		return fmt.Errorf("invalid bool value %q", v)
	}

	return nil
}

func confURL(v string, tgt **url.URL) error {
	u, err := url.Parse(v)
	if err != nil {
		return err
	}

	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url %q is missing a scheme or host", v)
	}

	*tgt = u

	return nil
}

func confAddress(v string, tgt *email.Address) error {
	addr, err := email.ParseAddress(v)
	if err != nil {
		return err
	}

	*tgt = addr

	return nil
}

func confNonEmptyString(v string, tgt *string) error {
	if v == "" {
		return errors.New("value can't be empty")
	}

	*tgt = v

	return nil
}

func mustURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}
