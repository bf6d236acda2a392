package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	APIConfig struct {
		BaseURL string        `mapstructure:"baseurl"`
		Key     string        `mapstructure:"key"`
		Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	}

	StorageConfig struct {
		Engine string `mapstructure:"engine" validate:"oneof=sqlite postgres"`
		DSN    string `mapstructure:"dsn" validate:"required"`
		Prefix string `mapstructure:"prefix" validate:"required"`
	}

	SyncConfig struct {
		FlushInterval time.Duration `mapstructure:"flushinterval" validate:"gt=0"`
	}

	Config struct {
		AppName      string `mapstructure:"appname"`
		Env          string `mapstructure:"-"`
		Build        string `mapstructure:"build"`
		Debug        bool   `mapstructure:"debug"`
		TestMode     bool   `mapstructure:"testmode"`
		RollbarToken string `mapstructure:"rollbartoken"`

		API     APIConfig     `mapstructure:"api"`
		Storage StorageConfig `mapstructure:"storage"`
		Sync    SyncConfig    `mapstructure:"sync"`
	}
)

// LoadConfig reads the configuration for the current ENV (DEV by default) from,
// in order of precedence: environment variables (ROLLCALL_API_KEY, ...), the
// optional config file named by ROLLCALL_CONFIG, `config/.env.<env>` and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetDefault("appName", "Rollcall")
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("api.baseURL", "")
	v.SetDefault("api.key", "")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("storage.engine", "sqlite")
	v.SetDefault("storage.dsn", "rollcall.db")
	v.SetDefault("storage.prefix", "rollcall")
	v.SetDefault("sync.flushInterval", 2*time.Minute)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}

	if path := os.Getenv("ROLLCALL_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
	}

	v.SetEnvPrefix("rollcall")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	conf.Env = env
	conf.API.BaseURL = strings.TrimRight(CleanString(conf.API.BaseURL), "/")
	conf.API.Key = CleanString(conf.API.Key)

	if err := Validate.Struct(conf); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return conf, nil
}
