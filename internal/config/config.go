package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env            string        `yaml:"env" env-required:"true"`
	StoragePath    string        `yaml:"storage_path" env-required:"true"`
	TokenTTL       time.Duration `yaml:"token_ttl" env-default:"12h"`
	MigrateOnStart bool          `yaml:"migrate_on_start" env-default:"false"`
	HTTPServer     `yaml:"http_server"`
	Media          `yaml:"media"`
	Gateway        `yaml:"gateway"`
	Correlation    `yaml:"correlation"`
	Invites        `yaml:"invites"`
}

type HTTPServer struct {
	Address        string        `yaml:"address" env-default:"localhost:8080"`
	Timeout        time.Duration `yaml:"timeout" env-default:"4s"`
	ProcessTimeout time.Duration `yaml:"process_timeout" env-default:"2m"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	TmpDir         string        `yaml:"tmp_dir" env-default:"./tmp"`
	BodyLimit      int           `yaml:"body_limit" env-default:"1073741824"`
}

type Media struct {
	Root string `yaml:"root" env-default:"./media"`
}

// Gateway configures remote segment suggestions.
// Empty URL disables the gateway.
type Gateway struct {
	URL     string        `yaml:"url" env:"AI_GATEWAY_URL"`
	Token   string        `yaml:"token" env:"AI_GATEWAY_TOKEN"`
	Timeout time.Duration `yaml:"timeout" env-default:"20s"`
}

type Correlation struct {
	ScopeToGame bool `yaml:"scope_to_game" env-default:"false"`
}

type Invites struct {
	CodeLength int `yaml:"code_length" env-default:"8"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
// Default value is empty string.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
