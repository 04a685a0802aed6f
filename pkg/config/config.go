package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Model      ModelConfig
	Guidelines GuidelinesConfig
	Literature LiteratureConfig
	Web        WebConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host              string
	Port              int
	ReadTimeout       int
	WriteTimeout      int
	BodyLimit         int
	MaxQueryLength    int
	RequestsPerMinute int
}

type ModelConfig struct {
	Host       string
	Name       string
	TimeoutSec int
}

type GuidelinesConfig struct {
	Dir         string
	RoutePrefix string
}

type LiteratureConfig struct {
	EutilsBaseURL  string
	ArticleBaseURL string
	APIKey         string
	TimeoutSec     int
}

type WebConfig struct {
	Dir string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/guideline-agent")

	viper.SetEnvPrefix("GUIDELINE_AGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 180)
	viper.SetDefault("server.bodyLimit", 1048576)
	viper.SetDefault("server.maxQueryLength", 2000)
	viper.SetDefault("server.requestsPerMinute", 60)

	viper.SetDefault("model.host", "http://localhost:11434")
	viper.SetDefault("model.name", "llama3.1:8b")
	viper.SetDefault("model.timeoutSec", 120)

	viper.SetDefault("guidelines.dir", "./guidelines")
	viper.SetDefault("guidelines.routePrefix", "/guidelines")

	viper.SetDefault("literature.eutilsBaseURL", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	viper.SetDefault("literature.articleBaseURL", "https://pubmed.ncbi.nlm.nih.gov")
	// Registered empty so the env override binds without a config file.
	viper.SetDefault("literature.apiKey", "")
	viper.SetDefault("literature.timeoutSec", 10)

	viper.SetDefault("web.dir", "./web")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
