package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Provider names understood by pkg/llm.
const (
	ProviderOllama   = "ollama"
	ProviderGoogleAI = "googleai"
)

// Retrieval backends.
const (
	BackendIndex    = "index"
	BackendPgvector = "pgvector"
)

type GoogleConfig struct {
	APIKey string `yaml:"api_key"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Language    string  `yaml:"language"`
}

type ParserConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

type EmbedderConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Dimension   int     `yaml:"dimension"`
	Concurrency int     `yaml:"concurrency"`
	RateLimit   float64 `yaml:"rate_limit"`
}

type ProcessorConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type IndexConfig struct {
	Path         string `yaml:"path"`
	MetadataPath string `yaml:"metadata_path"`
}

type CVConfig struct {
	Folder string `yaml:"folder"`
}

type RetrievalConfig struct {
	TopK    int    `yaml:"top_k"`
	Backend string `yaml:"backend"`
}

type DatabaseConfig struct {
	URL       string `yaml:"url"`
	TableName string `yaml:"table_name"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Google    GoogleConfig    `yaml:"google"`
	LLM       LLMConfig       `yaml:"llm"`
	Parser    ParserConfig    `yaml:"parser"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Processor ProcessorConfig `yaml:"processor"`
	Index     IndexConfig     `yaml:"index"`
	CV        CVConfig        `yaml:"cv"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/cvchat/config.yaml"),
			"/etc/cvchat/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

// Default returns a config with every default applied and no environment merged.
func Default() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = ProviderGoogleAI
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "gemini-2.0-flash-exp"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2048
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.3
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Language == "" {
		config.LLM.Language = "Vietnamese"
	}

	if config.Parser.Provider == "" {
		config.Parser.Provider = ProviderGoogleAI
	}
	if config.Parser.Model == "" {
		config.Parser.Model = "gemini-2.0-flash-exp"
	}
	if config.Parser.BaseURL == "" {
		config.Parser.BaseURL = "http://localhost:11434"
	}

	if config.Embedder.Provider == "" {
		config.Embedder.Provider = ProviderOllama
	}
	if config.Embedder.Model == "" {
		config.Embedder.Model = "mxbai-embed-large"
	}
	if config.Embedder.Dimension == 0 {
		config.Embedder.Dimension = 1024
	}
	if config.Embedder.Concurrency == 0 {
		config.Embedder.Concurrency = 1
	}
	if config.Embedder.BaseURL == "" {
		config.Embedder.BaseURL = "http://localhost:11434"
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 100
	}

	if config.Index.Path == "" {
		config.Index.Path = "cv_index.idx"
	}
	if config.Index.MetadataPath == "" {
		config.Index.MetadataPath = "cv_metadata.json"
	}

	if config.CV.Folder == "" {
		config.CV.Folder = "cv"
	}

	if config.Retrieval.TopK == 0 {
		config.Retrieval.TopK = 5
	}
	if config.Retrieval.Backend == "" {
		config.Retrieval.Backend = BackendIndex
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "cv_chunks"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8000"
	}
	if config.Server.MaxUploadMB == 0 {
		config.Server.MaxUploadMB = 20
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

func mergeWithEnv(config *Config) {
	if apiKey := os.Getenv("GOOGLE_API_KEY"); apiKey != "" {
		config.Google.APIKey = apiKey
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
		config.Parser.BaseURL = baseURL
		config.Embedder.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if folder := os.Getenv("CV_FOLDER"); folder != "" {
		config.CV.Folder = folder
	}
	if level := os.Getenv("CVCHAT_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
