package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Server
	ServerName    string
	ServerVersion string
	LogLevel      string

	// HTTP API
	HTTPAPIEnabled bool
	HTTPAPIPort    int

	// OpenAI
	OpenAIAPIKey  string
	OpenAIBaseURL string

	// Models
	LLMModel       string
	VisionModel    string
	EmbeddingModel string
	EmbeddingDim   int

	// Qdrant
	QdrantURL      string
	QdrantAPIKey   string
	CollectionName string

	// Storage
	RAGStorageDir string
	UploadDir     string
	MaxFileSizeMB int

	// Processing
	MaxConcurrentFiles int
	ChunkSize          int
	ChunkOverlap       int
	TopK               int
}

func Load(configPath string) (*Config, error) {
	// .env is optional; real env always wins
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/rag-anything-mcp")
		viper.AddConfigPath("/etc/rag-anything-mcp")
	}

	viper.SetDefault("server_name", "rag-anything")
	viper.SetDefault("server_version", "1.0.0")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("http_api_enabled", true)
	viper.SetDefault("http_api_port", 8080)

	viper.SetDefault("llm_model", "gpt-4o-mini")
	viper.SetDefault("vision_model", "gpt-4o")
	viper.SetDefault("embedding_model", "text-embedding-3-large")
	viper.SetDefault("embedding_dim", 3072)

	viper.SetDefault("qdrant_url", "localhost:6334")
	viper.SetDefault("collection_name", "rag_documents")

	viper.SetDefault("rag_storage_dir", "./rag_storage")
	viper.SetDefault("upload_dir", "./uploads")
	viper.SetDefault("max_file_size", 100) // MB

	viper.SetDefault("max_concurrent_files", 3)
	viper.SetDefault("chunk_size", 1000)
	viper.SetDefault("chunk_overlap", 200)
	viper.SetDefault("top_k", 5)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{
		ServerName:         viper.GetString("server_name"),
		ServerVersion:      viper.GetString("server_version"),
		LogLevel:           viper.GetString("log_level"),
		HTTPAPIEnabled:     viper.GetBool("http_api_enabled"),
		HTTPAPIPort:        viper.GetInt("http_api_port"),
		OpenAIAPIKey:       viper.GetString("openai_api_key"),
		OpenAIBaseURL:      viper.GetString("openai_base_url"),
		LLMModel:           viper.GetString("llm_model"),
		VisionModel:        viper.GetString("vision_model"),
		EmbeddingModel:     viper.GetString("embedding_model"),
		EmbeddingDim:       viper.GetInt("embedding_dim"),
		QdrantURL:          viper.GetString("qdrant_url"),
		QdrantAPIKey:       viper.GetString("qdrant_api_key"),
		CollectionName:     viper.GetString("collection_name"),
		RAGStorageDir:      viper.GetString("rag_storage_dir"),
		UploadDir:          viper.GetString("upload_dir"),
		MaxFileSizeMB:      viper.GetInt("max_file_size"),
		MaxConcurrentFiles: viper.GetInt("max_concurrent_files"),
		ChunkSize:          viper.GetInt("chunk_size"),
		ChunkOverlap:       viper.GetInt("chunk_overlap"),
		TopK:               viper.GetInt("top_k"),
	}

	// Override from env
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg.OpenAIAPIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.OpenAIBaseURL = baseURL
	}

	if err := cfg.applyModelProfile(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.RAGStorageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create RAG storage dir: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	return cfg, nil
}

// modelProfile is one named entry in the model profiles JSON.
type modelProfile struct {
	LLMModel       string `json:"llm_model"`
	VisionModel    string `json:"vision_model"`
	EmbeddingModel string `json:"embedding_model"`
	EmbeddingDim   int    `json:"embedding_dim"`
}

// applyModelProfile overlays a named profile selected by MODEL_PROFILE.
// Profiles come from the MODEL_PROFILES env var (inline JSON object) or
// from the file at MODEL_PROFILES_PATH.
func (c *Config) applyModelProfile() error {
	profileName := os.Getenv("MODEL_PROFILE")
	if profileName == "" {
		return nil
	}

	profiles, err := loadModelProfiles()
	if err != nil {
		return err
	}

	profile, ok := profiles[profileName]
	if !ok {
		return fmt.Errorf("MODEL_PROFILE %q not found in model profiles", profileName)
	}

	if profile.LLMModel != "" {
		c.LLMModel = profile.LLMModel
	}
	if profile.VisionModel != "" {
		c.VisionModel = profile.VisionModel
	}
	if profile.EmbeddingModel != "" {
		c.EmbeddingModel = profile.EmbeddingModel
	}
	if profile.EmbeddingDim > 0 {
		c.EmbeddingDim = profile.EmbeddingDim
	}

	return nil
}

func loadModelProfiles() (map[string]modelProfile, error) {
	var data []byte

	if inline := os.Getenv("MODEL_PROFILES"); inline != "" {
		data = []byte(inline)
	} else {
		path := os.Getenv("MODEL_PROFILES_PATH")
		if path == "" {
			path = "./model_profiles.json"
		}
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return map[string]modelProfile{}, nil
			}
			return nil, fmt.Errorf("failed to read model profiles: %w", err)
		}
		data = b
	}

	profiles := map[string]modelProfile{}
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("model profiles are not a valid JSON object: %w", err)
	}

	return profiles, nil
}
