package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定（VECTOR_BACKEND=postgres の場合に使用）
	Database DatabaseConfig

	// コーパス設定
	Corpus CorpusConfig

	// Embedding設定
	Embedding EmbeddingConfig

	// 生成プロバイダ設定（登録順を保持する）
	Providers []ProviderConfig

	// DefaultProvider は優先的に使用するプロバイダ名（LLM_PROVIDER）
	DefaultProvider string

	// Temperature は生成時の温度ポリシー（グラウンディング時は低温を推奨）
	Temperature float64

	// RequireContext が真の場合、検索結果が空ならプロバイダを呼ばずに
	// その旨を応答する
	RequireContext bool

	// Persona はシステムプロンプトの人格・方針テキスト（空ならデフォルト）
	Persona string

	// ContextTokenBudget はプロンプトに載せるコンテキストのトークン上限
	ContextTokenBudget int

	// SessionTTLMinutes はプロファイルセッションの有効期限（分）
	SessionTTLMinutes int
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// CorpusConfig はチャンクコーパスの設定
type CorpusConfig struct {
	// Backend は類似検索ストアの種類（"postgres" または "memory"）
	Backend string

	// CollectionName はストア内の論理コーパス名
	CollectionName string

	// ChunkSize / ChunkOverlap はチャンク分割パラメータ
	ChunkSize    int
	ChunkOverlap int

	// RetrievalK は検索のデフォルト件数
	RetrievalK int
}

// EmbeddingConfig はEmbeddingモデルの設定
type EmbeddingConfig struct {
	APIKey    string
	Model     string
	Dimension int
}

// ProviderConfig は生成プロバイダ1件の設定。
// レジストリ構築後はプロセス生存期間中イミュータブルとして扱う。
type ProviderConfig struct {
	Name      string
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
}

// プロバイダの既定値。APIキーが未設定のプロバイダは登録されない。
var providerDefaults = []struct {
	name    string
	model   string
	baseURL string
}{
	{name: "openai", model: "gpt-4o-mini", baseURL: ""},
	{name: "xai", model: "grok-2-latest", baseURL: "https://api.x.ai/v1"},
	{name: "anthropic", model: "claude-3-5-haiku-latest", baseURL: ""},
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "kbchat"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "kbchat"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Corpus: CorpusConfig{
			Backend:        getEnv("VECTOR_BACKEND", "postgres"),
			CollectionName: getEnv("COLLECTION_NAME", "documents"),
			ChunkSize:      getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap:   getEnvAsInt("CHUNK_OVERLAP", 200),
			RetrievalK:     getEnvAsInt("RETRIEVAL_K", 3),
		},
		Embedding: EmbeddingConfig{
			APIKey:    getEnv("OPENAI_API_KEY", ""),
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension: getEnvAsInt("EMBEDDING_DIMENSION", 1536),
		},
		DefaultProvider:    getEnv("LLM_PROVIDER", "openai"),
		Temperature:        getEnvAsFloat("LLM_TEMPERATURE", 0.2),
		RequireContext:     getEnvAsBool("REQUIRE_CONTEXT", false),
		Persona:            getEnv("PERSONA", ""),
		ContextTokenBudget: getEnvAsInt("CONTEXT_TOKEN_BUDGET", 2048),
		SessionTTLMinutes:  getEnvAsInt("SESSION_TTL_MINUTES", 60),
	}

	cfg.Providers = loadProviders()

	return cfg, nil
}

// loadProviders は <PROVIDER>_API_KEY が設定されているプロバイダのみを
// 既定の登録順（openai, xai, anthropic）で組み立てる
func loadProviders() []ProviderConfig {
	var providers []ProviderConfig
	for _, d := range providerDefaults {
		prefix := strings.ToUpper(d.name)
		apiKey := getEnv(prefix+"_API_KEY", "")
		if apiKey == "" {
			continue
		}
		providers = append(providers, ProviderConfig{
			Name:      d.name,
			APIKey:    apiKey,
			Model:     getEnv(prefix+"_MODEL", d.model),
			MaxTokens: getEnvAsInt(prefix+"_MAX_TOKENS", 1000),
			BaseURL:   getEnv(prefix+"_BASE_URL", d.baseURL),
		})
	}
	return providers
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
