package config

import "os"

// AIConfig holds reasoning-service configuration. Two providers are
// supported: a primary Gemini endpoint and a secondary OpenAI-compatible
// chat endpoint tried once when the primary fails. When neither is
// configured the engine runs entirely on its rule-based fallbacks.
type AIConfig struct {
	// Primary (Gemini)
	GeminiAPIKey  string `json:"-"` // never serialize
	GeminiBaseURL string `json:"geminiBaseUrl"`
	GeminiModel   string `json:"geminiModel"`

	// Secondary (OpenAI-compatible)
	ChatAPIKey  string `json:"-"`
	ChatBaseURL string `json:"chatBaseUrl"`
	ChatModel   string `json:"chatModel"`

	TimeoutMS int `json:"timeoutMs"`
}

// DefaultAIConfig returns the default AI configuration
func DefaultAIConfig() *AIConfig {
	return &AIConfig{
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL: getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
		GeminiModel:   getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),

		ChatAPIKey:  os.Getenv("CHAT_API_KEY"),
		ChatBaseURL: getEnvOrDefault("CHAT_BASE_URL", "https://api.openai.com/v1"),
		ChatModel:   getEnvOrDefault("CHAT_MODEL", "gpt-4o-mini"),

		TimeoutMS: 10000, // 10 second default timeout
	}
}

// PrimaryEnabled returns true if the Gemini API is configured
func (c *AIConfig) PrimaryEnabled() bool {
	return c.GeminiAPIKey != ""
}

// SecondaryEnabled returns true if the chat API is configured
func (c *AIConfig) SecondaryEnabled() bool {
	return c.ChatAPIKey != ""
}

// IsEnabled returns true if any provider is configured
func (c *AIConfig) IsEnabled() bool {
	return c.PrimaryEnabled() || c.SecondaryEnabled()
}

// GeminiEndpoint returns the full generateContent endpoint
func (c *AIConfig) GeminiEndpoint() string {
	return c.GeminiBaseURL + "/" + c.GeminiModel + ":generateContent"
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
