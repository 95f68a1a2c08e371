package config

import (
	"encoding/json"
	"os"

	"github.com/dsavelev/snowchat/internal/flagx"
	"github.com/dsavelev/snowchat/internal/timex"
)

// JsonConfig is the intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "15s" and integer nanoseconds. After
// unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	DatabaseDSN      string         `json:"database_dsn"`
	JWTSecret        string         `json:"jwt_secret"`
	EncryptionSecret string         `json:"encryption_secret"`
	TokenTTL         timex.Duration `json:"token_ttl"`
	RequestTimeout   timex.Duration `json:"request_timeout"`
	LLMBaseURL       string         `json:"llm_base_url"`
	LLMModel         string         `json:"llm_model"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flags into the provided Config. If no flag is set, nothing is
// loaded. If the file cannot be read or contains invalid JSON, the function
// panics; startup configuration errors should be loud.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.JWTSecret = c.JWTSecret
	config.EncryptionSecret = c.EncryptionSecret
	config.TokenTTL = c.TokenTTL.Duration
	config.RequestTimeout = c.RequestTimeout.Duration
	config.LLMBaseURL = c.LLMBaseURL
	config.LLMModel = c.LLMModel
}
