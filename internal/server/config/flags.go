package config

import (
	"flag"
	"os"
	"time"

	"github.com/dsavelev/snowchat/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-e string   credential encryption secret
//	-t int      ServiceNow token TTL, seconds
//	-r int      outbound request timeout, seconds
//	-l string   LLM base URL
//	-m string   LLM default model
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration flags
// are accepted as integers in seconds.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-e", "-t", "-r", "-l", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.JWTSecret, "s", config.JWTSecret, "JWT secret key")
	fs.StringVar(&config.EncryptionSecret, "e", config.EncryptionSecret, "credential encryption secret")

	tokenTTL := fs.Int("t", int(config.TokenTTL.Seconds()), "servicenow token ttl (in seconds)")
	requestTimeout := fs.Int("r", int(config.RequestTimeout.Seconds()), "outbound request timeout (in seconds)")

	fs.StringVar(&config.LLMBaseURL, "l", config.LLMBaseURL, "LLM base URL")
	fs.StringVar(&config.LLMModel, "m", config.LLMModel, "LLM default model")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenTTL = time.Duration(*tokenTTL) * time.Second
	config.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
