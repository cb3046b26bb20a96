package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultProviderURL = "https://network.infura.io/v3/"
	localProviderURL   = "http://127.0.0.1:8545"
)

// Config holds all configuration for the publisher
type Config struct {
	// Node connection
	ProviderURL     string
	ForkProviderURL string
	Timeout         time.Duration

	// Deployer keys
	PrivateKey        string
	TestnetPrivateKey string

	// Paths
	DeploymentRoot string
	BuildPath      string
	ContractsPath  string

	// Transaction settings
	GasPriceGwei               string
	MethodCallGasLimit         uint64
	ContractDeploymentGasLimit uint64
	MinDeployerBalance         int64 // ether
	ForkFunding                int64 // ether

	// Protocol
	ProtocolTokenKey string

	// Logging
	Verbose bool
	LogFile string

	Antithesis bool
}

// Connection is the resolved endpoint and signer for one network.
type Connection struct {
	ProviderURL        string
	PrivateKey         string
	ExplorerLinkPrefix string
}

// Load creates a new config from environment variables
func Load() *Config {
	return &Config{
		ProviderURL:                getEnv("PROVIDER_URL", defaultProviderURL),
		ForkProviderURL:            getEnv("FORK_PROVIDER_URL", "http://localhost:8545"),
		Timeout:                    getDuration("CONNECT_TIMEOUT", 30*time.Second),
		PrivateKey:                 getEnv("DEPLOY_PRIVATE_KEY", ""),
		TestnetPrivateKey:          getEnv("TESTNET_DEPLOY_PRIVATE_KEY", ""),
		DeploymentRoot:             getEnv("DEPLOYMENT_ROOT", filepath.Join("publish", "deployed")),
		BuildPath:                  getEnv("BUILD_PATH", "build"),
		ContractsPath:              getEnv("CONTRACTS_PATH", "contracts"),
		GasPriceGwei:               getEnv("GAS_PRICE", "1"),
		MethodCallGasLimit:         uint64(getInt64("METHOD_CALL_GAS_LIMIT", 250_000)),
		ContractDeploymentGasLimit: uint64(getInt64("CONTRACT_DEPLOYMENT_GAS_LIMIT", 6_900_000)),
		MinDeployerBalance:         getInt64("MIN_DEPLOYER_BALANCE", 5),
		ForkFunding:                getInt64("FORK_FUNDING", 10),
		ProtocolTokenKey:           getEnv("PROTOCOL_TOKEN_KEY", "BADI"),
		Verbose:                    getBool("VERBOSE", false),
		LogFile:                    getEnv("LOG_FILE", ""),
		Antithesis:                 getBool("ANTITHESIS", false),
	}
}

// LoadEnvFile reads KEY=VALUE pairs from path into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// DeploymentPath returns the default folder holding the inputs and the
// deployment record for network.
func (c *Config) DeploymentPath(network string) string {
	return filepath.Join(c.DeploymentRoot, network)
}

// Connection resolves the provider URL, deployer key and explorer link for
// network. The literal "network" inside PROVIDER_URL is replaced by the
// network name.
func (c *Config) Connection(network Network, useFork bool) Connection {
	conn := Connection{ExplorerLinkPrefix: network.Explorer}

	switch {
	case useFork:
		conn.ProviderURL = c.ForkProviderURL
	case network.Name == "local":
		conn.ProviderURL = localProviderURL
	default:
		conn.ProviderURL = strings.ReplaceAll(c.ProviderURL, "network", network.Name)
	}

	if network.Production {
		conn.PrivateKey = c.PrivateKey
	} else {
		conn.PrivateKey = c.TestnetPrivateKey
	}
	return conn
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
