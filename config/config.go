package config

import (
	"fmt"
	"time"
)

type Configs struct {
	Env string

	ApiServer   ServerConfigs
	Database    DatabaseConfigs
	Auth        AuthConfigs
	Blockchain  BlockchainConfigs
	Vision      VisionConfigs
	Attestation AttestationConfigs
	Quest       QuestConfigs
	Kafka       KafkaConfigs
}

type ServerConfigs struct {
	Host string
	Port string
	Cert string
	Key  string

	AllowedOrigins []string
}

func (s ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type DatabaseConfigs struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (d DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type AuthConfigs struct {
	TokenSecret string
	AccessToken TokenConfigs
}

type TokenConfigs struct {
	Name       string
	Expiration time.Duration
}

type BlockchainConfigs struct {
	Chains map[string]ChainConfigs

	RPCTimeout time.Duration
}

type ChainConfigs struct {
	Chain   string   `toml:"chain"`
	ChainID int64    `toml:"chain_id"`
	RPCs    []string `toml:"rpcs"`
}

type VisionConfigs struct {
	Endpoints []string
	APIKey    string
	Model     string

	// RequestTimeout bounds one adjudication round trip. A timed out
	// adjudication is recoverable, never an approval or a denial.
	RequestTimeout time.Duration

	// DefaultConfidenceThreshold applies when a task config does not set
	// its own confidence_threshold.
	DefaultConfidenceThreshold float64
}

type AttestationConfigs struct {
	Enabled bool

	Chain           string
	RegistryAddress string
	SchemaUID       string

	RelayerSecret string
	RelayerNonce  string

	// ScanURL is the explorer template the credential uid is appended to.
	ScanURL string

	ConfirmTimeout time.Duration
}

type QuestConfigs struct {
	MaxProofURLLength int
}

type KafkaConfigs struct {
	Addr              string
	NotificationTopic string
}
