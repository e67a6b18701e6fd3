package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Audit   AuditConfig   `yaml:"audit"`
	Events  EventsConfig  `yaml:"events"`
	Catalog CatalogConfig `yaml:"catalog"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Env  string `yaml:"env"`
}

type AuditConfig struct {
	// PostgresDSN enables the Postgres audit sink when set.
	// Empty means audit records go to the process log only.
	PostgresDSN string `yaml:"postgres_dsn"`
}

type EventsConfig struct {
	// PubSubProject/PubSubTopic enable the durable Pub/Sub event bus.
	PubSubProject string `yaml:"pubsub_project"`
	PubSubTopic   string `yaml:"pubsub_topic"`

	// RedisAddr enables cross-pod event fan-out via Redis Pub/Sub.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// CatalogConfig is the raw YAML form of the static lookup tables.
// It is resolved into an immutable Catalog at startup; the decision
// engines only ever see the resolved maps.
type CatalogConfig struct {
	Packs            map[string]string   `yaml:"packs"`             // pack id -> jurisdiction code
	AgentDomains     map[string]string   `yaml:"agent_domains"`     // agent id -> GLOBAL | RW | MT
	EvidenceMinimums map[string][]string `yaml:"evidence_minimums"` // agent id -> required evidence categories
	GatedTools       map[string][]string `yaml:"gated_tools"`       // tool name -> authorizer agent ids
}

func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
