package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
	DriverMemory   = "memory"
)

// Remote backends.
const (
	RemoteNone   = "none"
	RemotePinata = "pinata"
	RemoteS3     = "s3"
	RemoteIPFS   = "ipfs"
	RemoteMemory = "memory"
)

// Pinata holds credentials and endpoints of the Pinata pinning service.
// Either JWT or the APIKey/SecretKey pair must be set.
type Pinata struct {
	JWT        string
	APIKey     string
	SecretKey  string
	APIURL     string
	GatewayURL string
}

// S3 holds settings of an S3-compatible bucket (AWS or MinIO).
type S3 struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// Config holds runtime settings of the file manager.
//
// Units: SyncTimeout bounds a single background mirror run.
type Config struct {
	HTTPAddr       string
	CORSOrigins    []string
	StorageDriver  string
	StorageDSN     string
	EncryptionSalt string
	RemoteBackend  string
	Pinata         Pinata
	S3             S3
	IPFSAddr       string
	SyncTimeout    time.Duration
	ObfuscateNames bool
	LogLevel       string
}

// LoadDefaults populates c with development defaults.
// NOTE: the default salt is public; set ENCRYPTION_SALT for real data.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = "127.0.0.1:8080"
	c.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	c.StorageDriver = DriverSQLite
	c.StorageDSN = "filemanager.db"
	c.EncryptionSalt = "file-manager-salt"
	c.RemoteBackend = RemoteNone
	c.Pinata = Pinata{
		APIURL:     "https://api.pinata.cloud",
		GatewayURL: "https://gateway.pinata.cloud/ipfs/",
	}
	c.S3 = S3{
		Region: "us-east-1",
		Bucket: "filemanager",
		Prefix: "bundles",
	}
	c.IPFSAddr = "localhost:5001"
	c.SyncTimeout = 30 * time.Second
	c.LogLevel = "info"
}

// Load builds a Config from args (without the program name) and the process
// environment.
func Load(args []string) (*Config, error) {
	return load(args, os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	cfg.StorageDriver = strings.ToLower(cfg.StorageDriver)
	cfg.RemoteBackend = strings.ToLower(cfg.RemoteBackend)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.StorageDriver, validation.Required, validation.In(DriverSQLite, DriverPostgres, DriverMemory)),
		validation.Field(&c.StorageDSN, validation.When(c.StorageDriver != DriverMemory, validation.Required)),
		validation.Field(&c.EncryptionSalt, validation.Required),
		validation.Field(&c.RemoteBackend, validation.Required, validation.In(RemoteNone, RemotePinata, RemoteS3, RemoteIPFS, RemoteMemory)),
		validation.Field(&c.IPFSAddr, validation.When(c.RemoteBackend == RemoteIPFS, validation.Required)),
		validation.Field(&c.SyncTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
	); err != nil {
		return err
	}

	switch c.RemoteBackend {
	case RemotePinata:
		return c.Pinata.Validate()
	case RemoteS3:
		return c.S3.Validate()
	}
	return nil
}

func (p *Pinata) Validate() error {
	if err := validation.ValidateStruct(p,
		validation.Field(&p.APIURL, validation.Required),
		validation.Field(&p.GatewayURL, validation.Required),
	); err != nil {
		return fmt.Errorf("pinata: %w", err)
	}
	if p.JWT == "" && (p.APIKey == "" || p.SecretKey == "") {
		return errors.New("pinata: set a JWT or both an API key and a secret key")
	}
	return nil
}

func (s *S3) Validate() error {
	if err := validation.ValidateStruct(s,
		validation.Field(&s.Region, validation.Required),
		validation.Field(&s.Bucket, validation.Required),
	); err != nil {
		return fmt.Errorf("s3: %w", err)
	}
	return nil
}
