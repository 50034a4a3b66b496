package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/flagx"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/timex"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk layout. Durations use timex.Duration so files can
// say "30s" or give integer nanoseconds.
type fileConfig struct {
	HTTPAddr       string         `json:"http_addr" yaml:"http_addr"`
	CORSOrigins    []string       `json:"cors_origins" yaml:"cors_origins"`
	StorageDriver  string         `json:"storage_driver" yaml:"storage_driver"`
	StorageDSN     string         `json:"storage_dsn" yaml:"storage_dsn"`
	EncryptionSalt string         `json:"encryption_salt" yaml:"encryption_salt"`
	RemoteBackend  string         `json:"remote_backend" yaml:"remote_backend"`
	Pinata         filePinata     `json:"pinata" yaml:"pinata"`
	S3             fileS3         `json:"s3" yaml:"s3"`
	IPFSAddr       string         `json:"ipfs_addr" yaml:"ipfs_addr"`
	SyncTimeout    timex.Duration `json:"sync_timeout" yaml:"sync_timeout"`
	ObfuscateNames bool           `json:"obfuscate_names" yaml:"obfuscate_names"`
	LogLevel       string         `json:"log_level" yaml:"log_level"`
}

type filePinata struct {
	JWT        string `json:"jwt" yaml:"jwt"`
	APIKey     string `json:"api_key" yaml:"api_key"`
	SecretKey  string `json:"secret_key" yaml:"secret_key"`
	APIURL     string `json:"api_url" yaml:"api_url"`
	GatewayURL string `json:"gateway_url" yaml:"gateway_url"`
}

type fileS3 struct {
	Region    string `json:"region" yaml:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	Prefix    string `json:"prefix" yaml:"prefix"`
}

func toFile(c *Config) fileConfig {
	return fileConfig{
		HTTPAddr:       c.HTTPAddr,
		CORSOrigins:    c.CORSOrigins,
		StorageDriver:  c.StorageDriver,
		StorageDSN:     c.StorageDSN,
		EncryptionSalt: c.EncryptionSalt,
		RemoteBackend:  c.RemoteBackend,
		Pinata:         filePinata(c.Pinata),
		S3:             fileS3(c.S3),
		IPFSAddr:       c.IPFSAddr,
		SyncTimeout:    timex.Duration{Duration: c.SyncTimeout},
		ObfuscateNames: c.ObfuscateNames,
		LogLevel:       c.LogLevel,
	}
}

func (f fileConfig) apply(c *Config) {
	c.HTTPAddr = f.HTTPAddr
	c.CORSOrigins = f.CORSOrigins
	c.StorageDriver = f.StorageDriver
	c.StorageDSN = f.StorageDSN
	c.EncryptionSalt = f.EncryptionSalt
	c.RemoteBackend = f.RemoteBackend
	c.Pinata = Pinata(f.Pinata)
	c.S3 = S3(f.S3)
	c.IPFSAddr = f.IPFSAddr
	c.SyncTimeout = f.SyncTimeout.Duration
	c.ObfuscateNames = f.ObfuscateNames
	c.LogLevel = f.LogLevel
}

// parseFile overlays cfg with the file named by -c / -config, if any. Keys
// missing from the file keep their current values. Files ending in .yaml or
// .yml are YAML, everything else JSON.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	fc := toFile(cfg)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}
