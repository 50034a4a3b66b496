package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseEnv overlays cfg with environment variables that are set, even when
// set to an empty string.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"FM_HTTP_ADDR", &cfg.HTTPAddr},
		{"FM_STORAGE_DRIVER", &cfg.StorageDriver},
		{"FM_STORAGE_DSN", &cfg.StorageDSN},
		{"ENCRYPTION_SALT", &cfg.EncryptionSalt},
		{"FM_REMOTE_BACKEND", &cfg.RemoteBackend},
		{"PINATA_JWT", &cfg.Pinata.JWT},
		{"PINATA_API_KEY", &cfg.Pinata.APIKey},
		{"PINATA_SECRET_KEY", &cfg.Pinata.SecretKey},
		{"PINATA_API_URL", &cfg.Pinata.APIURL},
		{"PINATA_GATEWAY_URL", &cfg.Pinata.GatewayURL},
		{"FM_S3_REGION", &cfg.S3.Region},
		{"FM_S3_ENDPOINT", &cfg.S3.Endpoint},
		{"FM_S3_ACCESS_KEY", &cfg.S3.AccessKey},
		{"FM_S3_SECRET_KEY", &cfg.S3.SecretKey},
		{"FM_S3_BUCKET", &cfg.S3.Bucket},
		{"FM_S3_PREFIX", &cfg.S3.Prefix},
		{"FM_IPFS_ADDR", &cfg.IPFSAddr},
		{"FM_LOG_LEVEL", &cfg.LogLevel},
	}
	for _, s := range strs {
		if v, ok := lookup(s.name); ok {
			*s.dst = v
		}
	}

	if v, ok := lookup("FM_CORS_ORIGINS"); ok {
		cfg.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	if v, ok := lookup("FM_SYNC_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FM_SYNC_TIMEOUT: %w", err)
		}
		cfg.SyncTimeout = d
	}
	if v, ok := lookup("FM_OBFUSCATE_NAMES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FM_OBFUSCATE_NAMES: %w", err)
		}
		cfg.ObfuscateNames = b
	}
	return nil
}
