package config

import (
	"flag"
	"io"
	"time"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/flagx"
)

// parseFlags overlays cfg with command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP listen address
//	-s string   storage driver: sqlite, pgx or memory
//	-d string   storage DSN (file path for sqlite)
//	-r string   remote backend: none, pinata, s3, ipfs or memory
//	-t int      mirror sync timeout, seconds
//	-l string   log level
//
// Only the flags above are picked out of args with flagx.FilterArgs, so the
// config file flag and subcommand arguments do not interfere.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-s", "-d", "-r", "-t", "-l"})

	fs := flag.NewFlagSet("filemanager", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.StorageDriver, "s", cfg.StorageDriver, "storage driver")
	fs.StringVar(&cfg.StorageDSN, "d", cfg.StorageDSN, "storage DSN")
	fs.StringVar(&cfg.RemoteBackend, "r", cfg.RemoteBackend, "remote backend")
	syncTimeout := fs.Int("t", int(cfg.SyncTimeout.Seconds()), "mirror sync timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.SyncTimeout = time.Duration(*syncTimeout) * time.Second
		}
	})
	return nil
}
