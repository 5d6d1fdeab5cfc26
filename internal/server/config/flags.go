package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/hotspotkeeper/internal/flagx"
)

var serverFlags = []string{"-a", "-g", "-r", "-u", "-p", "-t", "-b", "-q", "-d", "-x", "-s", "-z"}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address
//	-r string   router API address (host:port)
//	-u string   router API user
//	-p string   router API password
//	-t int      router call timeout, seconds
//	-b string   pending backend: file, sqlite or postgres
//	-q string   pending directory (file backend)
//	-d string   database DSN (sqlite or postgres backend)
//	-x string   Redis address for cross-process locking
//	-s string   JWT HMAC secret key
//	-z string   router timezone
//
// Arguments other than these flags are ignored.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, serverFlags)

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "gRPC health address and port")
	fs.StringVar(&config.RouterAddress, "r", config.RouterAddress, "router API address")
	fs.StringVar(&config.RouterUser, "u", config.RouterUser, "router API user")
	fs.StringVar(&config.RouterPassword, "p", config.RouterPassword, "router API password")
	timeout := fs.Int("t", int(config.RouterCallTimeout.Seconds()), "router call timeout (in seconds)")
	fs.StringVar(&config.PendingBackend, "b", config.PendingBackend, "pending backend (file, sqlite, postgres)")
	fs.StringVar(&config.PendingDir, "q", config.PendingDir, "pending request directory")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "x", config.RedisAddr, "Redis address for locking")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Timezone, "z", config.Timezone, "router timezone")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	config.RouterCallTimeout = time.Duration(*timeout) * time.Second
	return nil
}
