package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the gateway (default from Config)
//	-f string   session file path (default from Config)
//	-t int      request timeout in seconds (default from Config)
//
// os.Args is filtered down to these flags with flagx.FilterArgs so the
// config-file flags do not trip the parser.
func parseFlags(cfg *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "gateway base URL")
	fs.StringVar(&cfg.SessionFile, "f", cfg.SessionFile, "session file path")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	args := flagx.FilterArgs(os.Args[1:], flagx.AllowedFrom(fs))
	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
