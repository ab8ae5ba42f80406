package config

import (
	"flag"
	"os"

	"github.com/jinxingedu/kindersync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-e string   bucket endpoint URL
//	-r string   bucket region
//	-b string   bucket name
//	-p string   object key prefix
//	-d string   local database DSN
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-e", "-r", "-b", "-p", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Endpoint, "e", cfg.Endpoint, "bucket endpoint URL")
	fs.StringVar(&cfg.Region, "r", cfg.Region, "bucket region")
	fs.StringVar(&cfg.Bucket, "b", cfg.Bucket, "bucket name")
	fs.StringVar(&cfg.Prefix, "p", cfg.Prefix, "object key prefix")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "local database DSN")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
