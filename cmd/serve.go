package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ideaforge/internal/server"
)

const serveUsage = `Usage:
  ideaforge serve --config <path> [--port <port>] [--env-file <path>] [--log-level <level>]

Flags:
  --config    string   Path to YAML configuration file (required)
  --port      int      Override server port from configuration
  --env-file  string   Dotenv file with provider credentials (default ".env")
  --log-level string   debug, info, warn or error (default "info")`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = usageFunc(serveUsage)

	var common commonFlags
	var overridePort int
	common.register(fs)
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if stop, err := parseFlags(fs, args); stop || err != nil {
		return err
	}

	cfg, logger, err := common.load(os.Stderr)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort < 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, p, logger)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
