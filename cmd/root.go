package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ideaforge/internal/fallback"
)

const usage = `ideaforge generates Unity game concepts from keywords through a chain of text-generation providers.

Usage:
  ideaforge <command> [flags]

Commands:
  serve       Start the HTTP server
  generate    Generate one game concept and print it
  translate   Translate text read from a file or stdin
  probe       Check connectivity of every configured provider

Flags:
  -h, --help  Show this help message

Run "ideaforge <command> --help" for command flags.`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return printUsage()
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "generate":
		return generate(ctx, args[1:])
	case "translate":
		return translate(ctx, args[1:])
	case "probe":
		return probe(ctx, args[1:])
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage() error {
	fmt.Println(strings.TrimSpace(usage))
	return nil
}

// ExitCode maps a command error to a process exit status. Content and
// connectivity failures get distinct codes so scripts can tell them apart.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errValidationFailed):
		return 2
	case errors.Is(err, errNoProviderReachable), errors.Is(err, fallback.ErrAllProvidersExhausted):
		return 3
	default:
		return 1
	}
}
