package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"ideaforge/internal/fallback"
)

const probeUsage = `Usage:
  ideaforge probe --config <path> [--env-file <path>] [--log-level <level>]

Sends a short test prompt to every configured provider and prints the outcome.`

var errNoProviderReachable = errors.New("no provider answered the probe")

func probe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.Usage = usageFunc(probeUsage)

	var common commonFlags
	common.register(fs)

	if stop, err := parseFlags(fs, args); stop || err != nil {
		return err
	}

	cfg, logger, err := common.load(os.Stderr)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	results := p.Probe(ctx)
	if err := printProbe(os.Stdout, results); err != nil {
		return err
	}
	for _, r := range results {
		if r.OK {
			return nil
		}
	}
	return errNoProviderReachable
}

func printProbe(w io.Writer, results []fallback.ProbeResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tDIALECT\tSTATUS\tLATENCY\tERROR")
	for _, r := range results {
		status := "ok"
		if !r.OK {
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dms\t%s\n", r.Provider, r.Dialect, status, r.LatencyMS, r.Error)
	}
	return tw.Flush()
}
