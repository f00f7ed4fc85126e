package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"ideaforge/internal/sections"
)

const translateUsage = `Usage:
  ideaforge translate --config <path> [--lang <code>] [--section <name>] [--file <path>]

Reads text from --file, or stdin when omitted, and prints the translation.

Flags:
  --config    string   Path to YAML configuration file (required)
  --lang      string   Target language code, e.g. id or pt-BR (default from configuration)
  --section   string   Translate only this section: overview, implementation, roadmap or scope
  --file      string   Input file (default stdin)
  --env-file  string   Dotenv file with provider credentials (default ".env")
  --log-level string   debug, info, warn or error (default "info")`

func translate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.Usage = usageFunc(translateUsage)

	var (
		common  commonFlags
		lang    string
		section string
		file    string
	)
	common.register(fs)
	fs.StringVar(&lang, "lang", "", "target language code")
	fs.StringVar(&section, "section", "", "section to translate")
	fs.StringVar(&file, "file", "", "input file")

	if stop, err := parseFlags(fs, args); stop || err != nil {
		return err
	}

	cfg, logger, err := common.load(os.Stderr)
	if err != nil {
		return err
	}

	text, err := readInput(file)
	if err != nil {
		return err
	}

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	var out string
	if section != "" {
		s, ok := sections.ByKey(section)
		if !ok {
			return fmt.Errorf("unknown section %q", section)
		}
		out, err = p.TranslateSection(ctx, text, s.Marker, lang)
	} else {
		out, err = p.Translate(ctx, text, lang)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, out)
	return nil
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input file %q: %w", path, err)
	}
	return string(data), nil
}
