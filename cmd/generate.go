package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"ideaforge/internal/models"
	"ideaforge/internal/pipeline"
	"ideaforge/internal/session"
)

const generateUsage = `Usage:
  ideaforge generate --config <path> --keywords <words> [flags]

Flags:
  --config    string   Path to YAML configuration file (required)
  --keywords  string   Comma or space separated keywords (required)
  --platform  string   2D or 3D (default "2D")
  --timeline  string   solo-short or team-extended (default "solo-short")
  --category  string   Casual, Puzzle, Horror, Anomaly or Idle (default "Casual")
  --session   string   Session id embedded in the prompt (default: a new id)
  --translate string   Also print a translation into this language code
  --brief              Also print the implementation brief
  --json               Print the full result as JSON
  --env-file  string   Dotenv file with provider credentials (default ".env")
  --log-level string   debug, info, warn or error (default "info")`

// errValidationFailed is returned after printing a result that failed the content check.
var errValidationFailed = errors.New("generated concept failed validation")

func generate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.Usage = usageFunc(generateUsage)

	var (
		common      commonFlags
		req         ideaFlags
		translateTo string
		brief       bool
		asJSON      bool
	)
	common.register(fs)
	req.register(fs)
	fs.StringVar(&translateTo, "translate", "", "language code for an additional translation")
	fs.BoolVar(&brief, "brief", false, "print the implementation brief")
	fs.BoolVar(&asJSON, "json", false, "print the result as JSON")

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

	res, err := p.Generate(ctx, req.toModel())
	if err != nil {
		return err
	}

	if err := printResult(os.Stdout, res, asJSON); err != nil {
		return err
	}
	if !res.Validation.Valid {
		fmt.Fprintln(os.Stderr, "warning:", res.Validation.Warning)
		return errValidationFailed
	}

	if brief {
		text, err := p.Brief(res.Text)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "\n---- implementation brief ----\n%s\n", text)
	}
	if translateTo != "" {
		text, err := p.Translate(ctx, res.Text, translateTo)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "\n---- translation (%s) ----\n%s\n", translateTo, text)
	}
	return nil
}

type ideaFlags struct {
	sessionID string
	keywords  string
	platform  string
	timeline  string
	category  string
}

func (f *ideaFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.sessionID, "session", "", "session id")
	fs.StringVar(&f.keywords, "keywords", "", "keywords")
	fs.StringVar(&f.platform, "platform", "2D", "platform")
	fs.StringVar(&f.timeline, "timeline", "solo-short", "timeline")
	fs.StringVar(&f.category, "category", string(models.CategoryCasual), "category")
}

func (f ideaFlags) toModel() models.GenerationRequest {
	sessionID := f.sessionID
	if sessionID == "" {
		sessionID = session.NewID()
	}
	return models.GenerationRequest{
		SessionID: sessionID,
		Keywords:  f.keywords,
		Platform:  models.Platform(f.platform),
		Timeline:  models.Timeline(f.timeline),
		Category:  models.Category(f.category),
	}
}

func printResult(w io.Writer, res pipeline.GenerationResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := fmt.Fprintf(w, "%s\n\n(provider: %s, %d ms)\n", res.Text, res.ProviderName, res.Metadata.LatencyMS)
	return err
}
