package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semprofile/export"
	profileapi "github.com/c360studio/semprofile/processor/profile-api"
	"github.com/c360studio/semprofile/qrcode"
	"github.com/c360studio/semstreams/component"
)

// defaultBaseURL stands in for the request host when rendering offline.
const defaultBaseURL = "http://localhost:8080"

type renderOptions struct {
	uri     string
	baseURL string
	format  string
}

func renderCmd(flags *globalFlags) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the template data of one individual",
		Long: `Render loads one individual from the configured store and prints its
template data as JSON, its contact card as a vCard, or its statements as
Turtle, N-Triples or JSON-LD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(flags.logLevel)
			return render(cmd.Context(), flags.configPath, opts, cmd.OutOrStdout(), logger)
		},
	}

	cmd.Flags().StringVar(&opts.uri, "uri", "", "Individual URI (required)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", defaultBaseURL, "Scheme and host used for absolute links")
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format (json, vcard, turtle, ntriples, jsonld)")
	_ = cmd.MarkFlagRequired("uri")

	return cmd
}

func render(ctx context.Context, configPath string, opts *renderOptions, out io.Writer, logger *slog.Logger) error {
	var rdfFormat export.Format
	if opts.format != "json" && opts.format != "vcard" {
		f, err := export.ParseFormat(opts.format)
		if err != nil {
			return fmt.Errorf("unknown format %q", opts.format)
		}
		rdfFormat = f
	}

	lc, err := loadConfig(configPath, logger)
	if err != nil {
		return err
	}
	values, err := lc.cfg.ResolveProperties(lc.baseDir)
	if err != nil {
		return err
	}
	apiCfg := profileapi.FromAppConfig(lc.cfg)
	apiCfg.Properties = values

	deps := component.Dependencies{Logger: logger}
	if lc.cfg.NATS.URL != "" {
		natsClient, err := connectToNATS(ctx, lc.cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		defer natsClient.Close(context.Background())
		deps.NATSClient = natsClient
	}

	api, err := profileapi.New(apiCfg, deps)
	if err != nil {
		return fmt.Errorf("create profile-api: %w", err)
	}
	if err := api.Start(ctx); err != nil {
		return fmt.Errorf("start profile-api: %w", err)
	}
	defer api.Stop(shutdownTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(opts.baseURL, "/")+lc.cfg.Server.ContextPath+"/individual", nil)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}

	ind, err := api.Individual(req, opts.uri)
	if err != nil {
		return err
	}

	if rdfFormat != "" {
		doc, err := ind.LinkedData(ctx)
		if err != nil {
			return err
		}
		return export.Write(out, rdfFormat, doc)
	}

	if opts.format == "vcard" {
		data, err := ind.QRData(ctx)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, qrcode.VCard(data))
		return err
	}

	snap, err := ind.Snapshot(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
