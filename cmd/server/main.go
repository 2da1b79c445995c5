package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"careboard/internal/config"
	"careboard/internal/core"
	httpserver "careboard/internal/http"
	"careboard/internal/llm"
	"careboard/internal/session"
	"careboard/pkg"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "careboard",
		Short: "Oncology patient monitoring prototype",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(patientsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard and chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func patientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Print the dashboard patient list",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			cancerType, _ := cmd.Flags().GetString("type")
			alertFlag, _ := cmd.Flags().GetString("alert")
			sourceFlag, _ := cmd.Flags().GetString("source")

			alert, err := core.ParseAlertSelector(alertFlag, core.DefaultCriteria().Alert)
			if err != nil {
				return err
			}
			source, err := newPatientSource(sourceFlag)
			if err != nil {
				return err
			}
			patients, err := source.Patients(cmd.Context())
			if err != nil {
				return err
			}
			criteria := pkg.FilterCriteria{Name: name, CancerType: cancerType, Alert: alert}
			return printPatients(cmd.OutOrStdout(), patients, criteria)
		},
	}
	cmd.Flags().String("name", "", "Case-insensitive name fragment")
	cmd.Flags().String("type", pkg.All, "Exact cancer type, or ALL")
	cmd.Flags().String("alert", string(pkg.AlertCritical), "CRITICAL, OK or ALL")
	cmd.Flags().String("source", config.SourceFixture, "fixture (fixed alerts) or journey (alerts derived from care dates)")
	return cmd
}

// printPatients writes the filtered list as a table followed by the
// dashboard counts.
func printPatients(w io.Writer, patients []pkg.PatientRecord, criteria pkg.FilterCriteria) error {
	visible := core.FilterPatients(patients, criteria)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCANCER TYPE\tALERT\tDETAIL")
	for _, p := range visible {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.CancerType, p.AlertStatus, p.DelayDetail)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	stats := core.Stats(patients)
	_, err := fmt.Fprintf(w, "\n%d patient(s) shown; %d of %d critical (%.2f%%)\n",
		len(visible), stats.CriticalCount, stats.TotalPatients, stats.CriticalPercent)
	return err
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// newPatientSource selects where the dashboard list comes from.
func newPatientSource(name string) (core.PatientSource, error) {
	switch name {
	case "", config.SourceFixture:
		return core.NewStaticPatients(), nil
	case config.SourceJourney:
		return core.NewFixtureJourneyPatients(nil), nil
	default:
		return nil, fmt.Errorf("unknown patient source %q", name)
	}
}

// newAssistant picks the analysis and reply backends.
func newAssistant(cfg *config.Config) (core.Analyzer, core.Replier) {
	if !cfg.UseOpenAI() {
		return core.FixedAnalyzer{}, core.FixedReplier{}
	}
	client := llm.NewOpenAIClient(llm.Options{
		APIKey:       cfg.OpenAIAPIKey,
		BaseURL:      cfg.OpenAIBaseURL,
		ChatModel:    cfg.OpenAIChatModel,
		SummaryModel: cfg.OpenAISummaryModel,
	})
	return core.NewLLMAnalyzer(client), core.NewLLMReplier(client, core.PendingSummary())
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	analyzer, replier := newAssistant(cfg)
	logger.Info().Str("backend", cfg.AssistantBackend).Msg("assistant configured")

	notifier := session.NewNotifier()
	sessions := session.NewRegistry(session.Config{
		Analyzer:      analyzer,
		Replier:       replier,
		AnalysisDelay: cfg.AnalysisDelay,
		ReplyDelay:    cfg.ReplyDelay,
		TTL:           cfg.SessionTTL,
		Logger:        logger,
	}, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sessions.Run(ctx, cfg.SweepInterval)

	patients, err := newPatientSource(cfg.PatientSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid patient source")
	}
	logger.Info().Str("source", cfg.PatientSource).Msg("patient source configured")

	srv, err := httpserver.NewServer(patients, sessions, notifier, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct server")
	}
	e := srv.Echo()

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
