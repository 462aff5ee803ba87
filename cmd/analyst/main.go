package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stock-analyst/internal/history"
	"stock-analyst/internal/server"
	"stock-analyst/internal/types"
)

var (
	configPath string
	verbose    bool

	startDate   string
	endDate     string
	addr        string
	summaryDate string
)

var rootCmd = &cobra.Command{
	Use:   "analyst",
	Short: "Multi-analyst stock analysis for China A-shares",
	Long: `analyst runs a fixed workflow over one six-digit ticker: market data feeds six
analysts (short term, long term, technical, fundamentals, sentiment, valuation)
and a portfolio manager fuses their votes into one decision.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// analyze prints its result on stdout
		if cmd == analyzeCmd {
			return initializeSystem(os.Stderr)
		}
		return initializeSystem(os.Stdout)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdownSystem(context.Background())
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <ticker>",
	Short: "Analyze one ticker and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Write the CSV summary of one day's decision journal",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose access logging")

	analyzeCmd.Flags().StringVar(&startDate, "start", "", "Start date YYYY-MM-DD (default: one lookback before end)")
	analyzeCmd.Flags().StringVar(&endDate, "end", "", "End date YYYY-MM-DD (default: yesterday)")

	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	summaryCmd.Flags().StringVar(&summaryDate, "date", "", "Day YYYY-MM-DD (default: today in exchange time)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(summaryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(ctx, configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	analyzer, err := initializeAnalyzer(ctx, cfg)
	if err != nil {
		return err
	}

	res, err := analyzer.Analyze(ctx, types.AnalysisRequest{
		Ticker:    args[0],
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(ctx, configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	analyzer, err := initializeAnalyzer(ctx, cfg)
	if err != nil {
		return err
	}

	access, err := newAccessLogger(verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize access logger: %w", err)
	}
	defer func() { _ = access.Sync() }()
	access.Info("starting server", zap.String("addr", cfg.Server.Addr))

	srv := server.New(cfg.Server.Addr, analyzer, access,
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout))
	return srv.ListenAndServe(ctx)
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(ctx, configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if cfg.History.Dir == "" {
		return fmt.Errorf("history.dir is not configured")
	}

	day := time.Now().In(history.Shanghai)
	if summaryDate != "" {
		day, err = time.ParseInLocation("2006-01-02", summaryDate, history.Shanghai)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", summaryDate, err)
		}
	}

	path, err := history.New(cfg.History.Dir).SummarizeDay(day)
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "no analyses recorded on %s\n", day.Format("2006-01-02"))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
