package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohaoran/AlphaCouncil/internal/agents"
	"github.com/mohaoran/AlphaCouncil/internal/config"
	"github.com/mohaoran/AlphaCouncil/internal/dataflows"
	"github.com/mohaoran/AlphaCouncil/internal/models"
	"github.com/mohaoran/AlphaCouncil/internal/report"
	"github.com/mohaoran/AlphaCouncil/internal/server"
	"github.com/mohaoran/AlphaCouncil/internal/storage"
	"github.com/mohaoran/AlphaCouncil/internal/workflow"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "alphacouncil",
		Short: "AlphaCouncil - Multi-Agent Trading Analysis",
		Long: `AlphaCouncil runs a staged multi-agent trading analysis: analysts gather
evidence, bull and bear researchers debate it, a trader drafts a plan, risk
analysts stress it, and a portfolio manager issues the final ruling.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveMode(cfg)
		},
	}

	rootCmd.AddCommand(newAnalyzeCmd(cfg))
	rootCmd.AddCommand(newServeCmd(cfg))
	rootCmd.AddCommand(newHistoryCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newAnalyzeCmd creates the analyze command
func newAnalyzeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [SYMBOL]",
		Short: "Run a trading analysis for a stock symbol",
		Long: `Run the full analysis pipeline for a given stock ticker symbol.
Example: alphacouncil analyze AAPL --market=us --date=2025-06-02 --depth=3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			market, _ := cmd.Flags().GetString("market")
			date, _ := cmd.Flags().GetString("date")
			depth, _ := cmd.Flags().GetInt("depth")
			analysts, _ := cmd.Flags().GetStringSlice("analysts")

			marketType, err := models.ParseMarketType(market)
			if err != nil {
				return err
			}
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}

			req := models.AnalysisRequest{
				StockSymbol:      strings.ToUpper(strings.TrimSpace(args[0])),
				MarketType:       marketType,
				AnalysisDate:     date,
				SelectedAnalysts: analysts,
				ResearchDepth:    depth,
			}
			return runAnalysis(cfg, req)
		},
	}

	cmd.Flags().String("market", "us", "Market the symbol trades on: us, hk or cn")
	cmd.Flags().String("date", "", "Analysis date in YYYY-MM-DD format (today if not provided)")
	cmd.Flags().Int("depth", 3, "Research depth level, 1 (quick) to 5 (comprehensive)")
	cmd.Flags().StringSlice("analysts", nil, "Analysts to run: market, social, news, fundamentals (default market,fundamentals)")

	return cmd
}

// newServeCmd creates the serve command
func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr != "" {
				cfg.ServerAddr = addr
			}

			engine, err := buildEngine(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}

			store, err := storage.Open(cfg.HistoryDB)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer store.Close()

			srv := server.NewServer(cfg, engine, store)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-sigCh:
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from SERVER_ADDR or :8035)")
	return cmd
}

// newHistoryCmd creates the history command
func newHistoryCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent analysis runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := storage.Open(cfg.HistoryDB)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			displayRunHistory(runs)
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	return cmd
}

// newConfigCmd creates the config command
func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cfg)
		},
	})

	return configCmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("AlphaCouncil v1.0.0")
			fmt.Println("Multi-Agent Trading Analysis System")
		},
	}
}

// buildEngine wires the chat model, data provider and workflow engine.
func buildEngine(ctx context.Context, cfg *config.Config, observer func(stage string)) (*workflow.Engine, error) {
	if cfg.ProviderKey() == "" {
		return nil, fmt.Errorf("no API key configured for LLM provider %q", cfg.LLMProvider)
	}
	if err := agents.InitDebug(ctx, cfg); err != nil {
		return nil, err
	}

	chatModel, err := agents.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var provider agents.MarketDataProvider
	if cfg.OnlineTools {
		provider = dataflows.NewProvider(cfg)
	}
	invoker := agents.NewLLMInvoker(cfg, chatModel, provider)

	var opts []workflow.Option
	if observer != nil {
		opts = append(opts, workflow.WithDispatchObserver(observer))
	}
	return workflow.NewEngine(cfg, invoker, opts...), nil
}

// runAnalysis executes one run and renders the result to the terminal.
func runAnalysis(cfg *config.Config, req models.AnalysisRequest) error {
	ctx := context.Background()

	progress := newProgressDisplay()
	engine, err := buildEngine(ctx, cfg, progress.StageStarted)
	if err != nil {
		return err
	}

	displayRunHeader(req)
	started := time.Now()

	decision, err := engine.Run(ctx, req)
	if err != nil {
		if failure, ok := workflow.AsFailure(err); ok {
			saveRunHistory(cfg, nil, failure)
			displayFailure(failure)
		}
		return fmt.Errorf("analysis failed: %w", err)
	}

	saveRunHistory(cfg, decision, nil)
	if path, err := report.Export(cfg.ResultsDir, decision); err == nil {
		fmt.Printf("Report saved to %s\n", path)
	}

	displayDecision(decision, time.Since(started))
	return nil
}

func saveRunHistory(cfg *config.Config, decision *models.DecisionArtifact, failure *models.FailureArtifact) {
	store, err := storage.Open(cfg.HistoryDB)
	if err != nil {
		fmt.Printf("⚠️  History store unavailable: %v\n", err)
		return
	}
	defer store.Close()

	ctx := context.Background()
	if decision != nil {
		err = store.SaveDecision(ctx, decision)
	} else if failure != nil {
		err = store.SaveFailure(ctx, failure)
	}
	if err != nil {
		fmt.Printf("⚠️  Failed to record run history: %v\n", err)
	}
}

// showConfig displays the current configuration
func showConfig(cfg *config.Config) {
	fmt.Println("📋 Current AlphaCouncil Configuration:")
	fmt.Println("═══════════════════════════════════════")
	fmt.Printf("Project Directory:    %s\n", cfg.ProjectDir)
	fmt.Printf("Results Directory:    %s\n", cfg.ResultsDir)
	fmt.Printf("Data Directory:       %s\n", cfg.DataDir)
	fmt.Printf("Cache Directory:      %s\n", cfg.DataCacheDir)
	fmt.Println()
	fmt.Printf("LLM Provider:         %s\n", cfg.LLMProvider)
	fmt.Printf("Deep Think Model:     %s\n", cfg.DeepThinkLLM)
	fmt.Printf("Quick Think Model:    %s\n", cfg.QuickThinkLLM)
	fmt.Printf("Backend URL:          %s\n", cfg.BackendURL)
	fmt.Println()
	fmt.Printf("Max Debate Rounds:    %d (0 = depth table)\n", cfg.MaxDebateRounds)
	fmt.Printf("Max Risk Rounds:      %d (0 = depth table)\n", cfg.MaxRiskDiscussRounds)
	fmt.Printf("Parallel Analysts:    %d\n", cfg.MaxParallelAnalysts)
	fmt.Printf("Stage Timeout:        %s\n", cfg.Retry.StageTimeout)
	fmt.Printf("Retry Attempts:       %d\n", cfg.Retry.MaxAttempts)
	fmt.Println()
	fmt.Printf("Online Tools:         %t\n", cfg.OnlineTools)
	fmt.Printf("Cache Enabled:        %t\n", cfg.CacheEnabled)
	fmt.Printf("Server Address:       %s\n", cfg.ServerAddr)
	fmt.Printf("History DB:           %s\n", cfg.HistoryDB)
	fmt.Printf("Debug Mode:           %t\n", cfg.Debug)
	fmt.Printf("Eino Debug:           %t\n", cfg.EinoDebugEnabled)
	if cfg.EinoDebugEnabled {
		fmt.Printf("Eino Debug Port:      %d\n", cfg.EinoDebugPort)
	}
	fmt.Println()

	fmt.Println("🔌 API Configuration:")
	fmt.Println("─────────────────────")
	printKeyStatus("DeepSeek API", cfg.DeepSeekAPIKey != "")
	printKeyStatus("OpenAI API", cfg.OpenAIAPIKey != "")
	printKeyStatus("Longport API", cfg.LongportAppKey != "" && cfg.LongportAppSecret != "" && cfg.LongportAccessToken != "")
}

func printKeyStatus(name string, configured bool) {
	if configured {
		fmt.Printf("%-20s ✅ Configured\n", name+":")
	} else {
		fmt.Printf("%-20s ❌ Not configured\n", name+":")
	}
}

// validateConfig validates the configuration and API keys
func validateConfig(cfg *config.Config) error {
	fmt.Println("🔍 Validating AlphaCouncil Configuration...")

	var problems []string
	if cfg.ProviderKey() == "" {
		problems = append(problems, fmt.Sprintf("no API key for LLM provider %q", cfg.LLMProvider))
	}
	if cfg.LLMProvider == "openai" && cfg.BackendURL == "" {
		problems = append(problems, "openai provider requires BACKEND_URL")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Printf("❌ %s\n", p)
		}
		return fmt.Errorf("configuration has %d problem(s)", len(problems))
	}
	fmt.Println("✅ Configuration looks good")
	return nil
}
