package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aokana/wikiharvest/internal/assemble"
	"github.com/aokana/wikiharvest/internal/config"
	"github.com/aokana/wikiharvest/internal/harvest"
	"github.com/aokana/wikiharvest/internal/server"
	"github.com/aokana/wikiharvest/internal/site"
	"github.com/aokana/wikiharvest/internal/types"
)

var (
	cfgFile string
	verbose bool

	siteHint   string
	modeHint   string
	format     string
	outputPath string
	useProxy   bool
	noProxy    bool
	maxDepth   int
	maxPages   int
	timeoutSec int

	capturePDF bool
	printScale float64
	headful    bool
	visualDir  string

	searchLimit int
	serveHost   string
	servePort   int
)

func main() {
	// Credentials may live in a local .env; absence is fine.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "wikiharvest",
		Short: "wikiharvest — wiki page acquisition and normalization",
		Long: `wikiharvest fetches wiki pages and normalizes them into markdown.

It tries the cheapest acquisition mode that yields substance: the wiki's
structured API first, parsed HTML next, and a full browser render as the
last resort. Pages can also be captured visually as screenshots and PDFs.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(captureCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(titlesCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <url-or-title>",
		Short: "Fetch a wiki page as markdown",
		Long: "Fetch a page through the acquisition chain (API, parsed HTML, browser\n" +
			"render) and print it as markdown.",
		Args: cobra.ExactArgs(1),
		RunE: runFetch,
	}
	cmd.Flags().StringVarP(&siteHint, "site", "s", "auto", "site family: auto, biligame, moegirl, generic")
	cmd.Flags().StringVarP(&modeHint, "mode", "m", "auto", "acquisition mode: auto, structured, html")
	cmd.Flags().StringVarP(&format, "format", "f", "llm", "output shape: llm, markdown")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write markdown to a file instead of stdout")
	cmd.Flags().BoolVar(&useProxy, "use-proxy", false, "route traffic through the configured proxy")
	cmd.Flags().BoolVar(&noProxy, "no-proxy", false, "ignore the configured proxy even if enabled")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "transclusion expansion depth (0 = config default)")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "transclusion page budget (0 = config default)")
	cmd.Flags().IntVarP(&timeoutSec, "timeout", "t", 0, "overall timeout in seconds (0 = config default)")
	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	logger := setupLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	h := harvest.New(cfg, logger)
	ctx := signalContext()

	result, err := h.Fetch(ctx, args[0], harvest.FetchOptions{
		SiteHint: siteHint,
		Mode:     modeHint,
		Format:   assemble.Format(format),
		UseProxy: useProxy,
		MaxDepth: maxDepth,
		MaxPages: maxPages,
		Timeout:  time.Duration(timeoutSec) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", types.ErrorKind(err), err)
	}

	logger.Info("fetch complete", "result", result.Describe())
	return writeOutput(result.Markdown)
}

func captureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture <url>",
		Short: "Capture a page visually (screenshot, optional PDF)",
		Long: "Render a page in a browser and save a full-page screenshot, plus a\n" +
			"paginated PDF when requested. Artifacts go to --visual-dir.",
		Args: cobra.ExactArgs(1),
		RunE: runCapture,
	}
	cmd.Flags().StringVarP(&siteHint, "site", "s", "auto", "site family: auto, biligame, moegirl, generic")
	cmd.Flags().StringVar(&visualDir, "visual-dir", "./captures", "directory to keep artifacts in")
	cmd.Flags().BoolVar(&capturePDF, "capture-pdf", true, "also produce a paginated PDF")
	cmd.Flags().Float64Var(&printScale, "print-scale", 0, "print-to-PDF zoom (0 = config default)")
	cmd.Flags().BoolVar(&headful, "headful", false, "run the browser with a visible window")
	cmd.Flags().BoolVar(&useProxy, "use-proxy", false, "route traffic through the configured proxy")
	cmd.Flags().BoolVar(&noProxy, "no-proxy", false, "ignore the configured proxy even if enabled")
	cmd.Flags().IntVarP(&timeoutSec, "timeout", "t", 0, "overall timeout in seconds (0 = config default)")
	return cmd
}

func runCapture(cmd *cobra.Command, args []string) error {
	logger := setupLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	h := harvest.New(cfg, logger)
	ctx := signalContext()

	art, _, err := h.Capture(ctx, args[0], harvest.CaptureOptions{
		SiteHint:   siteHint,
		WantPDF:    capturePDF,
		PrintScale: printScale,
		UseProxy:   useProxy,
		OutputDir:  visualDir,
		Timeout:    time.Duration(timeoutSec) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", types.ErrorKind(err), err)
	}

	fmt.Printf("Captured %s (%s)\n", args[0], site.Slug(args[0]))
	fmt.Printf("  primary:    %s\n", art.BestPath())
	if art.ScreenshotPath != "" && art.ScreenshotPath != art.BestPath() {
		fmt.Printf("  screenshot: %s\n", art.ScreenshotPath)
	}
	return nil
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search the web for wiki pages",
		Long: "Query the configured keyed web search for pages matching a keyword.\n" +
			"Requires search credentials (config or GOOGLE_API_KEY / GOOGLE_CSE_ID).",
		Args: cobra.ExactArgs(1),
		RunE: runSearch,
	}
	cmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum results (0 = config default)")
	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger := setupLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	h := harvest.New(cfg, logger)
	results, err := h.SearchWeb(signalContext(), args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("%s: %w", types.ErrorKind(err), err)
	}
	for _, r := range results {
		fmt.Printf("%2d. %s\n    %s\n", r.Rank, r.Title, r.URL)
	}
	return nil
}

func titlesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "titles <keyword>",
		Short: "Search a wiki's own title index",
		Args:  cobra.ExactArgs(1),
		RunE:  runTitles,
	}
	cmd.Flags().StringVarP(&siteHint, "site", "s", "biligame", "site family: biligame, moegirl")
	cmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum titles")
	return cmd
}

func runTitles(cmd *cobra.Command, args []string) error {
	logger := setupLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	h := harvest.New(cfg, logger)
	titles, err := h.SearchTitles(signalContext(), siteHint, args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("%s: %w", types.ErrorKind(err), err)
	}
	for _, t := range titles {
		fmt.Println(t)
	}
	return nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP tool server",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&serveHost, "host", "", "listen host (empty = config default)")
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (0 = config default)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	h := harvest.New(cfg, logger)
	srv := server.NewServer(&cfg.Server, h, logger)
	return srv.Run(signalContext())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wikiharvest %s\n", config.Version)
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Printf("Fetch:\n")
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetch.RequestTimeout)
			fmt.Printf("  Overall Timeout:   %s\n", cfg.Fetch.OverallTimeout)
			fmt.Printf("  Accept-Language:   %s\n", cfg.Fetch.AcceptLanguage)
			fmt.Printf("\nRender:\n")
			fmt.Printf("  Headless:          %v\n", cfg.Render.Headless)
			fmt.Printf("  Viewport:          %dx%d\n", cfg.Render.ViewportWidth, cfg.Render.ViewportHeight)
			fmt.Printf("  Attempt Timeout:   %s\n", cfg.Render.AttemptTimeout)
			fmt.Printf("  Anti-bot Timeout:  %s\n", cfg.Render.AntiBotTimeout)
			fmt.Printf("  Print Scale:       %.2f\n", cfg.Render.PrintScale)
			fmt.Printf("\nExtract:\n")
			fmt.Printf("  Min Structured:    %d chars\n", cfg.Extract.MinStructuredSize)
			fmt.Printf("  Min DOM Text:      %d chars\n", cfg.Extract.MinDOMText)
			fmt.Printf("  Noise Phrases:     %d configured\n", len(cfg.Extract.NoisePhrases))
			fmt.Printf("\nExpand:\n")
			fmt.Printf("  Max Depth:         %d\n", cfg.Expand.MaxDepth)
			fmt.Printf("  Max Pages:         %d\n", cfg.Expand.MaxPages)
			fmt.Printf("\nProxy:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Proxy.Enabled)
			fmt.Printf("\nSearch:\n")
			fmt.Printf("  Credentials:       %v\n", cfg.Search.APIKey != "" && cfg.Search.CSEID != "")
			fmt.Printf("  Max Results:       %d\n", cfg.Search.MaxResults)
			fmt.Printf("\nServer:\n")
			fmt.Printf("  Listen:            %s:%d\n", cfg.Server.Host, cfg.Server.Port)
			return nil
		},
	}
}

// loadConfig loads configuration and applies CLI overrides shared across
// subcommands.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if noProxy {
		cfg.Proxy.Enabled = false
	}
	if headful {
		cfg.Render.Headless = false
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func writeOutput(markdown string) error {
	if outputPath == "" {
		fmt.Print(markdown)
		return nil
	}
	if err := os.WriteFile(outputPath, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Printf("Wrote %s\n", outputPath)
	return nil
}

func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
