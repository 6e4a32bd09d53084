// Package main provides the wayfind CLI: it takes a natural-language
// request, plans browser actions with an LLM, asks for approval when the
// plan is risky, and executes it with bounded self-healing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/entrhq/wayfind/pkg/approval"
	"github.com/entrhq/wayfind/pkg/config"
	"github.com/entrhq/wayfind/pkg/executor/browser"
	"github.com/entrhq/wayfind/pkg/llm/openai"
	"github.com/entrhq/wayfind/pkg/logging"
	"github.com/entrhq/wayfind/pkg/orchestrator"
	"github.com/entrhq/wayfind/pkg/plan"
	"github.com/entrhq/wayfind/pkg/planner"
	"github.com/entrhq/wayfind/pkg/risk"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigFile  string
	Model       string
	BaseURL     string
	Headless    bool
	Yes         bool
	Verbose     bool
	Timeout     time.Duration
	MaxSelfHeal int
	ShowVersion bool
	Request     string
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("wayfind v%s\n", version)
		return
	}
	if cliConfig.Request == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	code := run(ctx, cliConfig)
	cancel()
	os.Exit(code)
}

func parseFlags() *CLIConfig {
	cliConfig := &CLIConfig{}

	flag.StringVar(&cliConfig.ConfigFile, "config", "", "Path to configuration file (default ~/.wayfind/config.yaml)")
	flag.StringVar(&cliConfig.Model, "model", "", "LLM model to use (overrides config)")
	flag.StringVar(&cliConfig.BaseURL, "base-url", "", "LLM API base URL (overrides config)")
	flag.BoolVar(&cliConfig.Headless, "headless", true, "Run the browser without a visible window")
	flag.BoolVar(&cliConfig.Yes, "yes", false, "Approve risky plans without prompting")
	flag.BoolVar(&cliConfig.Verbose, "v", false, "Print state transitions and step details")
	flag.DurationVar(&cliConfig.Timeout, "timeout", 10*time.Minute, "Overall run timeout")
	flag.IntVar(&cliConfig.MaxSelfHeal, "max-heal", -1, "Max self-heal attempts (overrides config)")
	flag.BoolVar(&cliConfig.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "wayfind - natural-language browser automation\n\n")
		fmt.Fprintf(os.Stderr, "Usage: wayfind [options] \"<request>\"\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Search and extract results\n")
		fmt.Fprintf(os.Stderr, "  wayfind \"search example.com for wireless headphones and list the top result\"\n\n")
		fmt.Fprintf(os.Stderr, "  # Risky actions prompt for approval; -yes skips the prompt\n")
		fmt.Fprintf(os.Stderr, "  wayfind -yes \"log in to staging.example.com and submit the feedback form\"\n\n")
	}

	flag.Parse()
	cliConfig.Request = strings.TrimSpace(strings.Join(flag.Args(), " "))
	return cliConfig
}

// run wires the pipeline together and executes one request. The exit code
// distinguishes success (0), cancellation (3), and failure (1).
func run(ctx context.Context, cliConfig *CLIConfig) int {
	cfg, err := config.Load(cliConfig.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	writeDefaultConfig(cliConfig.ConfigFile)
	applyOverrides(cfg, cliConfig)

	logger, logErr := logging.NewLogger("cli")
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", logErr)
	}
	defer logger.Close()

	provider, err := newProvider(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	pl, err := planner.New(provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Println(renderBanner(cfg.LLM.Model))
	session, err := browser.NewSession(browser.SessionOptions{
		Headless:       cfg.Browser.Headless,
		Timeout:        cfg.BrowserTimeout(),
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer session.Close()

	exec := browser.NewExecutor(session)
	exec.RegisterHandler(browser.KindScreenshot, browser.ScreenshotHandler)
	exec.RegisterHandler(plan.KindHumanPause, browser.HumanPauseHandler(stdinPause))

	creds, err := browser.LoadCredentials("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	exec.RegisterHandler(plan.KindAutoLogin, browser.AutoLoginHandler(creds))

	classifier := risk.Default()
	if len(cfg.Security.RiskyActions) > 0 {
		classifier, err = risk.NewClassifier(cfg.Security.RiskyActions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid risky_actions pattern: %v\n", err)
			return 1
		}
	}

	orchLogger, _ := logging.NewLogger("orchestrator")
	defer orchLogger.Close()

	orch, err := orchestrator.New(pl, exec,
		orchestrator.WithClassifier(classifier),
		orchestrator.WithMaxSelfHeal(cfg.Recovery.MaxSelfHealAttempts),
		orchestrator.WithEmitter(newEventRenderer(os.Stdout, cliConfig.Verbose)),
		orchestrator.WithLogger(orchLogger),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if cliConfig.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliConfig.Timeout)
		defer cancel()
	}

	summary, runErr := orch.Execute(ctx, cliConfig.Request, newDecider(cfg, cliConfig))

	fmt.Println(renderSummary(summary))
	if summary != nil {
		logger.Infof("run %s finished in state %s (%d steps, %d heals)",
			summary.RunID, summary.State, summary.ExecutedSteps(), summary.SelfHealAttempts)
	}

	switch {
	case runErr != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		return 1
	case summary != nil && !summary.Succeeded():
		return 3
	default:
		return 0
	}
}

// writeDefaultConfig seeds ~/.wayfind/config.yaml with the defaults on
// first run, so users have a file to edit. Explicit -config paths are left
// alone.
func writeDefaultConfig(explicitPath string) {
	if explicitPath != "" {
		return
	}
	path, err := config.DefaultPath()
	if err != nil {
		return
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return
	}
	_ = config.Default().Save(path)
}

// applyOverrides applies CLI flags over the loaded config.
func applyOverrides(cfg *config.Config, cliConfig *CLIConfig) {
	if cliConfig.Model != "" {
		cfg.LLM.Model = cliConfig.Model
	}
	if cliConfig.BaseURL != "" {
		cfg.LLM.BaseURL = cliConfig.BaseURL
	}
	if !cliConfig.Headless {
		cfg.Browser.Headless = false
	}
	if cliConfig.MaxSelfHeal >= 0 {
		cfg.Recovery.MaxSelfHealAttempts = cliConfig.MaxSelfHeal
	}
}

func newProvider(cfg *config.Config) (*openai.Provider, error) {
	opts := []openai.ProviderOption{
		openai.WithModel(cfg.LLM.Model),
		openai.WithTemperature(cfg.LLM.Temperature),
	}
	if cfg.LLM.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.LLM.BaseURL))
	}
	return openai.NewProvider(cfg.APIKey(), opts...)
}

// newDecider builds the approval decider: -yes or require_approval=false
// approve everything; otherwise a stdin prompt bounded by the configured
// timeout, with the config's auto-approve patterns.
func newDecider(cfg *config.Config, cliConfig *CLIConfig) orchestrator.Decider {
	if cliConfig.Yes || !cfg.Security.RequireApproval {
		return orchestrator.DeciderFunc(func(context.Context, *plan.Plan) (orchestrator.Decision, error) {
			return orchestrator.DecisionApprove, nil
		})
	}
	return approval.NewManager(stdinPrompt,
		approval.WithTimeout(cfg.ApprovalTimeout()),
		approval.WithAutoApprove(cfg.Security.AutoApprove),
	)
}
