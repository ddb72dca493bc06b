package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aputze/deep-research/pkg/agent"
	"github.com/Aputze/deep-research/pkg/config"
	"github.com/Aputze/deep-research/pkg/domain"
	"github.com/Aputze/deep-research/pkg/email"
	"github.com/Aputze/deep-research/pkg/llm"
	"github.com/Aputze/deep-research/pkg/observability"
	"github.com/Aputze/deep-research/pkg/tools"
	"github.com/Aputze/deep-research/pkg/workflow"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"

	telemetry *observability.Telemetry
	tracer    trace.Tracer
)

func main() {
	var (
		configPath = flag.String("config", "configs/default.yaml", "Path to configuration file")
		query      = flag.String("query", "", "Research query")
		searches   = flag.Int("searches", 0, "Number of parallel searches (1-5)")
		sendEmail  = flag.Bool("email", false, "Send the report by email when done")
		outPath    = flag.String("out", "", "Write the final report to this file")
		version    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *version {
		fmt.Printf("Deep Research\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	cfg := config.LoadOrDefault(*configPath)
	observability.SetLogLevel(cfg.Observability.Logging.Level)

	ctx := context.Background()
	if err := initObservability(cfg); err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}
	defer shutdownObservability(ctx)

	ctx, span := tracer.Start(ctx, "main",
		trace.WithAttributes(
			attribute.String("version", Version),
		),
	)
	defer span.End()

	if err := run(ctx, cfg, *query, *searches, *sendEmail, *outPath); err != nil {
		span.RecordError(err)
		log.Fatalf("Research failed: %v", err)
	}
}

func initObservability(cfg *config.Config) error {
	telConfig := &observability.TelemetryConfig{
		ServiceName:    "deep-research",
		ServiceVersion: Version,
		Environment:    getEnvironment(),
		OTLPEndpoint:   cfg.Observability.Tracing.Endpoint,
		PrometheusPort: cfg.Observability.Metrics.Port,
		SamplingRate:   cfg.Observability.Tracing.SamplingRate,
		EnableTracing:  cfg.Observability.Tracing.Enabled,
		EnableMetrics:  cfg.Observability.Metrics.Enabled,
	}

	var err error
	telemetry, err = observability.NewTelemetry(telConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	tracer = telemetry.Tracer()
	return nil
}

func shutdownObservability(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}
}

func run(ctx context.Context, cfg *config.Config, query string, searches int, sendEmail bool, outPath string) error {
	if query == "" {
		fmt.Print("Enter your research query: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read query from stdin: %w", err)
		}
		query = strings.TrimSpace(line)
	}
	if query == "" {
		return fmt.Errorf("no research query provided")
	}

	completionTimeout, err := time.ParseDuration(cfg.Completion.Timeout)
	if err != nil {
		completionTimeout = 2 * time.Minute
	}

	client := llm.NewOllamaClient(
		cfg.Completion.BaseURL,
		cfg.Completion.Model,
		&llm.OllamaOptions{
			Temperature: cfg.Completion.Temperature,
			MaxTokens:   cfg.Completion.MaxTokens,
			Timeout:     completionTimeout,
		},
	)

	healthCtx, healthSpan := tracer.Start(ctx, "completion_health_check")
	if err := client.CheckHealth(healthCtx); err != nil {
		healthSpan.RecordError(err)
		healthSpan.End()
		return fmt.Errorf("completion service health check failed: %w", err)
	}
	healthSpan.End()
	log.Println("Completion service connection established")

	instrumented, err := llm.NewInstrumentedCompletionClient(client, telemetry, cfg.Completion.Model)
	if err != nil {
		return fmt.Errorf("failed to instrument completion client: %w", err)
	}

	sender := email.NewMailjetClient(email.MailjetOptions{
		BaseURL:     cfg.Email.BaseURL,
		APIKey:      cfg.Email.APIKey,
		APISecret:   cfg.Email.APISecret,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		ToAddress:   cfg.Email.ToAddress,
	})

	registry := tools.NewBasicRegistry()
	if err := registry.Register(tools.NewSendEmailTool(sender)); err != nil {
		return fmt.Errorf("failed to register send_email tool: %w", err)
	}

	invoker := agent.NewInvoker(instrumented, registry, telemetry)

	pipeline, err := workflow.NewPipeline(cfg, invoker, telemetry)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	numSearches := searches
	if numSearches == 0 {
		numSearches = cfg.Research.DefaultSearches
	}

	request := &domain.ResearchRequest{
		ID:          uuid.NewString(),
		Query:       query,
		NumSearches: numSearches,
		SendEmail:   sendEmail || cfg.Research.SendEmail,
		Timestamp:   time.Now(),
	}

	var finalReport string
	for ev := range pipeline.Run(ctx, request) {
		if workflow.IsFinalArtifact(ev.Text) {
			finalReport = ev.Text
			fmt.Println("\n=== Research Report ===")
			fmt.Println(ev.Text)
			fmt.Println("=======================")
			continue
		}
		fmt.Print(ev.Text)
	}

	if finalReport == "" {
		return fmt.Errorf("run finished without producing a report")
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(finalReport), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		log.Printf("Report written to %s", outPath)
	}

	return nil
}

func getEnvironment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}
