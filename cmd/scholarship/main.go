package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/api"
	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/cli"
	llmhttp "github.com/ZGSQ-QIANG/scholarship/internal/adapter/llm/http"
	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/llm/openai"
	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/observability"
	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/raster"
	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/store/sqlite"
	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/tools"
	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/verifier/browser"
	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/verifier/chsi"
	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/verifier/cnipa"
	"github.com/ZGSQ-QIANG/scholarship/internal/adapter/verifier/crossref"
	"github.com/ZGSQ-QIANG/scholarship/internal/config"
	"github.com/ZGSQ-QIANG/scholarship/internal/domain"
	"github.com/ZGSQ-QIANG/scholarship/internal/store"
	"github.com/ZGSQ-QIANG/scholarship/internal/usecase/verify"
	"github.com/ZGSQ-QIANG/scholarship/internal/version"
)

func main() {
	if err := run(); err != nil {
		// Redact API keys from URLs in error messages before logging
		log.Println(llmhttp.RedactURLSecrets(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Create cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "scholarship",
		EnvPrefix:   "SCHOLARSHIP",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	root := cli.NewRootCommand(cli.Dependencies{
		App: &app{cfg: cfg},
		Args: cli.Arguments{
			OutWriter: os.Stdout,
			ErrWriter: os.Stderr,
		},
		Version: version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "scholarship"))
	}
	return paths
}

// app wires the configured adapters into the CLI commands.
type app struct {
	cfg config.Config
}

// Serve runs the HTTP API until ctx is cancelled, then shuts down gracefully.
func (a *app) Serve(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	logger := buildLogger(a.cfg.Observability.Logging)
	session := a.buildSession(logger)

	records, err := openRecords(a.cfg.Store)
	if err != nil {
		return err
	}
	defer records.Close()

	files := store.NewFileStore()
	tracker := verify.NewTracker(records, files, raster.New(), session)
	if logger != nil {
		tracker.WithLogger(observability.NewPipelineLogger(logger))
	}
	engine := api.NewServer(files, records, tracker)

	server := &http.Server{
		Addr:    a.cfg.Server.Addr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	log.Printf("listening on %s", a.cfg.Server.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		return server.Shutdown(shutdownCtx)
	}
}

// VerifyPaths verifies local files without going through the HTTP API or the
// submission store. Per-file failures become error results; only unreadable
// paths abort the run.
func (a *app) VerifyPaths(ctx context.Context, paths []string) ([]domain.FileVerificationResult, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}

	session := a.buildSession(buildLogger(a.cfg.Observability.Logging))
	converter := raster.New()

	results := make([]domain.FileVerificationResult, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取文件失败 %s: %w", path, err)
		}
		filename := filepath.Base(path)
		fileID := uuid.NewString()

		image, err := converter.ToImage(data, filename)
		if err != nil {
			results = append(results, domain.FileVerificationResult{
				FileID:     fileID,
				Filename:   filename,
				Severity:   domain.SeverityError,
				Conclusion: fmt.Sprintf("文件处理失败: %v", err),
			})
			continue
		}

		results = append(results, session.VerifyFile(ctx, fileID, filename, image, nil))
	}
	return results, nil
}

// buildSession assembles the model client and the verifier tool registry.
func (a *app) buildSession(logger llmhttp.Logger) *verify.Session {
	model := openai.New(openai.Config{
		APIKey:  a.cfg.Model.APIKey,
		Model:   a.cfg.Model.Model,
		BaseURL: a.cfg.Model.BaseURL,
		Timeout: duration(a.cfg.Model.Timeout, 60*time.Second),
		Retry: llmhttp.RetryConfig{
			MaxRetries:     a.cfg.HTTP.MaxRetries,
			InitialBackoff: duration(a.cfg.HTTP.InitialBackoff, 2*time.Second),
			MaxBackoff:     duration(a.cfg.HTTP.MaxBackoff, 16*time.Second),
			Multiplier:     a.cfg.HTTP.BackoffMultiplier,
		},
		Logger: logger,
	})

	pool := browser.NewPool(
		a.cfg.Browser.Concurrency,
		duration(a.cfg.Browser.TaskTimeout, browser.DefaultTaskTimeout),
	)

	papers := crossref.New(crossref.Config{
		UserAgent: a.cfg.CrossRef.UserAgent,
		Timeout:   duration(a.cfg.CrossRef.Timeout, 10*time.Second),
	})

	registry := verify.NewRegistry(tools.Default(papers, chsi.New(pool), cnipa.New(pool))...)
	return verify.NewSession(model, registry)
}

// openRecords creates the submission store, creating its directory first.
func openRecords(cfg config.StoreConfig) (*sqlite.Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	records, err := sqlite.NewStore(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return records, nil
}

// buildLogger creates the structured logger based on configuration. Returns
// nil when logging is disabled; the clients treat a nil logger as a no-op.
func buildLogger(cfg config.LoggingConfig) llmhttp.Logger {
	if !cfg.Enabled {
		return nil
	}
	return llmhttp.NewDefaultLogger(
		llmhttp.ParseLogLevel(cfg.Level),
		llmhttp.ParseLogFormat(cfg.Format),
		cfg.RedactAPIKeys,
	)
}

func duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("warning: invalid duration %q, using default %s", value, fallback)
		return fallback
	}
	return parsed
}
