package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/aidiary/internal/api"
	"github.com/kalambet/aidiary/internal/archive"
	"github.com/kalambet/aidiary/internal/config"
	"github.com/kalambet/aidiary/internal/generator"
	"github.com/kalambet/aidiary/internal/llm"
	"github.com/kalambet/aidiary/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the diary backend (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve diary tools to an MCP client over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend and generator status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func generatorModel(cfg config.Config) string {
	if cfg.Generator.Backend == "openai" {
		return cfg.Generator.OpenAIModel
	}
	return cfg.Generator.Model
}

func detectEngine(cfg config.Config) (llm.Engine, error) {
	return llm.Detect(llm.DetectConfig{
		Backend:       cfg.Generator.Backend,
		OllamaBaseURL: cfg.Generator.BaseURL,
		OpenAIAPIKey:  cfg.Generator.OpenAIAPIKey,
	})
}

// newGenerator detects the configured backend and makes sure its model is
// available, reporting progress to w.
func newGenerator(ctx context.Context, cfg config.Config, w io.Writer) (*generator.Generator, error) {
	eng, err := detectEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("detecting generator backend: %w", err)
	}
	model := generatorModel(cfg)
	if err := llm.EnsureReady(ctx, eng, model, w); err != nil {
		return nil, err
	}
	return generator.New(eng, model, slog.Default()), nil
}

func runServer() error {
	fmt.Fprintln(os.Stderr, versionString())

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	token, err := config.GetAPIToken(config.NewSecretStore())
	if err != nil {
		return fmt.Errorf("getting API token: %w", err)
	}
	if token == "" {
		slog.Warn("no API token configured, API is unauthenticated")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get("http://" + addr + "/health"); err == nil {
		resp.Body.Close()
		printWarning("aidiary is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := newGenerator(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	handler := api.NewHandler(api.Deps{
		Store:         store,
		Generator:     gen,
		Token:         token,
		AllowedOrigin: cfg.Server.AllowedOrigin,
		Archive: archive.View{
			PreviewChars: cfg.Archive.PreviewChars,
			Location:     cfg.Archive.Location(),
		},
		Logger: slog.Default(),
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("aidiary listening", "addr", addr, "generator", gen.Engine().Name(), "model", gen.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	// stdout belongs to the protocol, so readiness output goes to stderr.
	deps := api.MCPDeps{Store: store}
	if gen, err := newGenerator(ctx, cfg, os.Stderr); err != nil {
		slog.Warn("generator unavailable, summarize_transcript disabled", "error", err)
	} else {
		deps.Generator = gen
	}

	stdioSrv := server.NewStdioServer(api.NewMCPServer(deps, version))
	slog.Info("MCP server started (stdio transport)")
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

type statusRow struct {
	label string
	value string
}

func showStatus(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var backend, entries, gen statusRow
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		backend = statusRow{"Server", "running at " + cfg.Client.BaseURL}
		if err := client.health(gctx); err != nil {
			backend.value = "stopped"
			return nil
		}
		list, err := client.records().ListEntries(gctx)
		if err != nil {
			entries = statusRow{"Entries", fmt.Sprintf("unavailable (%v)", err)}
			return nil
		}
		entries = statusRow{"Entries", fmt.Sprintf("%d", len(list))}
		return nil
	})
	g.Go(func() error {
		gen = statusRow{"Generator", cfg.Generator.Backend + " not running"}
		eng, err := detectEngine(cfg)
		if err != nil {
			gen.value = err.Error()
			return nil
		}
		if eng.IsRunning(gctx) {
			gen.value = fmt.Sprintf("%s running, model %s", eng.Name(), generatorModel(cfg))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range []statusRow{backend, entries, gen} {
		if r.label != "" {
			printStatus(r.label, "%s", r.value)
		}
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
