package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ahrav/terrabench/internal/attempt"
	"github.com/ahrav/terrabench/internal/capture"
	"github.com/ahrav/terrabench/internal/catalog"
	"github.com/ahrav/terrabench/internal/config"
	"github.com/ahrav/terrabench/internal/dataset"
	"github.com/ahrav/terrabench/internal/llm"
	"github.com/ahrav/terrabench/internal/run"
	"github.com/ahrav/terrabench/internal/server"
	"github.com/ahrav/terrabench/internal/terraform"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "terrabench",
		Short:         "Evaluate language models on Terraform provisioning tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(), newRunCmd(), newTasksCmd())
	return root
}

// system bundles the wired collaborators shared by the serve and run
// commands.
type system struct {
	cfg      *config.Config
	store    *config.Store
	catalog  *catalog.Catalog
	manager  *run.Manager
	recorder *dataset.Recorder
	logs     *server.LogBuffer
	events   *run.RingEmitter
}

// buildSystem wires the full stack from configuration: logging, the model
// client, the recorder, and the run manager.
func buildSystem(ctx context.Context) (*system, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logs := server.NewLogBuffer(slog.NewJSONHandler(os.Stderr, nil), 1000)
	slog.SetDefault(slog.New(logs))

	store := config.NewStore(cfg)
	applyProviderEnv(cfg)

	// The key is resolved through the store on every request, so keys set
	// through the control surface after boot reach subsequent calls.
	llmCfg := cfg.LLM()
	llmCfg.Provider.APIKeySource = func() string { return store.Get().OpenRouterAPIKey }

	client, err := llm.NewClient(ctx, llmCfg)
	if err != nil {
		return nil, err
	}

	recorder, err := dataset.NewRecorder(cfg.DatasetDir())
	if err != nil {
		return nil, err
	}

	capturer := capture.NewDirCapturer(cfg.ScreenshotDir())

	newLoop := func(maxIterations int, observer attempt.StageObserver) run.AttemptRunner {
		// Re-export the provider environment so credential updates made
		// after boot reach the Terraform provider.
		applyProviderEnv(store.Get())
		return attempt.NewLoop(attempt.Config{
			Client:        client,
			Recorder:      recorder,
			Capturer:      capturer,
			NewRunner:     func(dir string) (terraform.Runner, error) { return terraform.NewExecutor(dir) },
			MaxIterations: maxIterations,
			Observer:      observer,
		})
	}

	events := run.NewRingEmitter(1000)
	emitter := run.MultiEmitter{run.NewLogEmitter(), events}
	coordinator := run.NewCoordinator(catalog.Builtin(), cfg.BaseDir, emitter, newLoop)

	return &system{
		cfg:      cfg,
		store:    store,
		catalog:  catalog.Builtin(),
		manager:  run.NewManager(coordinator),
		recorder: recorder,
		logs:     logs,
		events:   events,
	}, nil
}

// applyProviderEnv exports the Xen Orchestra credentials the Terraform
// provider reads from the environment.
func applyProviderEnv(cfg *config.Config) {
	setIfPresent("XOA_URL", cfg.XOAURL)
	setIfPresent("XOA_USER", cfg.XOAUser)
	setIfPresent("XOA_PASSWORD", cfg.XOAPassword)
}

func setIfPresent(key, value string) {
	if value != "" {
		os.Setenv(key, value)
	}
}
