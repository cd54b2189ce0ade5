package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"redline/engine/internal/appdirs"
	"redline/engine/internal/collab"
	"redline/engine/internal/engine"
	"redline/engine/internal/envfile"
	"redline/engine/internal/envutil"
	"redline/engine/internal/errinfo"
	"redline/engine/internal/gemini"
	"redline/engine/internal/logging"
	"redline/engine/internal/openai"
	"redline/engine/internal/rpc"
	"redline/engine/internal/settings"
	"redline/engine/internal/term"
)

func main() {
	root := &cobra.Command{
		Use:           "redline",
		Short:         "human-reviewed, localized document edits",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var filePath string
	var settingsPath string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the engine as a stdio JSON-RPC process for a UI shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(filePath, settingsPath)
		},
	}
	serveCmd.Flags().StringVar(&filePath, "file", "", "document to edit (defaults to an empty document)")
	serveCmd.Flags().StringVar(&settingsPath, "settings", "", "settings file (defaults to the data dir)")

	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "review edits interactively in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(filePath, settingsPath)
		},
	}
	reviewCmd.Flags().StringVar(&filePath, "file", "", "document to edit")
	reviewCmd.Flags().StringVar(&settingsPath, "settings", "", "settings file (defaults to the data dir)")
	_ = reviewCmd.MarkFlagRequired("file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s (api %s)\n", "redline", engine.Version, engine.APIVersion)
		},
	}

	root.AddCommand(serveCmd, reviewCmd, versionCmd)
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

type bootstrap struct {
	logger *slog.Logger
	close  func() error
	eng    *engine.Engine
}

func boot(filePath, settingsPath string) (*bootstrap, error) {
	envResult := envfile.Load()
	debug := envutil.Bool("REDLINE_DEBUG")
	dataDir, err := appdirs.DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	logSetup, logErr := logging.NewFileLogger(dataDir, debug)
	logger := logSetup.Logger.With("component", "engine")
	if logSetup.Enabled {
		logger.Info("engine.logging_enabled", "path", logSetup.Path)
	}
	if envResult.Loaded {
		logger.Debug("engine.env_loaded", "path", envResult.Path, "keys", envResult.Keys)
	}
	if envResult.Err != nil {
		logger.Warn("engine.env_load_failed", "path", envResult.Path, "error", envResult.Err.Error())
	}
	if logErr != nil {
		logger.Warn("engine.log_setup_failed", "error", logErr.Error())
	}

	if settingsPath == "" {
		settingsPath = appdirs.SettingsPath(dataDir)
	}
	store := settings.NewStore(settingsPath)
	cfg, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	document := ""
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		document = string(data)
	}

	locator, rewriter := buildCollaborators(cfg, logger)
	eng := engine.New(document,
		engine.WithLogger(logger),
		engine.WithCollaborators(locator, rewriter),
		engine.WithSettingsStore(store),
	)
	return &bootstrap{logger: logger, close: logSetup.Close, eng: eng}, nil
}

// buildCollaborators wires the locator and rewriter tasks to provider
// clients per the settings task map. Missing credentials surface at call
// time as collaborator failures, not at startup.
func buildCollaborators(cfg *settings.Settings, logger *slog.Logger) (collab.Locator, collab.Rewriter) {
	clients := map[string]collab.ChatClient{}
	tasks := map[string]collab.TaskConfig{}

	for _, task := range []string{collab.TaskLocator, collab.TaskRewriter} {
		name := cfg.ProviderFor(task)
		if name == "" {
			logger.Warn("engine.no_provider_for_task", "task", task)
			continue
		}
		provider := cfg.Providers[name]
		if _, ok := clients[name]; !ok {
			switch name {
			case settings.ProviderGemini:
				clients[name] = gemini.NewClient()
			case settings.ProviderLocal:
				baseURL := os.Getenv(provider.BaseURLEnv)
				if baseURL == "" {
					logger.Warn("engine.local_base_url_missing", "env", provider.BaseURLEnv)
					continue
				}
				client, err := openai.NewClient(baseURL)
				if err != nil {
					logger.Warn("engine.local_client_invalid", "error", err.Error())
					continue
				}
				clients[name] = client
			default:
				logger.Warn("engine.unknown_provider", "provider", name)
				continue
			}
		}
		tasks[task] = collab.TaskConfig{
			Provider:     name,
			Model:        provider.Model,
			APIKey:       os.Getenv(provider.APIKeyEnv),
			SystemPrompt: cfg.SystemPrompts[task],
		}
	}
	service := collab.NewService(clients, tasks, logger)
	return service, service
}

func runServe(filePath, settingsPath string) error {
	b, err := boot(filePath, settingsPath)
	if err != nil {
		return err
	}
	defer b.close()

	server := rpc.NewServer(engine.APIVersion, os.Stdin, os.Stdout, b.logger)
	b.eng.SetNotifier(server.Notify)

	server.Register("EngineGetInfo", wrap(b.eng.RPCEngineGetInfo))
	server.Register("SessionStart", wrap(b.eng.RPCSessionStart))
	server.Register("SessionGetState", wrap(b.eng.RPCSessionGetState))
	server.Register("SessionRevert", wrap(b.eng.RPCSessionRevert))
	server.Register("SessionTerminate", wrap(b.eng.RPCSessionTerminate))
	server.Register("ContentGet", wrap(b.eng.RPCContentGet))
	server.Register("ContentGetDiff", wrap(b.eng.RPCContentGetDiff))
	server.Register("EditSubmitRequest", wrap(b.eng.RPCEditSubmitRequest))
	server.Register("EditConfirmLocation", wrap(b.eng.RPCEditConfirmLocation))
	server.Register("EditDecide", wrap(b.eng.RPCEditDecide))
	server.Register("EditSubmitClarification", wrap(b.eng.RPCEditSubmitClarification))
	server.Register("SettingsGet", wrap(b.eng.RPCSettingsGet))
	server.Register("SettingsUpdate", wrap(b.eng.RPCSettingsUpdate))

	if err := server.Serve(context.Background()); err != nil {
		b.logger.Error("rpc.server_error", "error", err.Error())
		return err
	}
	return nil
}

func wrap(fn func(context.Context, json.RawMessage) (any, *errinfo.ErrorInfo)) rpc.Handler {
	return func(ctx context.Context, params json.RawMessage) (any, *rpc.Error) {
		result, info := fn(ctx, params)
		if info != nil {
			msg := info.ErrorCode
			if info.Detail != "" {
				msg = info.Detail
			}
			return nil, &rpc.Error{Message: msg, Data: info}
		}
		return result, nil
	}
}

func runReview(filePath, settingsPath string) error {
	b, err := boot(filePath, settingsPath)
	if err != nil {
		return err
	}
	defer b.close()

	reviewer := term.NewReviewer(b.eng, os.Stdin, os.Stdout)
	final, err := reviewer.Run(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(final)
	return nil
}
