// Command kickroom serves and runs the kick room solver.
//
// Subcommands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, the
//     WebSocket progress stream, /metrics and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "solve" solves a puzzle offline and prints the solution
//
// Flags control host/port, puzzle directory, debug logging and optional
// ngrok tunneling for easy external access during development. Every flag
// can also be set from the environment or a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/kickroom/api"
	"github.com/wricardo/kickroom/game/config"
	"github.com/wricardo/kickroom/game/engine"
	"github.com/wricardo/kickroom/game/service"
	"github.com/wricardo/kickroom/game/session"
	"github.com/wricardo/kickroom/transport/mcp"
	"github.com/wricardo/kickroom/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Kick Room Solver"
)

// appConfig is everything the serve and mcp commands need to wire services.
type appConfig struct {
	Host        string
	Port        int
	ConfigDir   string
	RunsDir     string
	StateLimit  int
	BatchLimit  int
	RunMaxAge   time.Duration
	Watch       bool
	NgrokOn     bool
	NgrokAuth   string
	NgrokDomain string
	ExternalURL string
}

// defaultConfig mirrors the flag defaults.
func defaultConfig() appConfig {
	return appConfig{
		Host:        "localhost",
		Port:        8080,
		ConfigDir:   "configs",
		RunsDir:     "runs",
		StateLimit:  5_000_000,
		RunMaxAge:   24 * time.Hour,
		Watch:       true,
		ExternalURL: "http://localhost:8080",
	}
}

// services are the long-lived objects shared by the HTTP and MCP modes.
type services struct {
	solver  service.SolverService
	puzzles *config.Manager
	runs    *session.Manager
	hub     *websocket.Hub
	persist session.RunPersistence
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree.
func newApp() *cli.Command {
	def := defaultConfig()
	return &cli.Command{
		Name:           "kickroom",
		Usage:          "Solve kick room puzzles over HTTP, MCP or the command line",
		Version:        Version,
		DefaultCommand: "serve",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   def.ConfigDir,
				Usage:   "Directory containing puzzle files",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("KICKROOM_DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd.Bool("debug"))
			return ctx, nil
		},
		Commands: []*cli.Command{serveCommand(def), mcpCommand(def), solveCommand()},
	}
}

// setupLogging configures both the standard logger and slog.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// serviceFlags are shared by serve and mcp.
func serviceFlags(def appConfig) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "runs-dir",
			Value:   def.RunsDir,
			Usage:   "Directory where solve runs are persisted (empty disables persistence)",
			Sources: cli.EnvVars("KICKROOM_RUNS_DIR"),
		},
		&cli.IntFlag{
			Name:    "state-limit",
			Value:   def.StateLimit,
			Usage:   "Default cap on distinct states per search (0 = unlimited)",
			Sources: cli.EnvVars("KICKROOM_STATE_LIMIT"),
		},
		&cli.IntFlag{
			Name:    "batch-limit",
			Usage:   "Puzzles solved at once by a batch request (0 = number of CPUs)",
			Sources: cli.EnvVars("KICKROOM_BATCH_LIMIT"),
		},
		&cli.DurationFlag{
			Name:    "run-max-age",
			Value:   def.RunMaxAge,
			Usage:   "Finished runs older than this are dropped from memory",
			Sources: cli.EnvVars("KICKROOM_RUN_MAX_AGE"),
		},
		&cli.BoolFlag{
			Name:    "watch",
			Value:   def.Watch,
			Usage:   "Reload puzzle files when they change",
			Sources: cli.EnvVars("KICKROOM_WATCH"),
		},
	}
}

// configFrom reads the flags of cmd (and its parents) into an appConfig.
func configFrom(cmd *cli.Command) appConfig {
	cfg := defaultConfig()
	cfg.ConfigDir = cmd.String("config-dir")
	cfg.RunsDir = cmd.String("runs-dir")
	cfg.StateLimit = cmd.Int("state-limit")
	cfg.BatchLimit = cmd.Int("batch-limit")
	cfg.RunMaxAge = cmd.Duration("run-max-age")
	cfg.Watch = cmd.Bool("watch")
	if cmd.Name == "serve" {
		cfg.Host = cmd.String("host")
		cfg.Port = cmd.Int("port")
		cfg.NgrokOn = cmd.Bool("ngrok")
		cfg.NgrokAuth = cmd.String("ngrok-auth")
		cfg.NgrokDomain = cmd.String("ngrok-domain")
	}
	if cmd.Name == "mcp" {
		cfg.ExternalURL = cmd.String("api-url")
	}
	return cfg
}

func serveCommand(def appConfig) *cli.Command {
	flags := append(serviceFlags(def),
		&cli.StringFlag{
			Name:    "host",
			Value:   def.Host,
			Usage:   "HTTP server host",
			Sources: cli.EnvVars("KICKROOM_HOST"),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   def.Port,
			Usage:   "HTTP server port",
			Sources: cli.EnvVars("KICKROOM_PORT", "PORT"),
		},
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "Enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "Ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "Custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server with REST API, WebSocket, metrics and MCP endpoint",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFrom(cmd)
			log.Printf("Starting %s v%s (mode: serve)", AppName, Version)

			svc, err := initializeServices(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize services: %w", err)
			}
			return runHTTPServer(ctx, cfg, svc)
		},
	}
}

func mcpCommand(def appConfig) *cli.Command {
	flags := append(serviceFlags(def),
		&cli.StringFlag{
			Name:    "api-url",
			Value:   def.ExternalURL,
			Usage:   "REST API to proxy when it is already running",
			Sources: cli.EnvVars("KICKROOM_API_URL"),
		},
	)

	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "Run an MCP stdio server backed by the REST API",
		Flags:   flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFrom(cmd)
			// stdout belongs to the MCP protocol
			log.SetOutput(os.Stderr)
			log.Printf("Starting %s v%s (mode: mcp)", AppName, Version)

			svc, err := initializeServices(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize services: %w", err)
			}
			return runStdioMCPWithInternalServer(ctx, cfg, svc)
		},
	}
}

// buildMainRouter mounts the API server and the /mcp HTTP endpoint.
func buildMainRouter(apiServer http.Handler, mcpClient *mcp.Client) *http.ServeMux {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)

	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(parent context.Context, cfg appConfig, svc *services) error {
	apiServer := api.NewServer(svc.solver, svc.hub)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	mainRouter := buildMainRouter(apiServer, mcpClient)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		// solves answer synchronously, so writes get more room than reads
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	startBackground(ctx, &wg, cfg, svc)

	serveErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?puzzle=<puzzle_id>", addr)
		log.Printf("Metrics: http://%s/metrics", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if cfg.NgrokOn {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cfg, mainRouter)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		log.Printf("Shutting down...")
	case err = <-serveErr:
		log.Printf("HTTP server failed: %v", err)
		stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := svc.runs.SaveAllRuns(); err != nil {
		log.Printf("Failed to save runs: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return err
}

// runNgrok serves handler through an ngrok tunnel until ctx is done.
func runNgrok(ctx context.Context, cfg appConfig, handler http.Handler) {
	if cfg.NgrokAuth == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		log.Printf("Using custom ngrok domain: %s", cfg.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	ngrokURL := tun.URL()
	log.Printf("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// initializeServices wires the puzzle catalog, run store, hub and solver.
func initializeServices(cfg appConfig) (*services, error) {
	puzzles, err := config.NewManager(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create puzzle manager: %w", err)
	}

	var (
		runs    *session.Manager
		persist session.RunPersistence
	)
	if cfg.RunsDir != "" {
		fp, err := session.NewFilePersistence(cfg.RunsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create run persistence: %w", err)
		}
		persist = fp
		runs = session.NewManagerWithPersistence(fp)
		if err := runs.LoadPersistedRuns(); err != nil {
			log.Printf("Warning: Failed to load persisted runs: %v", err)
		}
	} else {
		runs = session.NewManager()
	}

	hub := websocket.NewHub()
	go hub.Run()

	opts := []service.Option{
		service.WithProgressSink(hub),
		service.WithDefaultStateLimit(cfg.StateLimit),
	}
	if cfg.BatchLimit > 0 {
		opts = append(opts, service.WithBatchLimit(cfg.BatchLimit))
	}

	return &services{
		solver:  service.NewSolverService(runs, puzzles, opts...),
		puzzles: puzzles,
		runs:    runs,
		hub:     hub,
		persist: persist,
	}, nil
}

// startBackground launches the run cleanup, filesystem sync and puzzle
// watcher loops. They stop with ctx.
func startBackground(ctx context.Context, wg *sync.WaitGroup, cfg appConfig, svc *services) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		runCleanupRoutine(ctx, svc.runs, cfg.RunMaxAge)
	}()
	go func() {
		defer wg.Done()
		filesystemSyncRoutine(ctx, svc.runs, svc.persist)
	}()

	if cfg.Watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.puzzles.Watch(ctx, nil); err != nil {
				log.Printf("Puzzle watcher stopped: %v", err)
			}
		}()
	}
}

// runCleanupRoutine periodically removes finished runs older than maxAge.
func runCleanupRoutine(ctx context.Context, manager *session.Manager, maxAge time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpired(maxAge); removed > 0 {
				log.Printf("Cleaned up %d expired runs", removed)
			}
		}
	}
}

// filesystemSyncRoutine drops runs from memory when their file is deleted.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.RunPersistence) {
	if persistence == nil {
		return
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOrphanedRuns(manager, persistence)
		}
	}
}

// pruneOrphanedRuns removes finished in-memory runs whose file is gone.
func pruneOrphanedRuns(manager *session.Manager, persistence session.RunPersistence) int {
	pruned := 0
	for _, run := range manager.List() {
		// running runs are written on completion
		if !run.Done() || persistence.Exists(run.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(run.ID); err == nil {
			pruned++
			log.Printf("Pruned run %s from memory (file deleted)", run.ID)
		}
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at cfg.ExternalURL; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, cfg appConfig, svc *services) error {
	baseURL := cfg.ExternalURL

	log.Printf("Checking for external API server at %s...", baseURL)
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Printf("External API server found at %s, using it for MCP", baseURL)
	} else {
		log.Printf("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		internalAddr := listener.Addr().String()
		log.Printf("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		httpServer := &http.Server{Handler: api.NewServer(svc.solver, svc.hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		var wg sync.WaitGroup
		bgCtx, cancel := context.WithCancel(ctx)
		startBackground(bgCtx, &wg, cfg, svc)
		defer func() {
			cancel()
			wg.Wait()
		}()

		baseURL = "http://" + internalAddr
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Printf("MCP stdio server ready (API: %s)", baseURL)

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// loadPuzzleArg resolves the puzzle for the solve command: an existing
// file path, a puzzle ID in the config directory, or the built-in room.
func loadPuzzleArg(arg, configDir string) (*engine.PuzzleConfig, error) {
	if arg == "" {
		return engine.DefaultPuzzle(), nil
	}
	if _, err := os.Stat(arg); err == nil {
		return engine.LoadPuzzleConfig(arg)
	}
	manager, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("%s is not a file and the puzzle directory is unusable: %w", arg, err)
	}
	return manager.LoadPuzzle(arg)
}

func solveCommand() *cli.Command {
	return &cli.Command{
		Name:      "solve",
		Usage:     "Solve a puzzle offline and print the solution",
		ArgsUsage: "[puzzle file or id]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Search mode: shortest or budget (default: the puzzle's mode)",
			},
			&cli.IntFlag{
				Name:  "budget",
				Usage: "Move budget for budget mode (default: the puzzle's budget)",
			},
			&cli.IntFlag{
				Name:  "state-limit",
				Usage: "Stop after this many distinct states (0 = unlimited)",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Print only the moves",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			puzzle, err := loadPuzzleArg(cmd.Args().First(), cmd.String("config-dir"))
			if err != nil {
				return err
			}
			mode, err := engine.ParseMode(cmd.String("mode"))
			if err != nil {
				return err
			}
			if !cmd.IsSet("mode") {
				mode = ""
			}
			return runSolve(cmd.Root().Writer, puzzle, mode, cmd.Int("budget"), cmd.Int("state-limit"), cmd.Bool("quiet"))
		},
	}
}

// runSolve solves puzzle and writes the solution to w.
func runSolve(w io.Writer, puzzle *engine.PuzzleConfig, mode engine.Mode, budget, stateLimit int, quiet bool) error {
	eng, err := engine.NewEngine(puzzle)
	if err != nil {
		return err
	}

	var opts []engine.Option
	if stateLimit > 0 {
		opts = append(opts, engine.WithStateLimit(stateLimit))
	}

	start := time.Now()
	result, err := eng.Solve(mode, budget, opts...)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if result.Solution == nil {
		if result.Truncated {
			return fmt.Errorf("search stopped after %d states without a solution", result.Visited)
		}
		fmt.Fprintln(w, puzzle.UnsolvableMessage())
		return nil
	}

	moves := make([]string, 0, len(result.Solution.Steps))
	for _, d := range result.Solution.Moves() {
		moves = append(moves, d.String())
	}
	if quiet {
		fmt.Fprintln(w, strings.Join(moves, " "))
		return nil
	}

	if puzzle.Name != "" {
		fmt.Fprintf(w, "%s\n\n", puzzle.Name)
	}
	fmt.Fprint(w, engine.RenderSolution(eng.Board(), *result.Solution))
	fmt.Fprintf(w, "\nMoves: %s\n", strings.Join(moves, " "))
	fmt.Fprintln(w, puzzle.SolvedMessage(len(moves)))
	fmt.Fprintf(w, "Mode: %s  Visited: %d  Expanded: %d  Time: %s\n",
		result.Mode, result.Visited, result.Expanded, elapsed.Round(time.Millisecond))
	if result.Mode == engine.ModeBudget {
		fmt.Fprintf(w, "Budget: %d  Steps left: %d\n", result.Budget, result.StepsLeft)
	}
	return nil
}
