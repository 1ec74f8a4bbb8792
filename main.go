// Command overland starts the overland movement server.
//
// It supports three commands:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, metrics and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "generate" – writes a procedurally generated scenario
//
// Flags (or their environment variables) control host/port, config and session
// storage, debug logging, and optional ngrok tunneling for easy external
// access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"gopkg.in/yaml.v3"

	"github.com/wricardo/overland/api"
	"github.com/wricardo/overland/game/config"
	"github.com/wricardo/overland/game/generate"
	"github.com/wricardo/overland/game/service"
	"github.com/wricardo/overland/game/session"
	"github.com/wricardo/overland/logging"
	"github.com/wricardo/overland/transport/mcp"
	"github.com/wricardo/overland/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Overland Movement Server"
)

// Session store kinds
const (
	StoreFile   = "file"
	StoreZstd   = "zstd"
	StoreSQLite = "sqlite"
)

var errUnknownStore = errors.New("unknown session store")

var log = logging.Component("main")

// Options holds everything the server commands read from flags
type Options struct {
	Host        string
	Port        int
	ConfigDir   string
	SessionsDir string
	Store       string
	Debug       bool
	JSONLogs    bool

	NgrokEnabled bool
	NgrokAuth    string
	NgrokDomain  string
}

func optionsFrom(cmd *cli.Command) Options {
	return Options{
		Host:         cmd.String("host"),
		Port:         int(cmd.Int("port")),
		ConfigDir:    cmd.String("config-dir"),
		SessionsDir:  cmd.String("sessions-dir"),
		Store:        cmd.String("session-store"),
		Debug:        cmd.Bool("debug"),
		JSONLogs:     cmd.Bool("log-json"),
		NgrokEnabled: cmd.Bool("ngrok"),
		NgrokAuth:    cmd.String("ngrok-auth"),
		NgrokDomain:  cmd.String("ngrok-domain"),
	}
}

func (o Options) addr() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("OVERLAND_HOST")},
		&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("OVERLAND_PORT", "PORT")},
		&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "directory containing scenario files", Sources: cli.EnvVars("CONFIG_DIR")},
		&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "directory for persisted sessions", Sources: cli.EnvVars("SESSIONS_DIR")},
		&cli.StringFlag{Name: "session-store", Value: StoreFile, Usage: "session store: file, zstd or sqlite", Sources: cli.EnvVars("SESSION_STORE")},
		&cli.BoolFlag{Name: "debug", Usage: "enable debug logging", Sources: cli.EnvVars("DEBUG")},
		&cli.BoolFlag{Name: "log-json", Usage: "log as JSON", Sources: cli.EnvVars("LOG_JSON")},
		&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
		&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
		&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "overland",
		Usage:   AppName,
		Version: Version,
		Flags:   serverFlags(),
		Action:  runServerCommand,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "run HTTP server with API, WebSocket, metrics and MCP endpoint",
				Flags:   serverFlags(),
				Action:  runServerCommand,
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run MCP stdio server with internal HTTP server",
				Flags:   serverFlags(),
				Action:  runMCPCommand,
			},
			{
				Name:  "generate",
				Usage: "write a procedurally generated scenario",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "scenario name"},
					&cli.IntFlag{Name: "seed", Value: 1, Usage: "random seed"},
					&cli.IntFlag{Name: "width", Value: 24},
					&cli.IntFlag{Name: "height", Value: 16},
					&cli.IntFlag{Name: "planes", Value: 2},
					&cli.IntFlag{Name: "players", Value: 2},
					&cli.BoolFlag{Name: "no-wrap", Usage: "do not wrap left to right"},
					&cli.StringFlag{Name: "out", Usage: "output file (.json, .yaml or .yml); stdout when empty"},
				},
				Action: runGenerateCommand,
			},
		},
	}
}

// main loads .env, parses flags and runs the selected command
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("Error loading .env file")
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("overland failed")
	}
}

func runServerCommand(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	logging.Init(opts.Debug, opts.JSONLogs)
	log.WithFields(logrus.Fields{"version": Version, "mode": "server"}).Infof("Starting %s", AppName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := initializeServices(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.Close()

	return runHTTPServer(ctx, opts, svc)
}

func runMCPCommand(ctx context.Context, cmd *cli.Command) error {
	opts := optionsFrom(cmd)
	logging.Init(opts.Debug, opts.JSONLogs)
	// stdout carries the MCP protocol
	logging.SetOutput(os.Stderr)
	log.WithFields(logrus.Fields{"version": Version, "mode": "mcp"}).Infof("Starting %s", AppName)

	svc, err := initializeServices(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svc.Close()

	return runStdioMCPWithInternalServer(ctx, opts, svc)
}

func runGenerateCommand(ctx context.Context, cmd *cli.Command) error {
	genOpts := generate.DefaultOptions()
	genOpts.Name = cmd.String("name")
	genOpts.Seed = int64(cmd.Int("seed"))
	genOpts.Width = int(cmd.Int("width"))
	genOpts.Height = int(cmd.Int("height"))
	genOpts.Planes = int(cmd.Int("planes"))
	genOpts.Players = int(cmd.Int("players"))
	genOpts.Wrap = !cmd.Bool("no-wrap")

	return writeGenerated(genOpts, cmd.String("out"), os.Stdout)
}

// writeGenerated generates a scenario and writes it to path, or to w when path is empty
func writeGenerated(opts generate.Options, path string, w io.Writer) error {
	scenario, err := generate.Generate(opts)
	if err != nil {
		return err
	}

	var data []byte
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(scenario)
	default:
		data, err = json.MarshalIndent(scenario, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}

	if path == "" {
		_, err = w.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write scenario: %w", err)
	}
	log.WithFields(logrus.Fields{"path": path, "name": scenario.Name}).Info("Scenario written")
	return nil
}

// Services bundles the long-lived objects shared by the server commands
type Services struct {
	Game        service.GameService
	Sessions    *session.Manager
	Persistence session.SessionPersistence
	Registry    *prometheus.Registry

	closers []io.Closer
}

// Close releases the session store
func (s *Services) Close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			log.WithError(err).Warn("Failed to close")
		}
	}
}

// newPersistence opens the session store selected by opts.Store
func newPersistence(opts Options, configs service.ConfigManager) (session.SessionPersistence, io.Closer, error) {
	switch opts.Store {
	case StoreFile, "":
		p, err := session.NewFilePersistence(opts.SessionsDir, configs)
		return p, nil, err
	case StoreZstd:
		p, err := session.NewCompressedFilePersistence(opts.SessionsDir, configs)
		return p, nil, err
	case StoreSQLite:
		p, err := session.NewSQLitePersistence(filepath.Join(opts.SessionsDir, "sessions.db"), configs)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownStore, opts.Store)
	}
}

// initializeServices wires config/session managers, metrics and the game service.
// It also starts the background routines that prune stale sessions; they stop with ctx.
func initializeServices(ctx context.Context, opts Options) (*Services, error) {
	configManager, err := config.NewManager(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, closer, err := newPersistence(opts, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.WithError(err).Warn("Failed to load persisted sessions")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := &Services{
		Game:        service.NewGameServiceWithMetrics(sessionManager, configManager, service.NewMetrics(registry)),
		Sessions:    sessionManager,
		Persistence: persistence,
		Registry:    registry,
	}
	if closer != nil {
		svc.closers = append(svc.closers, closer)
	}

	go sessionCleanupRoutine(ctx, sessionManager, time.Hour, 24*time.Hour)
	go storeSyncRoutine(ctx, sessionManager, persistence, 5*time.Second)

	log.WithFields(logrus.Fields{
		"config_dir": opts.ConfigDir,
		"store":      opts.Store,
		"sessions":   sessionManager.Count(),
	}).Info("Services initialized")

	return svc, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been accessed
// within the retention window.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, every, maxAge time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				log.WithField("removed", removed).Info("Cleaned up expired sessions")
			}
		}
	}
}

// syncWithStore drops sessions from memory whose stored copy was deleted
func syncWithStore(manager *session.Manager, persistence session.SessionPersistence) int {
	if persistence == nil {
		return 0
	}

	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			log.WithField("session_id", s.ID).Info("Pruned session from memory (deleted from store)")
		}
	}
	return pruned
}

// storeSyncRoutine periodically syncs in-memory sessions with the session store
func storeSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := syncWithStore(manager, persistence); pruned > 0 {
				log.WithField("pruned", pruned).Info("Store sync pruned orphaned sessions")
			}
		}
	}
}

// mcpHandler serves single MCP JSON-RPC messages over HTTP POST
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)
		if response == nil {
			// notifications have no response
			w.WriteHeader(http.StatusAccepted)
			return
		}

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// newRouter mounts the API (with /metrics) at root and MCP at /mcp
func newRouter(svc *Services, hub *websocket.Hub, baseURL string) http.Handler {
	apiServer := api.NewServer(svc.Game, hub, api.WithRegistry(svc.Registry))
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient.GetMCPServer()))
	return mainRouter
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, metrics and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel. It returns when ctx is cancelled.
func runHTTPServer(ctx context.Context, opts Options, svc *Services) error {
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	addr := opts.addr()
	mainRouter := newRouter(svc, hub, "http://"+addr)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.WithFields(logrus.Fields{
			"addr":      addr,
			"api":       fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
			"metrics":   fmt.Sprintf("http://%s/metrics", addr),
		}).Info("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	if opts.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, opts, mainRouter)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err = <-serveErr:
		log.WithError(err).Error("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithError(shutdownErr).Warn("HTTP server shutdown error")
	}

	if saveErr := svc.Sessions.SaveAllSessions(); saveErr != nil {
		log.WithError(saveErr).Warn("Failed to save sessions on shutdown")
	}

	wg.Wait()
	log.Info("Server stopped")
	return err
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx is cancelled
func runNgrokTunnel(ctx context.Context, opts Options, handler http.Handler) {
	if opts.NgrokAuth == "" {
		log.Warn("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if opts.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.NgrokDomain))
		log.WithField("domain", opts.NgrokDomain).Info("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.NgrokAuth))
	if err != nil {
		log.WithError(err).Error("Failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("Failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.WithFields(logrus.Fields{
		"url":       ngrokURL,
		"api":       ngrokURL + "/api",
		"websocket": ngrokURL + "/ws?session=<session_id>",
		"mcp":       ngrokURL + "/mcp",
	}).Info("🚀 Ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.WithError(err).Warn("Ngrok server error")
	}
	log.Info("Ngrok tunnel closed")
}

// externalAPIAvailable reports whether an API server already answers at baseURL
func externalAPIAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// startInternalServer serves the API on a random loopback port and returns its base URL
func startInternalServer(svc *Services) (string, *http.Server, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	httpServer := &http.Server{
		Handler: api.NewServer(svc.Game, hub, api.WithRegistry(svc.Registry)),
	}
	httpServer.RegisterOnShutdown(hub.Stop)

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Internal HTTP server error")
		}
	}()

	return "http://" + listener.Addr().String(), httpServer, nil
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It reuses an API already listening on the configured address; if unavailable,
// it starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, opts Options, svc *Services) error {
	baseURL := "http://" + opts.addr()
	log.WithField("url", baseURL).Info("Checking for external API server")

	if externalAPIAvailable(ctx, baseURL) {
		log.WithField("url", baseURL).Info("External API server found, using it for MCP")
	} else {
		internalURL, httpServer, err := startInternalServer(svc)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		}()
		baseURL = internalURL
		log.WithField("url", baseURL).Info("Started internal HTTP server for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
