package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/plugin"
	"github.com/ayusman/abhinaya/internal/pose"
	"github.com/ayusman/abhinaya/internal/server"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON tuning file")
	withTray := flag.Bool("tray", false, "show the system tray menu")
	flag.Parse()

	logger := logrus.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	logger.SetLevel(cfg.Level())
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger.Info("Abhinaya - Body Movement Analysis")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logger.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		logger.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	var provider pose.Provider
	if mp, err := pose.NewMediaPipeProvider(cfg.PoseConfig()); err != nil {
		logger.Warnf("Landmark service unavailable: %v", err)
	} else {
		provider = mp
	}

	manager := plugin.NewManager(cfg.PluginDir(), logger.WithField("component", "plugins"))
	if err := manager.Discover(); err != nil {
		logger.Warnf("Plugin discovery failed: %v", err)
	}
	dispatcher := plugin.NewDispatcher(manager, plugin.NewExecutor(cfg.PluginTimeout()), logger.WithField("component", "plugins"))
	defer dispatcher.Close()

	a, err := app.New(app.Config{
		Camera:      capture.NewCamera(cfg.CaptureConfig(), logger.WithField("component", "camera")),
		Provider:    provider,
		Store:       st,
		Plugins:     dispatcher,
		Session:     cfg.SessionConfig(),
		Tracker:     cfg.TrackerConfig(),
		Render:      cfg.RenderConfig(),
		Gate:        cfg.GateConfig(),
		FrameBudget: cfg.FrameBudget(),
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize pipeline: %v", err)
	}
	a.SetEnabled(true)
	if err := a.Start(); err != nil {
		logger.Errorf("Camera pipeline not started: %v", err)
	}
	defer a.Stop()

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir(cfg.DataDir)
	}
	if staticDir != "" {
		logger.Infof("Serving static files from: %s", staticDir)
	}

	srv := server.New(server.Config{StaticDir: staticDir, Store: st, App: a}, logger.WithField("component", "server"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Infof("Starting server on %s", cfg.Addr)
		if err := srv.ListenAndServe(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Server failed: %v", err)
			stop()
		}
	}()

	if *withTray {
		runTray(ctx, stop, a, cfg.Addr, logger)
	} else {
		<-ctx.Done()
	}
	logger.Info("Shutting down")
}

// runTray blocks on the tray menu until Quit or ctx ends.
func runTray(ctx context.Context, quit context.CancelFunc, a *app.App, addr string, logger logrus.FieldLogger) {
	t := tray.New(a.Mirrored())
	t.OnToggle(a.SetEnabled)
	t.OnMirror(a.SetMirrored)
	t.OnResetTracking(a.ResetTracking)
	t.OnOpen(func() {
		if err := openBrowser(viewerURL(addr)); err != nil {
			logger.Warnf("Failed to open browser: %v", err)
		}
	})
	t.OnQuit(quit)

	results, cancel := a.Subscribe()
	defer cancel()
	go func() {
		for fr := range results {
			if len(fr.Movements) > 0 {
				t.SetLastSummary(fr.Summary)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		tray.Quit()
	}()
	t.Run()
}

func viewerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations: "web",
// "../web", "../../web" and the data directory.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}
