// v80cam serves a V380-style RTSP camera over HTTP: live status, on-demand
// snapshots and one-shot capture-and-upload to Cloudinary.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/obedfeni/v80-cam/internal/capture"
	"github.com/obedfeni/v80-cam/internal/config"
	"github.com/obedfeni/v80-cam/internal/stream"
	"github.com/obedfeni/v80-cam/internal/stream/gstsource"
	"github.com/obedfeni/v80-cam/internal/upload"
	"github.com/obedfeni/v80-cam/internal/web"
)

var version = "0.3.0"

func main() {
	app := &cli.App{
		Name:    "v80cam",
		Usage:   "RTSP camera stream and capture service",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "Path to YAML config file (missing file falls back to defaults + env)",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			snapshotCommand(),
			{
				Name:  "version",
				Usage: "Print the version and exit",
				Action: func(c *cli.Context) error {
					fmt.Println(version)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the config path. The default "config.yaml" is
// optional; an explicitly named file must exist.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if !c.IsSet("config") {
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config, debug bool) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func buildApp(cfg *config.Config) (*web.App, error) {
	uploader, err := upload.NewCloudinary(
		cfg.Cloudinary.CloudName,
		cfg.Cloudinary.APIKey,
		cfg.Cloudinary.APISecret,
	)
	if err != nil {
		return nil, err
	}

	newSource := func() (stream.Source, error) {
		return gstsource.NewSource(cfg.Camera.Width, cfg.Camera.Height)
	}

	return web.NewApp(cfg, newSource, uploader, nil)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP service",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			setupLogging(cfg, c.Bool("debug"))

			app, err := buildApp(cfg)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:         cfg.Server.Address,
				Handler:      web.NewRouter(app),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				slog.Info("v80cam: listening", "address", cfg.Server.Address, "version", version)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}

			slog.Info("v80cam: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("v80cam: server shutdown failed", "error", err)
			}
			app.Shutdown()
			slog.Info("v80cam: stopped")
			return nil
		},
	}
}

// snapshotCommand captures one frame and uploads it without running the
// HTTP service. Exit code reflects the upload outcome.
func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Connect, capture one frame, upload it and print the URL",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 30 * time.Second,
				Usage: "Overall deadline for connect, first frame and upload",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			setupLogging(cfg, c.Bool("debug"))

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, c.Duration("timeout"))
			defer cancel()

			uploader, err := upload.NewCloudinary(
				cfg.Cloudinary.CloudName,
				cfg.Cloudinary.APIKey,
				cfg.Cloudinary.APISecret,
			)
			if err != nil {
				return err
			}

			src, err := gstsource.NewSource(cfg.Camera.Width, cfg.Camera.Height)
			if err != nil {
				return err
			}

			quality := stream.QualityLow
			if cfg.Camera.Quality == "high" {
				quality = stream.QualityHigh
			}
			sess, err := stream.NewSession(stream.Config{
				URL:              cfg.Camera.URL,
				Quality:          quality,
				ConnectTimeout:   cfg.Camera.ConnectTimeout,
				ReadTimeout:      cfg.Camera.ReadTimeout,
				FailureThreshold: cfg.Camera.FailureThreshold,
			}, src, nil)
			if err != nil {
				return err
			}
			if err := sess.Start(ctx); err != nil {
				return err
			}
			defer sess.Stop()

			ctrl, err := capture.NewController(capture.Config{
				JPEGQuality:    cfg.Capture.JPEGQuality,
				Folder:         cfg.Capture.Folder,
				PublicIDPrefix: cfg.Capture.PublicIDPrefix,
				UploadTimeout:  cfg.Capture.UploadTimeout,
			}, sess, uploader, nil)
			if err != nil {
				return err
			}

			// Wait for the first decoded frame
			for {
				if _, ok := sess.Snapshot(); ok {
					break
				}
				select {
				case <-ctx.Done():
					return fmt.Errorf("no frame before deadline: %w", ctx.Err())
				case <-time.After(100 * time.Millisecond):
				}
			}

			res, err := ctrl.Capture(ctx)
			if err != nil {
				return err
			}
			if !res.OK {
				return fmt.Errorf("capture failed: %s", res.Reason)
			}
			fmt.Println(res.URL)
			return nil
		},
	}
}
