package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matjam/smoothframes/internal/config"
	"github.com/matjam/smoothframes/internal/glrender"
	"github.com/matjam/smoothframes/internal/ipc"
	"github.com/matjam/smoothframes/internal/slideshow"
)

func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the slideshow",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			StartManager(cmd)
		},
	}
}

// StartManager runs the slideshow until it is stopped. It must be called on
// the main goroutine, which owns the OpenGL context.
func StartManager(cmd *cobra.Command) {
	background, _ := cmd.Flags().GetBool("background")
	windowed, _ := cmd.Flags().GetBool("windowed")

	if _, err := ipc.SendStatus(); err == nil {
		log.Infof("smoothframes is already running, exiting")
		return
	}

	if background {
		ctx, err := daemonContext()
		if err != nil {
			log.Fatalf("failed to prepare background process: %v", err)
		}
		child, err := ctx.Reborn()
		if err != nil {
			log.Fatalf("failed to start background process: %v", err)
		}
		if child != nil {
			log.Infof("smoothframes started in background, PID %d", child.Pid)
			return
		}
		defer ctx.Release()
	}

	log.Infof("StartManager() started in PID: %d", os.Getpid())

	if os.Getenv("BACKGROUND_PROCESS") == "1" {
		setupRotatingLogger()
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Bad configuration: %v", err)
	}
	log.Infof("Showing %s in a %dx%d grid", cfg.Images, cfg.Columns, cfg.Rows)

	show := slideshow.New(cfg, slideshow.Options{})

	window, err := glrender.New(glrender.Options{
		Framerate: cfg.FramerateLimit,
		Windowed:  windowed,
		OnIconify: func(iconified bool) {
			t := ipc.CommandResume
			if iconified {
				t = ipc.CommandPause
			}
			show.Post(ipc.Command{Type: t})
		},
		OnError: show.ReportGPUError,
	})
	if err != nil {
		log.Fatalf("Failed to open window: %v", err)
	}

	server, err := ipc.Listen(show)
	if err != nil {
		window.Close()
		log.Fatalf("Failed to open control socket: %v", err)
	}
	go func() {
		if err := server.Serve(); err != nil {
			log.Errorf("Socket server error: %v", err)
		}
	}()

	watchConfig(show)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := show.Run(ctx, window)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("socket server shutdown: %v", err)
	}
	cancel()
	window.Close()

	if runErr != nil {
		log.Fatalf("slideshow failed: %v", runErr)
	}
	log.Infof("smoothframes exited")
}

// watchConfig feeds edits of the config file to the running show.
func watchConfig(show *slideshow.Show) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			log.Errorf("ignoring config change: %v", err)
			return
		}
		log.Infof("config file %s changed", e.Name)
		show.Reconfigure(cfg)
	})
	viper.WatchConfig()
}

func dataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "smoothframes")
}

func daemonContext() (*daemon.Context, error) {
	dir := dataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	// The child runs with the same arguments and calls Reborn again, which
	// returns nil there.
	return &daemon.Context{
		PidFileName: filepath.Join(dir, "smoothframes.pid"),
		PidFilePerm: 0o644,
		WorkDir:     "/",
		Umask:       0o027,
		Env:         append(os.Environ(), "BACKGROUND_PROCESS=1"),
	}, nil
}

func setupRotatingLogger() {
	logDir := dataDir()
	logPath := filepath.Join(logDir, "smoothframes.log")

	if err := os.MkdirAll(logDir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		log.Fatalf("failed to create log directory: %v", err)
	}

	writer, err := rotatelogs.New(
		logPath+".%Y%m%d%H%M",
		rotatelogs.WithLinkName(logPath),
		rotatelogs.WithMaxAge(7*24*time.Hour),
		rotatelogs.WithRotationSize(10*1024*1024),
		rotatelogs.WithRotationTime(24*time.Hour),
	)
	if err != nil {
		log.Fatalf("failed to configure log rotation: %v", err)
	}

	log.SetOutput(writer)
	if !viper.GetBool("debug") {
		log.SetLevel(log.InfoLevel)
	}
}
