// Command queueboard serves the shared clinic queue board over websockets.
//
// Every client connected to the websocket route gets the full board on join
// and every accepted slot edit afterwards. The board lives in memory only.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"clinic-queue/internal/config"
	"clinic-queue/internal/hub"
	"clinic-queue/internal/logx"
	"clinic-queue/internal/slots"
)

func main() {
	var cfgPath, addr string
	flag.StringVar(&cfgPath, "config", "", "path to config file (.yaml, .yml or .json)")
	flag.StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath, addr); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath, addrOverride string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if addrOverride != "" {
		cfg.Server.Addr = addrOverride
	}

	logs, log := logx.New(cfg.LogConfig())
	defer logs.Close()

	cfgs := config.NewManager(cfgPath, cfg)
	cfgs.SetLogger(log.With(logx.String("component", "config")))
	go followConfig(ctx, cfgs, logs, log, addrOverride)

	store := slots.NewStore(cfg.Board.SlotCount)
	hubLog := log.With(logx.String("component", "hub"))
	manager := hub.NewManager(store, hub.NewClientManager(hubLog), hubLog)

	ws := hub.NewHandler(manager, hub.HandlerConfig{
		Client: hub.ClientOptions{
			SendBuffer:      cfg.Client.SendBuffer,
			WriteTimeout:    cfg.Client.WriteTimeout.Std(),
			PongTimeout:     cfg.Client.PongTimeout.Std(),
			MaxMessageBytes: cfg.Client.MaxMessageBytes,
			RatePerSec:      cfg.Client.RatePerSec,
			Burst:           cfg.Client.Burst,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         hubLog,
	})

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: hub.NewMux(manager, ws, hub.MuxConfig{
			WSPath:    cfg.Server.WSPath,
			StaticDir: cfg.Server.StaticDir,
		}),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Std(),
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		manager.Run(hubCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	log.Info("queue board listening",
		logx.String("addr", ln.Addr().String()),
		logx.String("ws_path", cfg.Server.WSPath),
		logx.Int("slots", store.Len()),
	)
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn("systemd notify failed", logx.Err(err))
	} else if ok {
		log.Debug("systemd notified ready")
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("serve: %w", err)
		}
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", logx.Err(err))
	}

	// hijacked websocket connections are not covered by Shutdown
	stopHub()
	<-hubDone

	log.Info("queue board stopped")
	return runErr
}

// followConfig applies logging changes live and reports the rest as
// requiring a restart.
func followConfig(ctx context.Context, cfgs *config.Manager, logs *logx.Service, log logx.Logger, addrOverride string) {
	updates := cfgs.Subscribe(1)
	defer cfgs.Unsubscribe(updates)

	go func() {
		if err := cfgs.Watch(ctx); err != nil {
			log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	current := cfgs.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-updates:
			if !ok {
				return
			}
			logs.Apply(next.LogConfig())
			effective := *next
			if addrOverride != "" {
				effective.Server.Addr = addrOverride
			}
			if sections := current.RestartRequired(&effective); len(sections) > 0 {
				log.Warn("config change needs a restart to take effect", logx.Any("sections", sections))
			}
			log.Info("logging config applied", logx.String("level", next.Logging.Level))
		}
	}
}
