package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/srediag/plugin-status/adapter"
	"github.com/srediag/plugin-status/pkg/host"
	"github.com/srediag/plugin-status/plugins"
)

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, ln, args)
}

// serve loads the named built-in plugins and serves the HTTP adapter on ln
// until ctx is done. ln is closed on return.
func serve(ctx context.Context, cfg *host.Config, ln net.Listener, names []string) error {
	selected, err := plugins.Lookup(uniqueNames(names)...)
	if err != nil {
		_ = ln.Close()
		return err
	}

	h, err := host.New(cfg, adapter.NewOTel(nil, nil).HostOptions()...)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer h.Close()
	logger := h.Logger()

	if err := h.Load(selected...); err != nil {
		logger.Warn("plugin load", zap.Error(err))
	}

	srv := &http.Server{
		Handler:           adapter.NewHTTPHandler(h, h.Registry(), logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving plugin status", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
