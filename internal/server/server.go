package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Listener is one HTTP endpoint served until the context ends.
type Listener struct {
	Name    string
	Addr    string
	Handler http.Handler
}

// Run serves every listener until ctx is cancelled or one of them fails,
// then shuts them all down gracefully.
func Run(ctx context.Context, log *zap.Logger, listeners ...Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	servers := make([]*http.Server, 0, len(listeners))
	errc := make(chan error, len(listeners))
	for _, l := range listeners {
		ln, err := net.Listen("tcp", l.Addr)
		if err != nil {
			shutdown(log, servers)
			return fmt.Errorf("listen %s on %s: %w", l.Name, l.Addr, err)
		}
		srv := &http.Server{
			Handler:           l.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		servers = append(servers, srv)

		log.Info("listening", zap.String("listener", l.Name), zap.String("addr", ln.Addr().String()))
		go func(name string) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- fmt.Errorf("%s server: %w", name, err)
				return
			}
			errc <- nil
		}(l.Name)
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown initiated")
	case runErr = <-errc:
	}
	shutdown(log, servers)
	log.Info("shutdown complete")
	return runErr
}

func shutdown(log *zap.Logger, servers []*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("http server shutdown error", zap.Error(err))
		}
	}
}
