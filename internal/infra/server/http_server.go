package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"
)

// ServeHTTP serves srv on lis until ctx is cancelled. TLS is used when both
// certFile and keyFile are set.
func ServeHTTP(ctx context.Context, lis net.Listener, srv *http.Server, certFile, keyFile string, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", lis.Addr().String()), zap.Bool("tls", certFile != ""))
		var err error
		if certFile != "" && keyFile != "" {
			err = srv.ServeTLS(lis, certFile, keyFile)
		} else {
			err = srv.Serve(lis)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}

func StartHTTPServer(ctx context.Context, srv *http.Server, certFile, keyFile string, logger *zap.Logger) error {
	lis, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return ServeHTTP(ctx, lis, srv, certFile, keyFile, logger)
}
