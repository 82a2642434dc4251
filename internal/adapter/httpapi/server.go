package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 30 * time.Second

// Serve 启动 HTTP 服务，ctx 结束后优雅关闭
func Serve(ctx context.Context, addr string, handler http.Handler, logger *logrus.Logger) error {
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// 分析事件流可能持续数分钟，不设 WriteTimeout
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("🌐 Server starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server exited properly")
	return nil
}
