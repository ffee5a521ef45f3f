package httpserver

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const readHeaderTimeout = 10 * time.Second

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func New(address string, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              address,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			ErrorLog:          zap.NewStdLog(logger.Named("http")),
		},
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("server starting", zap.String("address", s.httpServer.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}
