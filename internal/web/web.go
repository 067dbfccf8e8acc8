package web

import (
	"context"
	"net/http"
	"time"

	appLog "weekcal/internal/log"
)

// Server exposes the most recently rendered document over HTTP while
// watch mode runs. Two endpoints only: /health and /calendar.md.
type Server struct {
	outputPath string
	mux        *http.ServeMux
}

// NewServer constructs a new Server serving the document at outputPath.
func NewServer(outputPath string) *Server {
	s := &Server{
		outputPath: outputPath,
		mux:        http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/calendar.md", s.handleCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCalendar serves the last rendered Markdown document from disk.
// http.ServeFile returns the appropriate status for missing files (404)
// and other filesystem errors, so no run may have completed yet without
// breaking the endpoint.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	http.ServeFile(w, r, s.outputPath)
}

// StartServer runs an HTTP server bound to listen until ctx is canceled,
// then shuts it down gracefully.
func StartServer(ctx context.Context, listen, outputPath string) error {
	s := NewServer(outputPath)

	srv := &http.Server{
		Addr:    listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("preview server listening", "listen", "http://"+listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
