package server

import (
	"context"
	"fmt"
)

// Shutdown stops the HTTP server, then the app's services.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.E.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return s.app.Shutdown(ctx)
}
