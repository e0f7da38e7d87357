package apiServer

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/i5heu/ouroboros-registry/pkg/registry"
	"github.com/i5heu/ouroboros-registry/pkg/types"
	"github.com/sirupsen/logrus"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.WithError(err).Error("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeRegistryError maps registry errors to status codes.
func (s *Server) writeRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrUnauthorized):
		s.writeError(w, http.StatusForbidden, err)
	case errors.Is(err, registry.ErrDuplicateLocator), errors.Is(err, registry.ErrDuplicateTitle):
		s.writeError(w, http.StatusConflict, err)
	default:
		s.log.WithError(err).Error("registry failure")
		s.writeError(w, http.StatusInternalServerError, errors.New(http.StatusText(http.StatusInternalServerError)))
	}
}

func documentResponseFrom(doc types.Document, found bool) documentResponse {
	resp := documentResponse{
		Found:       found,
		ID:          doc.ID,
		Locator:     doc.Locator,
		Title:       doc.Title.String(),
		TitleHex:    doc.Title.Hex(),
		Author:      doc.Author.String(),
		ContentHash: doc.ContentHash.String(),
	}
	if !doc.CreatedAt.IsZero() {
		resp.CreatedAt = doc.CreatedAt.Unix()
	}
	return resp
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.log = logger
		}
	}
}

func WithIdentityFunc(identify IdentityFunc) Option {
	return func(s *Server) {
		if identify != nil {
			s.identify = identify
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}
