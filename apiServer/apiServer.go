package apiServer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/i5heu/ouroboros-registry/pkg/types"
	"github.com/sirupsen/logrus"
)

// DocumentRegistry is the part of *registry.Registry the server needs.
type DocumentRegistry interface {
	IsAdministrator(id types.Identity) bool
	Administrator() types.Identity
	SystemIdentity() types.Identity
	Sequence() uint64
	TransferAdministration(call types.Call, newID types.Identity) (bool, error)
	RegisterDocument(call types.Call, locator string, title types.Title, contentHash types.Hash) (uint64, error)
	LookupByLocator(locator string) (types.Document, bool, error)
	LookupByTitle(title types.Title) (types.Document, bool, error)
	LookupByID(id uint64) (types.Document, bool, error)
	LookupByHash(hash types.Hash) (types.Document, bool, error)
}

type Server struct {
	router   *mux.Router
	reg      DocumentRegistry
	log      *logrus.Logger
	identify IdentityFunc
	now      func() time.Time
	http     *http.Server
}

type Option func(*Server)

func New(reg DocumentRegistry, opts ...Option) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		reg:      reg,
		log:      logrus.New(),
		identify: HeaderIdentity,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	// titles and locators may contain "/", so path variables are matched
	// escaped and unescaped by pathVar
	s.router.UseEncodedPath()
	s.router.Use(s.requestLogger)

	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/admin/transfer", s.handleTransfer).Methods(http.MethodPost)
	s.router.HandleFunc("/admin/{identity}", s.handleIsAdministrator).Methods(http.MethodGet)

	s.router.HandleFunc("/documents", s.handleRegister).Methods(http.MethodPost)
	s.router.HandleFunc("/documents", s.handleFindByLocator).Methods(http.MethodGet).Queries("locator", "{locator}")
	s.router.HandleFunc("/documents/{id:[0-9]+}", s.handleFindByID).Methods(http.MethodGet)
	s.router.HandleFunc("/documents/title/{title}", s.handleFindByTitle).Methods(http.MethodGet)
	s.router.HandleFunc("/documents/hash/{hash}", s.handleFindByHash).Methods(http.MethodGet)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, "+IdentityHeader)
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.router.ServeHTTP(w, r)
}

// ListenAndServe blocks until ctx is canceled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("API server listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"duration":   time.Since(start),
		}).Debug("Request handled")
	})
}
