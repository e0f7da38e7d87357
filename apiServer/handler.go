package apiServer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/i5heu/ouroboros-registry/pkg/types"
	"github.com/sirupsen/logrus"
)

const maxRequestBody = 64 << 10

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{
		Administrator: s.reg.Administrator().String(),
		System:        s.reg.SystemIdentity().String(),
		Sequence:      s.reg.Sequence(),
	})
}

func (s *Server) handleIsAdministrator(w http.ResponseWriter, r *http.Request) {
	raw, err := pathVar(r, "identity")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := types.ParseIdentity(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, administratorResponse{
		Identity:        id.String(),
		IsAdministrator: s.reg.IsAdministrator(id),
	})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	call, err := s.call(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err)
		return
	}

	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	newID, err := types.ParseIdentity(req.NewAdministrator)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	applied, err := s.reg.TransferAdministration(call, newID)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transferResponse{Requested: true, Applied: applied})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	call, err := s.call(r)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err)
		return
	}

	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	title, err := types.ParseTitle(req.Title)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	hash, err := types.ParseHash(req.ContentHash)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := s.reg.RegisterDocument(call, req.Locator, title, hash)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}

	s.log.WithFields(logrus.Fields{"id": id, "caller": call.Caller}).Debug("Document registered over API")
	s.writeJSON(w, http.StatusCreated, registerResponse{ID: id})
}

func (s *Server) handleFindByLocator(w http.ResponseWriter, r *http.Request) {
	s.writeLookup(w, func() (types.Document, bool, error) {
		return s.reg.LookupByLocator(mux.Vars(r)["locator"])
	})
}

func (s *Server) handleFindByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid id: %w", err))
		return
	}
	s.writeLookup(w, func() (types.Document, bool, error) {
		return s.reg.LookupByID(id)
	})
}

func (s *Server) handleFindByTitle(w http.ResponseWriter, r *http.Request) {
	raw, err := pathVar(r, "title")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	title, err := types.ParseTitle(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeLookup(w, func() (types.Document, bool, error) {
		return s.reg.LookupByTitle(title)
	})
}

func (s *Server) handleFindByHash(w http.ResponseWriter, r *http.Request) {
	raw, err := pathVar(r, "hash")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	hash, err := types.ParseHash(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeLookup(w, func() (types.Document, bool, error) {
		return s.reg.LookupByHash(hash)
	})
}

// writeLookup answers 200 for hits and misses alike; a miss carries the zero
// record with found=false.
func (s *Server) writeLookup(w http.ResponseWriter, lookup func() (types.Document, bool, error)) {
	doc, found, err := lookup()
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, documentResponseFrom(doc, found))
}

// pathVar returns the unescaped value of a route variable.
func pathVar(r *http.Request, name string) (string, error) {
	value, err := url.PathUnescape(mux.Vars(r)[name])
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", name, err)
	}
	return value, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
