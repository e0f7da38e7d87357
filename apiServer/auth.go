package apiServer

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/i5heu/ouroboros-registry/pkg/types"
)

// IdentityHeader carries the caller identity. The server trusts it, so it
// must be set by an authenticating proxy in front of the registry.
const IdentityHeader = "X-Caller-Identity"

var errMissingIdentity = errors.New("missing " + IdentityHeader + " header")

// IdentityFunc resolves the caller of a request.
type IdentityFunc func(r *http.Request) (types.Identity, error)

func HeaderIdentity(r *http.Request) (types.Identity, error) {
	value := r.Header.Get(IdentityHeader)
	if value == "" {
		return types.Identity{}, errMissingIdentity
	}
	id, err := types.ParseIdentity(value)
	if err != nil {
		return types.Identity{}, fmt.Errorf("invalid %s header: %w", IdentityHeader, err)
	}
	return id, nil
}

func (s *Server) call(r *http.Request) (types.Call, error) {
	caller, err := s.identify(r)
	if err != nil {
		return types.Call{}, err
	}
	return types.Call{Caller: caller, Timestamp: s.now()}, nil
}
