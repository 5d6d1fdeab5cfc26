package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/hotspotkeeper/internal/common"
	"github.com/dmitrijs2005/hotspotkeeper/internal/provision"
)

// DecisionRequest carries either a callback token or explicit fields.
type DecisionRequest struct {
	Token    string `json:"token,omitempty"`
	Action   string `json:"action,omitempty"`
	PayerRef string `json:"payer_ref,omitempty"`
	Username string `json:"username,omitempty"`
	Address  string `json:"address,omitempty"`
	Package  string `json:"package,omitempty"`
}

func (req DecisionRequest) decision() (string, provision.Decision, error) {
	if req.Token != "" {
		return ParseDecisionToken(req.Token)
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	d := provision.Decision{
		PayerRef: req.PayerRef,
		Username: req.Username,
		Address:  req.Address,
		Package:  req.Package,
	}
	if err := validateDecision(action, d); err != nil {
		return "", provision.Decision{}, err
	}
	return action, d, nil
}

// PortalRequest is the end-user login pair.
type PortalRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, common.ErrorValidation)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req DecisionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	action, d, err := req.decision()
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}

	s.logger.Info(ctx, "decision received",
		"request_id", requestIDFrom(ctx),
		"operator", operatorFrom(ctx),
		"action", action,
		"username", d.Username,
		"payer_ref", d.PayerRef)

	var resp DecisionResponse
	switch action {
	case ActionApprove:
		resp = approvalResponse(s.engine.Approve(ctx, d))
	default:
		resp = rejectionResponse(s.engine.Reject(ctx, d))
	}
	writeJSON(w, HTTPStatus(provision.Kind(resp.Kind)), resp)
}

func approvalResponse(res *provision.ApprovalResult, err error) DecisionResponse {
	if err != nil {
		return failed(err)
	}
	resp := DecisionResponse{Status: StatusApproved, Message: res.Message(), Result: res}
	if res.Warning != nil {
		resp.Status = StatusWarning
		resp.Kind = string(res.Warning.Kind)
	}
	return resp
}

func rejectionResponse(res *provision.RejectionResult, err error) DecisionResponse {
	switch {
	case err != nil && res != nil:
		return DecisionResponse{
			Status:  StatusWarning,
			Kind:    string(provision.KindOf(err)),
			Message: res.Message() + " Warning: " + provision.Message(err),
			Result:  res,
		}
	case err != nil:
		return failed(err)
	}
	return DecisionResponse{Status: StatusRejected, Message: res.Message(), Result: res}
}

func failed(err error) DecisionResponse {
	return DecisionResponse{
		Status:  StatusFailed,
		Kind:    string(provision.KindOf(err)),
		Message: provision.Message(err),
	}
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	kind := provision.KindOf(err)
	if kind == provision.KindInternal {
		s.logger.Error(r.Context(), "request failed", "request_id", requestIDFrom(r.Context()), "error", err)
	}
	writeError(w, HTTPStatus(kind), string(kind), provision.Message(err))
}

func (s *Server) sessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.engine.ActiveSessions(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	if list == nil {
		list = provision.Sessions{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) usage(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	u, err := s.engine.Usage(r.Context(), username)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) pendingList(w http.ResponseWriter, r *http.Request) {
	list, err := s.engine.Pending(r.Context())
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	type item struct {
		Username string `json:"username"`
		Address  string `json:"ip"`
		Package  string `json:"package"`
	}
	out := make([]item, 0, len(list))
	for _, req := range list {
		out = append(out, item{Username: req.Username, Address: req.Address, Package: req.Package})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) portalStatus(w http.ResponseWriter, r *http.Request) {
	var req PortalRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	st, err := s.engine.PortalStatus(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writePortalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) portalLogout(w http.ResponseWriter, r *http.Request) {
	var req PortalRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", err.Error())
		return
	}
	removed, err := s.engine.Disconnect(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writePortalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"disconnected": removed})
}

// writePortalError answers unknown users like wrong passwords so the
// portal does not reveal which usernames exist.
func (s *Server) writePortalError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, provision.ErrNotFound) {
		err = &provision.Error{Kind: provision.KindUnauthorized}
	}
	s.writeEngineError(w, r, err)
}
