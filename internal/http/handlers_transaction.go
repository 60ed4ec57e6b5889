package http

import (
	"net/http"

	"pfm/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	query := r.URL.Query()
	limit, err := QueryInt(query, "limit", services.DefaultListLimit)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	txs, err := s.svc.Transactions.List(r.Context(), viewer, viewer.ScopeFor(query.Get("group_id")), limit)
	if err != nil {
		s.logFailure(r, "list_transactions", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"transactions": txs}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	var req transactionRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	raw, err := req.raw()
	if err != nil {
		ServiceError(err).Write(w)
		return
	}

	t, err := s.svc.Transactions.Create(r.Context(), viewer, viewer.ScopeFor(req.GroupID), raw)
	if err != nil {
		s.logFailure(r, "create_transaction", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(t).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	var req transactionRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	patch, err := req.raw()
	if err != nil {
		ServiceError(err).Write(w)
		return
	}

	t, err := s.svc.Transactions.Update(r.Context(), viewer, r.PathValue("id"), patch)
	if err != nil {
		s.logFailure(r, "update_transaction", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	if err := s.svc.Transactions.Delete(r.Context(), viewer, r.PathValue("id")); err != nil {
		s.logFailure(r, "delete_transaction", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	var req chatRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	text := sanitizeInput(req.Text)
	if text == "" {
		BadRequestError("text is required").Write(w)
		return
	}
	payer := sanitizeInput(req.Payer)
	if payer == "" {
		payer = viewer.Email
	}

	res, err := s.svc.Transactions.RecordFromText(r.Context(), viewer, viewer.ScopeFor(req.GroupID), payer, text)
	if err != nil {
		s.logFailure(r, "chat", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}
