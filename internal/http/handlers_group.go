package http

import (
	"net/http"

	"pfm/internal/services"
)

// viewerHandler is a handler that needs the caller identity.
type viewerHandler func(w http.ResponseWriter, r *http.Request, viewer services.Viewer)

func withViewer(h viewerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer, err := ViewerFromRequest(r)
		if err != nil {
			ErrorResponse(http.StatusUnauthorized, err.Error()).Write(w)
			return
		}
		h(w, r, viewer)
	}
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	groups, err := s.svc.Groups.List(r.Context(), viewer)
	if err != nil {
		s.logFailure(r, "list_groups", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"groups": groups}).Write(w)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	var req groupRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	g, err := s.svc.Groups.Create(r.Context(), viewer, sanitizeInput(req.Name))
	if err != nil {
		s.logFailure(r, "create_group", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(g).Write(w)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	if err := s.svc.Groups.Delete(r.Context(), viewer, r.PathValue("id")); err != nil {
		s.logFailure(r, "delete_group", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	members, err := s.svc.Groups.Members(r.Context(), viewer, r.PathValue("id"))
	if err != nil {
		s.logFailure(r, "list_members", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"members": members}).Write(w)
}

func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	if err := s.svc.Groups.Leave(r.Context(), viewer, r.PathValue("id")); err != nil {
		s.logFailure(r, "leave_group", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	var req invitationRequest
	if err := DecodeJSON(r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	inv, err := s.svc.Groups.Invite(r.Context(), viewer, r.PathValue("id"), req.Email)
	if err != nil {
		s.logFailure(r, "invite", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(inv).Write(w)
}

func (s *Server) handlePendingInvitations(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	invs, err := s.svc.Groups.PendingInvitations(r.Context(), viewer)
	if err != nil {
		s.logFailure(r, "pending_invitations", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{"invitations": invs}).Write(w)
}

func (s *Server) handleAcceptInvitation(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	inv, err := s.svc.Groups.Accept(r.Context(), viewer, r.PathValue("id"))
	if err != nil {
		s.logFailure(r, "accept_invitation", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(inv).Write(w)
}

func (s *Server) handleDeclineInvitation(w http.ResponseWriter, r *http.Request, viewer services.Viewer) {
	inv, err := s.svc.Groups.Decline(r.Context(), viewer, r.PathValue("id"))
	if err != nil {
		s.logFailure(r, "decline_invitation", err)
		ServiceError(err).Write(w)
		return
	}
	NewJSONResponse().Body(inv).Write(w)
}
