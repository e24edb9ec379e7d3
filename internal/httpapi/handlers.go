package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kidcoms-platform/internal/audit"
	"kidcoms-platform/internal/auth"
	"kidcoms-platform/internal/chat"
	"kidcoms-platform/internal/permissions"
	"kidcoms-platform/internal/rbac"
	"kidcoms-platform/internal/sessions"
	"kidcoms-platform/internal/transport"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Sessions *sessions.Service
	Chat     *chat.Service
	Perms    *permissions.Service
	Audit    *audit.Service
}

// writeServiceError maps internal error taxonomy onto HTTP statuses.
// Permission denials carry the human-readable reason so clients can show
// "outside allowed hours" instead of a bare 403.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sessions.ErrValidation),
		errors.Is(err, chat.ErrInvalidMessage),
		errors.Is(err, permissions.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, sessions.ErrNotFound), errors.Is(err, permissions.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, sessions.ErrNotJoinable):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, sessions.ErrPermissionDenied):
		reason := strings.TrimPrefix(err.Error(), sessions.ErrPermissionDenied.Error()+": ")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not permitted", "reason": reason})
	case errors.Is(err, transport.ErrTransport):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "call provider unavailable"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func identity(c *gin.Context) (auth.Identity, bool) {
	id, err := auth.FromContext(c.Request.Context())
	if err != nil || id.UserID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return auth.Identity{}, false
	}
	return id, true
}

func actorOf(id auth.Identity) sessions.Actor {
	return sessions.Actor{ID: id.UserID, DisplayName: id.DisplayName, Role: id.Role}
}

/* ===================== AUTH ===================== */

type loginRequest struct {
	UserID       string `json:"user_id"`
	FamilyFileID string `json:"family_file_id"`
	Role         string `json:"role"`
	DisplayName  string `json:"display_name"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.FamilyFileID == "" || !rbac.IsKnownRole(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, family_file_id and a known role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), auth.Identity{
		UserID:       req.UserID,
		FamilyFileID: req.FamilyFileID,
		Role:         req.Role,
		DisplayName:  req.DisplayName,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	Role         string `json:"role"`
}

// Refresh exchanges a refresh token for a new pair. Refresh tokens do not
// carry role, so the client restates it and it is validated here.
func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	if !rbac.IsKnownRole(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "a known role is required"})
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), auth.Identity{
		UserID:       claims.UserID,
		FamilyFileID: claims.FamilyFileID,
		Role:         req.Role,
		DisplayName:  claims.DisplayName,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

/* ===================== SESSIONS ===================== */

func (h Handlers) CreateSession(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req sessions.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sess, err := h.Sessions.Create(c.Request.Context(), id.FamilyFileID, actorOf(id), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h Handlers) GetSession(c *gin.Context) {
	sess, err := h.Sessions.Get(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h Handlers) JoinSession(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	grant, err := h.Sessions.Join(c.Request.Context(), c.Param("session_id"), actorOf(id))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": grant.Token, "room_url": grant.RoomURL})
}

func (h Handlers) EndSession(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Sessions.End(c.Request.Context(), c.Param("session_id"), actorOf(id)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

func (h Handlers) ListSessions(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.Sessions.List(c.Request.Context(), id.UserID, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

/* ===================== MESSAGES ===================== */

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h Handlers) ListMessages(c *gin.Context) {
	msgs, err := h.Chat.List(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage posts a chat message into a live session. Circle contacts are
// gated on the pair's can_chat capability at send time, not render time.
func (h Handlers) SendMessage(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	sessionID := c.Param("session_id")
	sess, err := h.Sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if sess.Status.IsTerminal() {
		writeServiceError(c, sessions.ErrNotJoinable)
		return
	}
	if !isParticipant(sess, id.UserID) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not a session participant"})
		return
	}
	if id.Role == rbac.RoleCircleContact {
		childID := childOf(sess)
		d, err := h.Perms.CanCommunicate(c.Request.Context(), sess.FamilyFileID, id.UserID, childID, permissions.KindChat)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		if !d.Allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not permitted", "reason": d.Reason})
			return
		}
	}

	msg, err := h.Chat.Send(c.Request.Context(), sessionID, id.UserID, req.Content)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func isParticipant(s sessions.Session, userID string) bool {
	for _, p := range s.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

func childOf(s sessions.Session) string {
	for _, p := range s.Participants {
		if p.Role == rbac.RoleChild {
			return p.ID
		}
	}
	return ""
}

/* ===================== PERMISSIONS ===================== */

// ListPermissions returns the family's circle permissions, optionally
// filtered by contact. Parent-only via route middleware.
func (h Handlers) ListPermissions(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.Perms.ListByFamily(c.Request.Context(), id.FamilyFileID, c.Query("contact_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": list})
}

// MyPermissions returns the grants covering the calling circle contact.
func (h Handlers) MyPermissions(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.Perms.Mine(c.Request.Context(), id.UserID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permissions": list})
}

// UpsertPermission creates or replaces a contact↔child grant. Parent-only.
func (h Handlers) UpsertPermission(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var p permissions.CirclePermission
	if err := c.ShouldBindJSON(&p); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p.FamilyFileID = id.FamilyFileID
	saved, err := h.Perms.Upsert(c.Request.Context(), p)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if err := h.Audit.Append(c.Request.Context(), audit.Event{
		Type:         audit.EventTypePermissionChanged,
		FamilyFileID: id.FamilyFileID,
		ActorUserID:  id.UserID,
		ActorRole:    id.Role,
		ContactID:    saved.ContactID,
		ChildID:      saved.ChildID,
	}); err != nil {
		slog.Warn("audit append failed", "contact_id", saved.ContactID, "child_id", saved.ChildID, "err", err)
	}
	c.JSON(http.StatusOK, saved)
}

/* ===================== INCOMING CALLS ===================== */

func (h Handlers) MyIncomingCalls(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	calls, err := h.Sessions.RingingFor(c.Request.Context(), id.UserID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": calls})
}

func (h Handlers) AcceptIncomingCall(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	grant, err := h.Sessions.AcceptIncoming(c.Request.Context(), c.Param("session_id"), actorOf(id))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": grant.Token, "room_url": grant.RoomURL})
}

func (h Handlers) RejectIncomingCall(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Sessions.RejectIncoming(c.Request.Context(), c.Param("session_id"), actorOf(id)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

/* ===================== AUDIT ===================== */

// ListAuditEvents exposes the family activity log. Parent-only.
func (h Handlers) ListAuditEvents(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := h.Audit.ListByFamily(c.Request.Context(), id.FamilyFileID, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
