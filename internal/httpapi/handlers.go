package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	qkdmodels "github.com/jaskrrish/qkdsim/internal/models/qkd"
)

// Handler binds the session manager to gin route functions, in the
// teacher's QKDHandler-wraps-a-manager shape.
type Handler struct {
	manager  *SessionManager
	validate *validator.Validate
	log      *logrus.Entry
}

// NewHandler returns a Handler ready to be registered on a router.
func NewHandler(manager *SessionManager, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		manager:  manager,
		validate: validator.New(),
		log:      log.WithField("component", "httpapi"),
	}
}

// InitiateSessionHandler handles POST /sessions.
func (h *Handler) InitiateSessionHandler(c *gin.Context) {
	var req qkdmodels.SessionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.manager.InitiateSession(&req)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	h.log.WithField("session_id", session.SessionID).Info("session initiated")
	c.JSON(http.StatusCreated, qkdmodels.SessionResponse{Session: session})
}

// JoinSessionHandler handles POST /sessions/:id/join.
func (h *Handler) JoinSessionHandler(c *gin.Context) {
	var req qkdmodels.SessionJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	req.SessionID = c.Param("id")
	if err := h.validate.Struct(req); err != nil {
		respondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.manager.JoinSession(&req)
	if err != nil {
		respondWithError(c, statusForSessionError(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, qkdmodels.SessionResponse{Session: session})
}

// ExecuteKeyExchangeHandler handles POST /sessions/:id/exchange.
func (h *Handler) ExecuteKeyExchangeHandler(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, qkdmodels.ErrInvalidSessionID.Error())
		return
	}

	var body struct {
		AttackParameters map[string]float64 `json:"attack_parameters,omitempty"`
	}
	_ = c.ShouldBindJSON(&body)

	session, key, err := h.manager.ExecuteKeyExchange(sessionID, body.AttackParameters)
	if err != nil {
		respondWithError(c, statusForSessionError(err), err.Error())
		return
	}

	response := gin.H{"session": session}
	if key != nil {
		response["key"] = qkdmodels.KeyResponse{
			KeyID:     key.KeyID.String(),
			SessionID: key.SessionID.String(),
			KeyHex:    KeyHex(key),
			KeyLength: key.KeyLength,
			ExpiresAt: key.ExpiresAt,
		}
	}
	c.JSON(http.StatusOK, response)
}

// GetSessionHandler handles GET /sessions/:id.
func (h *Handler) GetSessionHandler(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, qkdmodels.ErrInvalidSessionID.Error())
		return
	}

	session, err := h.manager.GetSession(sessionID)
	if err != nil {
		respondWithError(c, statusForSessionError(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, qkdmodels.SessionResponse{Session: session})
}

// GetKeyHandler handles GET /keys/:id, authorizing via the X-User-ID header.
func (h *Handler) GetKeyHandler(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid key id")
		return
	}
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		respondWithError(c, http.StatusUnauthorized, "X-User-ID header required")
		return
	}

	key, err := h.manager.GetKey(keyID, userID)
	if err != nil {
		respondWithError(c, statusForKeyError(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, qkdmodels.KeyResponse{
		KeyID:     key.KeyID.String(),
		SessionID: key.SessionID.String(),
		KeyHex:    KeyHex(key),
		KeyLength: key.KeyLength,
		ExpiresAt: key.ExpiresAt,
	})
}

// RevokeKeyHandler handles DELETE /keys/:id.
func (h *Handler) RevokeKeyHandler(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid key id")
		return
	}
	userID := c.GetHeader("X-User-ID")
	if userID == "" {
		respondWithError(c, http.StatusUnauthorized, "X-User-ID header required")
		return
	}

	if err := h.manager.RevokeKey(keyID, userID); err != nil {
		respondWithError(c, statusForKeyError(err), err.Error())
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// HealthCheckHandler handles GET /health.
func (h *Handler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusForSessionError(err error) int {
	switch err {
	case qkdmodels.ErrSessionNotFound:
		return http.StatusNotFound
	case qkdmodels.ErrSessionExpired:
		return http.StatusGone
	case qkdmodels.ErrSessionInProgress:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func statusForKeyError(err error) int {
	switch err {
	case qkdmodels.ErrKeyNotFound:
		return http.StatusNotFound
	case qkdmodels.ErrUnauthorized:
		return http.StatusForbidden
	case qkdmodels.ErrKeyExpired:
		return http.StatusGone
	default:
		return http.StatusBadRequest
	}
}

func respondWithError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
