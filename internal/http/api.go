package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"authgate/internal/service"
)

// refreshCookieName is the confidential channel for the refresh token. The
// cookie is HttpOnly and path-scoped so client-side script never sees it and
// the browser only sends it to the refresh endpoint.
const (
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/refresh_token"
)

// Handler wires HTTP routes to the session service.
type Handler struct {
	sessions   service.SessionService
	refreshTTL time.Duration
}

func NewHandler(sessions service.SessionService, refreshTTL time.Duration) *Handler {
	return &Handler{
		sessions:   sessions,
		refreshTTL: refreshTTL,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine, allowedOrigin string) {
	router.Use(corsMiddleware(allowedOrigin))

	router.POST("/register", h.register)
	router.POST("/login", h.login)
	router.POST("/logout", h.logout)
	router.POST("/protected", h.protected)
	router.POST("/refresh_token", h.refreshToken)
	router.GET("/api/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// corsMiddleware restricts cross-origin access to the single configured
// origin and enables credentialed (cookie-carrying) requests.
func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	if err := h.sessions.Register(c.Request.Context(), req.Email, req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User Created!"})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	pair, user, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	h.writeRefreshCookie(c, pair.RefreshToken)
	c.JSON(http.StatusOK, gin.H{
		"accessToken": pair.AccessToken,
		"email":       user.Email,
	})
}

// logout only clears the confidential channel for the caller; it does not
// check any token and does not touch the stored refresh token.
func (h *Handler) logout(c *gin.Context) {
	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged Out!"})
}

func (h *Handler) protected(c *gin.Context) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing access token"})
		return
	}

	if _, err := h.sessions.Authorize(c.Request.Context(), tokenString); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": "This is protected data."})
}

// refreshToken exchanges the cookie-borne refresh token for a new pair. All
// failure branches answer 200 with an empty access token so the client can
// silently fall back to the unauthenticated state.
func (h *Handler) refreshToken(c *gin.Context) {
	presented, err := c.Cookie(refreshCookieName)
	if err != nil {
		presented = ""
	}

	pair, err := h.sessions.Refresh(c.Request.Context(), presented)
	if err != nil {
		if errors.Is(err, service.ErrNoSession) {
			c.JSON(http.StatusOK, gin.H{"accessToken": ""})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	h.writeRefreshCookie(c, pair.RefreshToken)
	c.JSON(http.StatusOK, gin.H{"accessToken": pair.AccessToken})
}

func (h *Handler) writeRefreshCookie(c *gin.Context, token string) {
	c.SetCookie(refreshCookieName, token, int(h.refreshTTL.Seconds()), refreshCookiePath, "", false, true)
}

func (h *Handler) clearRefreshCookie(c *gin.Context) {
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", false, true)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
