package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"mechmap/backend/internal/auth"
	"mechmap/backend/internal/models"
	"mechmap/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register створює нового користувача та одразу видає токен.
func (h *Handler) Register(c *gin.Context) {
	var body credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}

	username := strings.TrimSpace(body.Username)
	if len(username) < 3 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username must be at least 3 characters"})
		return
	}
	if len(body.Password) < 4 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Password must be at least 4 characters"})
		return
	}

	// Імена користувачів унікальні без урахування регістру.
	if _, err := h.Storage.GetUserByName(username); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Username already exists"})
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Registration failed"})
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Registration failed"})
		return
	}
	user := models.User{Username: username, PasswordHash: hash}
	if err := h.Storage.CreateUser(&user); err != nil {
		log.Printf("ERROR: Failed to create user %s: %v", username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Registration failed"})
		return
	}

	token, err := h.Auth.Issue(username, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to create token"})
		return
	}

	log.Printf("New user registered: %s", username)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "User registered successfully",
		"token":    token,
		"username": username,
	})
}

// Login видає токен існуючому користувачу.
func (h *Handler) Login(c *gin.Context) {
	var body credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid request body"})
		return
	}

	user, err := h.Storage.GetUserByName(strings.TrimSpace(body.Username))
	if err != nil || !auth.CheckPassword(body.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid username or password"})
		return
	}

	if err := h.Storage.UpdateUserLastLogin(user.Username); err != nil {
		log.Printf("WARNING: Failed to update last login for %s: %v", user.Username, err)
	}

	token, err := h.Auth.Issue(user.Username, user.IsAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to create token"})
		return
	}

	log.Printf("User logged in: %s", user.Username)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Login successful",
		"token":    token,
		"username": user.Username,
	})
}

// Logout is kept for API compatibility: JWTs are stateless, so the server
// only acknowledges and the client discards the token.
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := h.bearerClaims(c)
	if !ok {
		return
	}
	log.Printf("User logged out: %s", claims.Username)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logout successful"})
}

// VerifyToken перевіряє токен та повертає, кому він належить.
func (h *Handler) VerifyToken(c *gin.Context) {
	claims, ok := h.bearerClaims(c)
	if !ok {
		return
	}

	// Користувач міг бути видалений після видачі токена.
	user, err := h.Storage.GetUserByName(claims.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"username": user.Username,
		"is_admin": user.IsAdmin,
	})
}

func (h *Handler) bearerClaims(c *gin.Context) (auth.Claims, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "No token provided"})
		return auth.Claims{}, false
	}
	claims, err := h.Auth.Verify(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return auth.Claims{}, false
	}
	return claims, true
}
