package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
)

// generateJWT issues a token binding one websocket session to a connection
// identity. The platform's real authentication happens upstream; this gate
// only keeps anonymous socket opens from skipping registration entirely.
func (h *Handler) generateJWT(connectionID string) (string, error) {
	claims := jwt.MapClaims{
		"connection_id": connectionID,
		"exp":           time.Now().Add(72 * time.Hour).Unix(),
		"iss":           "vetline-hub",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.Cfg.JWTSecret))
}

// validateToken parses a bearer token and returns the connection id it was
// issued for.
func (h *Handler) validateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(h.Cfg.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	connectionID, ok := claims["connection_id"].(string)
	if !ok || connectionID == "" {
		return "", errors.New("token missing connection_id")
	}
	return connectionID, nil
}

// GetToken mints a connection identity and its JWT.
func (h *Handler) GetToken(c *gin.Context) {
	connectionID := uuid.New().String()

	token, err := h.generateJWT(connectionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "connection_id": connectionID})
}
