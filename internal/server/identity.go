package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/hyperjump/wantokmatch/internal/models"
)

// Headers set by the authenticating gateway in front of this service.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type callerKey struct{}

// identify attaches a models.Caller when both identity headers are present
// and valid. Anything else leaves the request anonymous.
func identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := parseCaller(r); c != nil {
			r = r.WithContext(context.WithValue(r.Context(), callerKey{}, c))
		}
		next.ServeHTTP(w, r)
	})
}

func parseCaller(r *http.Request) *models.Caller {
	id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(HeaderUserID)), 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	role := models.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))))
	switch role {
	case models.RoleJobseeker, models.RoleEmployer, models.RoleAdmin:
		return &models.Caller{UserID: id, Role: role}
	}
	return nil
}

// callerFrom returns the request's caller, or nil for anonymous requests.
func callerFrom(ctx context.Context) *models.Caller {
	c, _ := ctx.Value(callerKey{}).(*models.Caller)
	return c
}

func requireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callerFrom(r.Context()) == nil {
			respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !callerFrom(r.Context()).IsAdmin() {
			respondJSON(w, http.StatusForbidden, map[string]string{"error": "Access denied"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
