package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/fleetops-backend/api/middleware"
	"github.com/angelmondragon/fleetops-backend/api/responses"
	"github.com/angelmondragon/fleetops-backend/api/validators"
	"github.com/angelmondragon/fleetops-backend/internal/notifications"
	"github.com/angelmondragon/fleetops-backend/pkg/auth"
	"github.com/angelmondragon/fleetops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fleetops-backend/pkg/errors"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
)

// ListNotifications returns notifications addressed to the caller's role or username.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 25, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := notifications.ListParams{
			Status: enums.NotificationStatus(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))),
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		resp, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func DismissNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return notificationAction(svc, logg, "dismissed", notifications.Service.Dismiss)
}

func ResolveNotification(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return notificationAction(svc, logg, "resolved", notifications.Service.Resolve)
}

type notificationOp func(notifications.Service, context.Context, auth.Actor, uuid.UUID) error

func notificationAction(svc notifications.Service, logg *logger.Logger, key string, op notificationOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := op(svc, r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{key: true})
	}
}
