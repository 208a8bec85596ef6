package middleware

import (
	"context"
	"net/http"
	"strings"

	"pinpoint-server/services"
	"pinpoint-server/utils/errors"
)

// WorkspaceHeader carries the id returned by POST /workspaces.
const WorkspaceHeader = "X-Workspace-ID"

type contextKey int

const (
	shellKey contextKey = iota
	workspaceIDKey
)

// WorkspaceLookup finds the shell of an open workspace.
type WorkspaceLookup interface {
	Get(id string) (*services.Shell, bool)
}

// WorkspaceMiddleware resolves the workspace header into the request context.
// Requests without a known workspace get 404.
func WorkspaceMiddleware(workspaces WorkspaceLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			id := strings.TrimSpace(r.Header.Get(WorkspaceHeader))
			if id == "" {
				WriteError(w, errors.ErrInvalidInput.WithDetails(WorkspaceHeader+" header is required"))
				return
			}
			sh, ok := workspaces.Get(id)
			if !ok {
				WriteError(w, errors.ErrNotFound.WithDetails("workspace "+id))
				return
			}

			ctx := context.WithValue(r.Context(), shellKey, sh)
			ctx = context.WithValue(ctx, workspaceIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ShellFromContext returns the shell stored by WorkspaceMiddleware.
func ShellFromContext(ctx context.Context) (*services.Shell, bool) {
	sh, ok := ctx.Value(shellKey).(*services.Shell)
	return sh, ok
}

func WorkspaceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(workspaceIDKey).(string)
	return id
}

// WithShell stores sh in ctx the way WorkspaceMiddleware does.
func WithShell(ctx context.Context, id string, sh *services.Shell) context.Context {
	ctx = context.WithValue(ctx, shellKey, sh)
	return context.WithValue(ctx, workspaceIDKey, id)
}
