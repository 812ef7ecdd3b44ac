package app

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/unrolled/secure"

	"github.com/lumen-commerce/lumen/internal/channel"
	"github.com/lumen-commerce/lumen/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger   *slog.Logger
	Config   *Config
	Channels *channel.Service
}

// MiddlewareStack installs the Lumen middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	})

	return []func(http.Handler) http.Handler{
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.Config.AppRequestTimeout),
		secureMiddleware.Handler,
		requestContextMiddleware(cfg),
	}
}

// requestContextMiddleware resolves the acting user and active channel for
// each request. The user id is trusted from the authenticating proxy's
// header; the channel comes from the channel token header, falling back to
// the default channel.
func requestContextMiddleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := &shared.RequestContext{}

			if raw := strings.TrimSpace(r.Header.Get(cfg.Config.UserIDHeader)); raw != "" {
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil {
					cfg.Logger.Warn("parse user id header", slog.String("value", raw))
				} else {
					rc.ActiveUserID = id
				}
			}

			ch, err := resolveChannel(r, cfg)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
					return
				}
				cfg.Logger.Error("resolve channel", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			rc.ActiveChannelID = ch.ID

			next.ServeHTTP(w, r.WithContext(shared.ContextWithRequest(r.Context(), rc)))
		})
	}
}

func resolveChannel(r *http.Request, cfg MiddlewareConfig) (*channel.Channel, error) {
	token := strings.TrimSpace(r.Header.Get(cfg.Config.ChannelTokenHeader))
	if token == "" {
		return cfg.Channels.GetDefaultChannel(r.Context())
	}
	return cfg.Channels.GetByToken(r.Context(), token)
}
