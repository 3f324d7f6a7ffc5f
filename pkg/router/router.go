package router

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/questforge/backend/config"
	"github.com/questforge/backend/internal/model"
	"github.com/questforge/backend/pkg/authenticator"
	"github.com/questforge/backend/pkg/errorx"
	"github.com/questforge/backend/pkg/logger"
	"github.com/questforge/backend/pkg/xcontext"
	"github.com/rs/cors"
	"gorm.io/gorm"
)

type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)
type MiddlewareFunc func(ctx context.Context) (context.Context, error)
type CloserFunc func(ctx context.Context)

// Router wires domain handlers onto a mux. Every request context carries the
// configs, the logger, the database handle, and the token engine so domains
// reach them through xcontext.
type Router struct {
	mux *http.ServeMux
	cfg config.Configs
	log logger.Logger
	db  *gorm.DB

	tokenEngine authenticator.TokenEngine[model.AccessToken]

	befores []MiddlewareFunc
	afters  []MiddlewareFunc
	closers []CloserFunc
}

func New(db *gorm.DB, cfg config.Configs, log logger.Logger) *Router {
	return &Router{
		mux:         http.NewServeMux(),
		cfg:         cfg,
		log:         log,
		db:          db,
		tokenEngine: authenticator.NewTokenEngine[model.AccessToken](cfg.Auth.TokenSecret),
	}
}

// Branch returns a router sharing the mux but with its own middleware chain.
func (r *Router) Branch() *Router {
	clone := *r
	clone.befores = append([]MiddlewareFunc{}, r.befores...)
	clone.afters = append([]MiddlewareFunc{}, r.afters...)
	clone.closers = append([]CloserFunc{}, r.closers...)
	return &clone
}

func (r *Router) Before(middleware MiddlewareFunc) {
	r.befores = append(r.befores, middleware)
}

func (r *Router) After(middleware MiddlewareFunc) {
	r.afters = append(r.afters, middleware)
}

func (r *Router) AddCloser(closer CloserFunc) {
	r.closers = append(r.closers, closer)
}

func (r *Router) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   r.cfg.ApiServer.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(r.mux)
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.mux.HandleFunc(pattern, wrap(r, http.MethodGet, handler))
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.mux.HandleFunc(pattern, wrap(r, http.MethodPost, handler))
}

func wrap[Request, Response any](
	router *Router, method string, handler HandlerFunc[Request, Response],
) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		ctx = xcontext.WithConfigs(ctx, router.cfg)
		ctx = xcontext.WithLogger(ctx, router.log)
		ctx = xcontext.WithDB(ctx, router.db)
		ctx = xcontext.WithTokenEngine(ctx, router.tokenEngine)
		ctx = xcontext.WithHTTPRequest(ctx, req)
		ctx = xcontext.WithError(ctx, nil)

		if req.Method != method {
			writeResponse(ctx, w, nil,
				errorx.New(errorx.BadRequest, "Method %s is not allowed", req.Method))
			return
		}

		resp, err := func() (*Response, error) {
			var err error
			for _, before := range router.befores {
				if ctx, err = before(ctx); err != nil {
					return nil, err
				}
			}

			request := new(Request)
			if err := bindRequest(req, method, request); err != nil {
				return nil, errorx.New(errorx.BadRequest, "Cannot bind the request")
			}

			resp, err := handler(ctx, request)
			if err != nil {
				return nil, err
			}

			for _, after := range router.afters {
				if ctx, err = after(ctx); err != nil {
					return nil, err
				}
			}

			return resp, nil
		}()

		if err != nil {
			xcontext.WithError(ctx, err)
		}

		writeResponse(ctx, w, resp, err)
		for _, closer := range router.closers {
			closer(ctx)
		}
	}
}

func bindRequest(req *http.Request, method string, target any) error {
	if method == http.MethodPost {
		if req.Body == nil || req.ContentLength == 0 {
			return nil
		}

		defer req.Body.Close()
		return json.NewDecoder(req.Body).Decode(target)
	}

	values := map[string]any{}
	for key := range req.URL.Query() {
		raw := req.URL.Query().Get(key)
		if n, err := strconv.Atoi(raw); err == nil {
			values[key] = n
		} else {
			values[key] = raw
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(values)
}
