package xcontext

import (
	"context"
	"net/http"

	"github.com/questforge/backend/config"
	"github.com/questforge/backend/internal/model"
	"github.com/questforge/backend/pkg/authenticator"
	"github.com/questforge/backend/pkg/logger"
	"gorm.io/gorm"
)

type (
	configsKey     struct{}
	loggerKey      struct{}
	dbKey          struct{}
	txKey          struct{}
	tokenEngineKey struct{}
	userIDKey      struct{}
	httpRequestKey struct{}
	errorKey       struct{}
)

// txHolder keeps the transaction shared between the context returned by
// WithDBTransaction and the parent the deferred rollback runs on.
type txHolder struct {
	tx   *gorm.DB
	done bool
}

func WithConfigs(ctx context.Context, cfg config.Configs) context.Context {
	return context.WithValue(ctx, configsKey{}, cfg)
}

func Configs(ctx context.Context) config.Configs {
	cfg, ok := ctx.Value(configsKey{}).(config.Configs)
	if !ok {
		return config.Configs{}
	}

	return cfg
}

func WithLogger(ctx context.Context, l logger.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func Logger(ctx context.Context) logger.Logger {
	l, ok := ctx.Value(loggerKey{}).(logger.Logger)
	if !ok {
		return logger.NewLogger(logger.SILENCE)
	}

	return l
}

func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

// DB returns the current transaction if one is open, otherwise the root
// database handle.
func DB(ctx context.Context) *gorm.DB {
	if holder, ok := ctx.Value(txKey{}).(*txHolder); ok && !holder.done {
		return holder.tx
	}

	db, ok := ctx.Value(dbKey{}).(*gorm.DB)
	if !ok {
		return nil
	}

	return db
}

func WithDBTransaction(ctx context.Context) context.Context {
	db, ok := ctx.Value(dbKey{}).(*gorm.DB)
	if !ok {
		return ctx
	}

	return context.WithValue(ctx, txKey{}, &txHolder{tx: db.Begin()})
}

func WithCommitDBTransaction(ctx context.Context) context.Context {
	holder, ok := ctx.Value(txKey{}).(*txHolder)
	if ok && !holder.done {
		holder.tx.Commit()
		holder.done = true
	}

	return ctx
}

func WithRollbackDBTransaction(ctx context.Context) context.Context {
	holder, ok := ctx.Value(txKey{}).(*txHolder)
	if ok && !holder.done {
		holder.tx.Rollback()
		holder.done = true
	}

	return ctx
}

func WithTokenEngine(ctx context.Context, engine authenticator.TokenEngine[model.AccessToken]) context.Context {
	return context.WithValue(ctx, tokenEngineKey{}, engine)
}

func TokenEngine(ctx context.Context) authenticator.TokenEngine[model.AccessToken] {
	engine, ok := ctx.Value(tokenEngineKey{}).(authenticator.TokenEngine[model.AccessToken])
	if !ok {
		return nil
	}

	return engine
}

func WithHTTPRequest(ctx context.Context, req *http.Request) context.Context {
	return context.WithValue(ctx, httpRequestKey{}, req)
}

func HTTPRequest(ctx context.Context) *http.Request {
	req, ok := ctx.Value(httpRequestKey{}).(*http.Request)
	if !ok {
		return nil
	}

	return req
}

// WithError records the error a handler ended with so closers can observe
// it. The holder is shared; a later WithError on a derived context is seen by
// the original.
func WithError(ctx context.Context, err error) context.Context {
	if holder, ok := ctx.Value(errorKey{}).(*errorHolder); ok {
		holder.err = err
		return ctx
	}

	return context.WithValue(ctx, errorKey{}, &errorHolder{err: err})
}

func Error(ctx context.Context) error {
	holder, ok := ctx.Value(errorKey{}).(*errorHolder)
	if !ok {
		return nil
	}

	return holder.err
}

type errorHolder struct {
	err error
}

func WithRequestUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

func RequestUserID(ctx context.Context) string {
	id, ok := ctx.Value(userIDKey{}).(string)
	if !ok {
		return ""
	}

	return id
}
