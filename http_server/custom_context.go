package http_server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/danthegoodman1/idhash/batch"
	"github.com/danthegoodman1/idhash/dtype"
	"github.com/danthegoodman1/idhash/encoder"
	"github.com/danthegoodman1/idhash/gologger"
	"github.com/danthegoodman1/idhash/hasher"
	"github.com/danthegoodman1/idhash/json_rows"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type CustomContext struct {
	echo.Context
	RequestID string
}

type ErrorResponse struct {
	Error     string
	RequestID string
}

func CreateReqContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := uuid.NewString()
		ctx := context.WithValue(c.Request().Context(), gologger.ReqIDKey, reqID)
		ctx = logger.WithContext(ctx)
		c.SetRequest(c.Request().WithContext(ctx))
		logger := zerolog.Ctx(ctx)
		logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("reqID", reqID)
		})
		cc := &CustomContext{
			Context:   c,
			RequestID: reqID,
		}
		return next(cc)
	}
}

// Casts to custom context for the handler, so this doesn't have to be done per handler
func ccHandler(h func(*CustomContext) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h(c.(*CustomContext))
	}
}

func (c *CustomContext) internalErrorMessage() string {
	return "internal error, request id: " + c.RequestID
}

func (c *CustomContext) InternalError(err error, msg string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		zerolog.Ctx(c.Request().Context()).Warn().CallerSkipFrame(1).Msg(err.Error())
	} else {
		zerolog.Ctx(c.Request().Context()).Error().CallerSkipFrame(1).Err(err).Msg(msg)
	}
	return c.String(http.StatusInternalServerError, c.internalErrorMessage())
}

// UserError responds with status and the error text.
func (c *CustomContext) UserError(status int, err error) error {
	zerolog.Ctx(c.Request().Context()).Debug().CallerSkipFrame(1).Err(err).Int("status", status).Msg("user error")
	return c.JSON(status, ErrorResponse{Error: err.Error(), RequestID: c.RequestID})
}

// HashError answers 400 for errors caused by the request's schema or rows,
// and falls back to InternalError for anything else.
func (c *CustomContext) HashError(err error, msg string) error {
	if isUserError(err) {
		return c.UserError(http.StatusBadRequest, err)
	}
	return c.InternalError(err, msg)
}

func isUserError(err error) bool {
	var (
		se  *hasher.SchemaError
		sme *hasher.SchemaMismatchError
		ve  *hasher.ValueError
		ute *dtype.UnsupportedTypeError
		tme *encoder.TypeMismatchError
	)
	switch {
	case errors.As(err, &se), errors.As(err, &sme), errors.As(err, &ve), errors.As(err, &ute), errors.As(err, &tme):
		return true
	case errors.Is(err, hasher.ErrInvalidDelta), errors.Is(err, batch.ErrColumnLength), errors.Is(err, json_rows.ErrNotObject), errors.Is(err, json_rows.ErrTrailing):
		return true
	}
	// malformed NDJSON lines
	var syntaxErr *json.SyntaxError
	return errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF)
}
