package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/danthegoodman1/idhash/gologger"
	"github.com/danthegoodman1/idhash/s3_helper"
	"github.com/danthegoodman1/idhash/utils"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
)

var logger = gologger.NewLogger()

type HTTPServer struct {
	Echo *echo.Echo

	hashers *hasherRegistry

	s3Once   sync.Once
	s3Client s3iface.S3API
	s3Err    error
}

type CustomValidator struct {
	validator *validator.Validate
}

// NewHTTPServer builds the echo instance and routes without listening.
func NewHTTPServer() *HTTPServer {
	s := &HTTPServer{
		Echo:    echo.New(),
		hashers: newHasherRegistry(int(utils.MAX_HASHERS)),
	}
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.JSONSerializer = &utils.NoEscapeJSONSerializer{}

	s.Echo.Use(CreateReqContext)
	s.Echo.Use(LoggerMiddleware)
	s.Echo.Use(middleware.CORS())
	s.Echo.Validator = &CustomValidator{validator: validator.New()}

	// technical - no auth
	s.Echo.GET("/hc", s.HealthCheck)
	s.Echo.GET("/types", ccHandler(s.GetTypes))

	s.Echo.POST("/hash", ccHandler(s.HashHandler))
	s.Echo.POST("/hash/s3", ccHandler(s.HashS3Handler))

	hashersGroup := s.Echo.Group("/hashers")
	hashersGroup.POST("", ccHandler(s.CreateHasher))
	hashersGroup.POST("/:id/batches", ccHandler(s.WriteHasherBatches))
	hashersGroup.GET("/:id", ccHandler(s.FinalizeHasher))
	hashersGroup.DELETE("/:id", ccHandler(s.DeleteHasher))

	return s
}

func StartHTTPServer() *HTTPServer {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", utils.HTTP_PORT))
	if err != nil {
		logger.Error().Err(err).Msg("error creating tcp listener, exiting")
		os.Exit(1)
	}
	s := NewHTTPServer()

	s.Echo.Listener = listener
	go func() {
		logger.Info().Msg("starting h2c server on " + listener.Addr().String())
		err := s.Echo.StartH2CServer("", &http2.Server{})
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("failed to start h2c server, exiting")
			os.Exit(1)
		}
	}()

	return s
}

// S3 returns the client used by /hash/s3, created on first use.
func (s *HTTPServer) S3() (s3iface.S3API, error) {
	s.s3Once.Do(func() {
		if s.s3Client != nil {
			return
		}
		s.s3Client, s.s3Err = s3_helper.NewS3Client()
	})
	return s.s3Client, s.s3Err
}

// SetS3Client replaces the S3 client, must be called before serving.
func (s *HTTPServer) SetS3Client(client s3iface.S3API) {
	s.s3Client = client
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func ValidateRequest(c echo.Context, s interface{}) error {
	if err := c.Bind(s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(s); err != nil {
		return err
	}
	return nil
}

func (*HTTPServer) HealthCheck(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	return err
}

func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			// default handler
			c.Error(err)
		}
		stop := time.Since(start)
		// Log otherwise
		logger := zerolog.Ctx(c.Request().Context())
		req := c.Request()
		res := c.Response()

		p := req.URL.Path
		if p == "" {
			p = "/"
		}

		cl := req.Header.Get(echo.HeaderContentLength)
		if cl == "" {
			cl = "0"
		}
		logger.Debug().Str("method", req.Method).Str("remote_ip", c.RealIP()).Str("req_uri", req.RequestURI).Str("handler_path", c.Path()).Str("path", p).Int("status", res.Status).Int64("latency_ns", int64(stop)).Str("protocol", req.Proto).Str("bytes_in", cl).Int64("bytes_out", res.Size).Msg("req recived")
		return nil
	}
}
