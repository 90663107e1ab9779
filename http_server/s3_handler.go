package http_server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danthegoodman1/idhash/dtype"
	"github.com/danthegoodman1/idhash/hasher"
	"github.com/danthegoodman1/idhash/s3_helper"
	"github.com/danthegoodman1/idhash/utils"
	"github.com/rs/zerolog"
)

type (
	HashS3ReqBody struct {
		// Default S3_BUCKET_NAME
		Bucket string
		Key    string `validate:"required"`
		// Names and types in file column order. When omitted they are
		// inferred from the parquet footer.
		FieldNames []string
		FieldTypes []string `validate:"required_with=FieldNames"`
		// Rows read per batch. Default 8192.
		BatchRows *int `validate:"omitempty,min=1"`
		// How many seconds before the read will time out.
		//
		// Default `60`.
		MaxRuntimeSec *int64 `validate:"omitempty,min=1"`
	}

	HashS3Response struct {
		HashResponse
		FieldNames []string
		FieldTypes []string
	}
)

func (s *HTTPServer) HashS3Handler(c *CustomContext) error {
	start := time.Now()

	var reqBody HashS3ReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	if reqBody.Bucket == "" && utils.S3_BUCKET_NAME == "" {
		return c.UserError(http.StatusBadRequest, s3_helper.ErrMissingLocation)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second*time.Duration(utils.Deref(reqBody.MaxRuntimeSec, 60)))
	defer cancel()
	logger := zerolog.Ctx(ctx).With().Str("bucket", reqBody.Bucket).Str("key", reqBody.Key).Logger()

	client, err := s.S3()
	if err != nil {
		return c.InternalError(err, "error making s3 client")
	}

	r, err := s3_helper.OpenParquet(ctx, client, reqBody.Bucket, reqBody.Key, utils.Deref(reqBody.BatchRows, 0))
	if err != nil {
		var ute *dtype.UnsupportedTypeError
		if errors.As(err, &ute) || errors.Is(err, s3_helper.ErrMissingLocation) {
			return c.UserError(http.StatusBadRequest, err)
		}
		if utils.IsPermanent(err) {
			return c.UserError(http.StatusNotFound, err)
		}
		return c.InternalError(err, "error opening parquet file")
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing parquet reader")
		}
	}()

	names, types := reqBody.FieldNames, reqBody.FieldTypes
	if len(names) == 0 {
		names, types = r.Names(), r.Tags()
	}

	h, err := hasher.New(names, types, hasherOptions(ctx)...)
	if err != nil {
		return c.HashError(err, "error creating hasher")
	}
	n, err := h.WriteReader(r, hasher.Add)
	if err != nil {
		return c.HashError(err, "error hashing parquet file")
	}
	logger.Debug().Int64("rows", n).Msg("hashed parquet file")

	fp := h.Finalize()
	return c.JSON(http.StatusOK, HashS3Response{
		HashResponse: HashResponse{
			Fingerprint: fp.String(),
			Hex:         fp.Hex(),
			Rows:        n,
			TimeMS:      time.Since(start).Milliseconds(),
		},
		FieldNames: names,
		FieldTypes: types,
	})
}
