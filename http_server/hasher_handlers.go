package http_server

import (
	"errors"
	"net/http"

	"github.com/danthegoodman1/idhash/hasher"
	"github.com/danthegoodman1/idhash/utils"
	"github.com/rs/zerolog"
)

type (
	CreateHasherReqBody struct {
		FieldNames []string `validate:"required,min=1"`
		FieldTypes []string `validate:"required,min=1"`
	}

	HasherResponse struct {
		ID         string
		FieldNames []string
		FieldTypes []string
		Rows       int64
	}

	WriteBatchesReqBody struct {
		// Add or Remove
		Delta string `validate:"required"`
		RowsBody
	}

	WriteBatchesResponse struct {
		// Rows in this request
		Rows int64
		// Net rows in the hasher after this request
		TotalRows int64
	}

	FinalizeResponse struct {
		ID          string
		Fingerprint string
		Hex         string
		Rows        int64
	}
)

func (s *HTTPServer) CreateHasher(c *CustomContext) error {
	var reqBody CreateHasherReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	h, err := hasher.New(reqBody.FieldNames, reqBody.FieldTypes, hasher.WithConcurrency(int(utils.HASH_CONCURRENCY)))
	if err != nil {
		return c.HashError(err, "error creating hasher")
	}

	sess, err := s.hashers.Open(h)
	if errors.Is(err, ErrTooManyHashers) {
		return c.UserError(http.StatusTooManyRequests, err)
	}
	if err != nil {
		return c.InternalError(err, "error opening hasher")
	}
	zerolog.Ctx(c.Request().Context()).Debug().Str("hasherID", sess.ID).Msg("opened hasher")

	return c.JSON(http.StatusCreated, HasherResponse{
		ID:         sess.ID,
		FieldNames: reqBody.FieldNames,
		FieldTypes: reqBody.FieldTypes,
	})
}

func (s *HTTPServer) WriteHasherBatches(c *CustomContext) error {
	sess, err := s.hashers.Get(c.Param("id"))
	if err != nil {
		return c.UserError(http.StatusNotFound, err)
	}

	var reqBody WriteBatchesReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	delta, err := hasher.ParseDelta(reqBody.Delta)
	if err != nil {
		return c.HashError(err, "error parsing delta")
	}

	batches, err := reqBody.RowsBody.Batches(sess.Hasher.Schema())
	if err != nil {
		return c.HashError(err, "error decoding rows")
	}
	var rows int64
	for _, b := range batches {
		rows += int64(b.NumRows())
	}

	if err = sess.Hasher.WriteBatches(batches, delta); err != nil {
		return c.HashError(err, "error writing batches")
	}
	return c.JSON(http.StatusOK, WriteBatchesResponse{
		Rows:      rows,
		TotalRows: sess.Hasher.Rows(),
	})
}

func (s *HTTPServer) FinalizeHasher(c *CustomContext) error {
	sess, err := s.hashers.Get(c.Param("id"))
	if err != nil {
		return c.UserError(http.StatusNotFound, err)
	}
	fp := sess.Hasher.Finalize()
	return c.JSON(http.StatusOK, FinalizeResponse{
		ID:          sess.ID,
		Fingerprint: fp.String(),
		Hex:         fp.Hex(),
		Rows:        sess.Hasher.Rows(),
	})
}

func (s *HTTPServer) DeleteHasher(c *CustomContext) error {
	if err := s.hashers.Close(c.Param("id")); err != nil {
		return c.UserError(http.StatusNotFound, err)
	}
	return c.NoContent(http.StatusNoContent)
}
