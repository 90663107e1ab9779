package http_server

import (
	"context"
	"net/http"
	"time"

	"github.com/danthegoodman1/idhash/batch"
	"github.com/danthegoodman1/idhash/hasher"
	"github.com/danthegoodman1/idhash/json_rows"
	"github.com/danthegoodman1/idhash/utils"
	"github.com/rs/zerolog"
)

type (
	// RowsBody carries rows in one of two encodings. RowsString wins when
	// both are set.
	RowsBody struct {
		// Line-delimited JSON (NDJSON)
		RowsString *string
		// Array of JSON
		Rows []map[string]any
		// Rows per batch. Default HASH_BATCH_ROWS.
		BatchRows *int `validate:"omitempty,min=1"`
	}

	HashReqBody struct {
		FieldNames []string `validate:"required,min=1"`
		FieldTypes []string `validate:"required,min=1"`
		RowsBody
	}

	HashResponse struct {
		// Decimal rendering of the 128 bit fingerprint
		Fingerprint string
		Hex         string
		Rows        int64
		TimeMS      int64
	}
)

func (s *HTTPServer) HashHandler(c *CustomContext) error {
	start := time.Now()

	var reqBody HashReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	defer c.Request().Body.Close()

	schema, err := hasher.NewSchema(reqBody.FieldNames, reqBody.FieldTypes)
	if err != nil {
		return c.HashError(err, "error creating schema")
	}

	batches, err := reqBody.RowsBody.Batches(schema)
	if err != nil {
		return c.HashError(err, "error decoding rows")
	}

	h := hasher.NewWithSchema(schema, hasherOptions(c.Request().Context())...)
	if err = h.WriteBatches(batches, hasher.Add); err != nil {
		return c.HashError(err, "error hashing rows")
	}
	fp := h.Finalize()

	return c.JSON(http.StatusOK, HashResponse{
		Fingerprint: fp.String(),
		Hex:         fp.Hex(),
		Rows:        h.Rows(),
		TimeMS:      time.Since(start).Milliseconds(),
	})
}

// Batches decodes the rows against schema and splits them into batches of
// BatchRows rows.
func (b *RowsBody) Batches(schema *hasher.Schema) ([]batch.Batch, error) {
	var (
		rec *batch.Record
		err error
	)
	if b.RowsString != nil {
		rec, err = json_rows.DecodeNDJSON(*b.RowsString, schema)
	} else {
		rec, err = json_rows.Decode(b.Rows, schema)
	}
	if err != nil {
		return nil, err
	}
	return batch.Chunk(rec, utils.Deref(b.BatchRows, int(utils.HASH_BATCH_ROWS))), nil
}

func hasherOptions(ctx context.Context) []hasher.Option {
	return []hasher.Option{
		hasher.WithConcurrency(int(utils.HASH_CONCURRENCY)),
		hasher.WithLogger(*zerolog.Ctx(ctx)),
	}
}
