package s3_helper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/UltimateTournament/backoff/v4"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/danthegoodman1/idhash/dtype"
	"github.com/danthegoodman1/idhash/gologger"
	"github.com/danthegoodman1/idhash/parquet_source"
	"github.com/danthegoodman1/idhash/utils"
	"github.com/rs/zerolog"
	s3_pq "github.com/xitongsys/parquet-go-source/s3"
)

var (
	logger = gologger.NewLogger()

	ErrMissingLocation = utils.PermError("bucket and key are required")

	permanentCodes = map[string]bool{
		s3.ErrCodeNoSuchBucket: true,
		s3.ErrCodeNoSuchKey:    true,
		"NotFound":             true,
		"AccessDenied":         true,
		"Forbidden":            true,
		"InvalidBucketName":    true,
	}
)

func NewS3Client() (*s3.S3, error) {
	s3Config := &aws.Config{
		Region:      aws.String(utils.AWS_DEFAULT_REGION),
		Credentials: credentials.NewEnvCredentials(),
	}
	if utils.S3_ENDPOINT != "" {
		s3Config.Endpoint = aws.String(utils.S3_ENDPOINT)
		s3Config.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(s3Config)
	if err != nil {
		return nil, fmt.Errorf("error making new session: %w", err)
	}
	return s3.New(sess), nil
}

// OpenParquet opens s3://bucket/key as a parquet source. Opening reads the
// object size and footer, transient failures are retried up to
// S3_READ_RETRIES times. An empty bucket means S3_BUCKET_NAME.
func OpenParquet(ctx context.Context, client s3iface.S3API, bucket, key string, batchRows int) (*parquet_source.Reader, error) {
	if bucket == "" {
		bucket = utils.S3_BUCKET_NAME
	}
	if bucket == "" || key == "" {
		return nil, ErrMissingLocation
	}
	ctx = logger.WithContext(ctx)
	logger := zerolog.Ctx(ctx).With().Str("bucket", bucket).Str("key", key).Logger()

	var r *parquet_source.Reader
	s := time.Now()
	err := Retry(ctx, uint64(utils.S3_READ_RETRIES), func() error {
		pf, err := s3_pq.NewS3FileReaderWithParams(ctx, s3_pq.S3FileReaderParams{
			Bucket:   bucket,
			Key:      key,
			S3Client: client,
		})
		if err != nil {
			return Classify(fmt.Errorf("error creating new s3 file reader: %w", err))
		}
		r, err = parquet_source.NewReader(pf, batchRows)
		if err != nil {
			pf.Close()
			return Classify(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d := time.Since(s)
	logger.Debug().Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("opened parquet file from s3")
	return r, nil
}

// Retry runs op with exponential backoff until it succeeds, fails
// permanently, ctx is done, or maxRetries retries have failed.
func Retry(ctx context.Context, maxRetries uint64, op func() error) error {
	attempt := 0
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if utils.IsPermanent(err) {
			return backoff.Permanent(err)
		}
		logger.Warn().Err(err).Int("attempt", attempt).Msg("retrying s3 read")
		return err
	}, b)
}

type permanent struct {
	err error
}

func (p *permanent) Error() string     { return p.err.Error() }
func (p *permanent) Unwrap() error     { return p.err }
func (p *permanent) IsPermanent() bool { return true }

// Classify marks errors that retrying cannot fix (missing objects, denied
// access, unsupported files) as permanent.
func Classify(err error) error {
	if err == nil || utils.IsPermanent(err) {
		return err
	}
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		switch reqErr.StatusCode() {
		case http.StatusNotFound, http.StatusForbidden, http.StatusBadRequest:
			return &permanent{err}
		}
	}
	var aerr awserr.Error
	if errors.As(err, &aerr) && permanentCodes[aerr.Code()] {
		return &permanent{err}
	}
	var ute *dtype.UnsupportedTypeError
	if errors.As(err, &ute) {
		return &permanent{err}
	}
	return err
}
