package utils

import (
	"os"
	"runtime"
)

var (
	HTTP_PORT          = GetEnvOrDefault("HTTP_PORT", "8080")
	SHUTDOWN_SLEEP_SEC = GetEnvOrDefaultInt("SHUTDOWN_SLEEP_SEC", 0)

	// HASH_CONCURRENCY bounds the digest goroutines of a single write
	HASH_CONCURRENCY = GetEnvOrDefaultInt("HASH_CONCURRENCY", int64(runtime.GOMAXPROCS(0)))
	// HASH_BATCH_ROWS is how many rows of a request body go into one batch
	HASH_BATCH_ROWS = GetEnvOrDefaultInt("HASH_BATCH_ROWS", 1000)
	MAX_HASHERS     = GetEnvOrDefaultInt("MAX_HASHERS", 10_000)

	AWS_ACCESS_KEY_ID     = os.Getenv("AWS_ACCESS_KEY_ID")
	AWS_SECRET_ACCESS_KEY = os.Getenv("AWS_SECRET_ACCESS_KEY")
	AWS_DEFAULT_REGION    = GetEnvOrDefault("AWS_DEFAULT_REGION", "us-east-1")

	S3_BUCKET_NAME  = os.Getenv("S3_BUCKET_NAME")
	S3_ENDPOINT     = os.Getenv("S3_ENDPOINT")
	S3_READ_RETRIES = GetEnvOrDefaultInt("S3_READ_RETRIES", 5)
)
