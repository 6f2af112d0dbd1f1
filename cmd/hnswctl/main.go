// Command hnswctl builds, queries and inspects saved hnswlib indexes.
//
// Index locations are plain file paths, s3://bucket/key or
// minio://endpoint/bucket/key. S3 credentials come from the default AWS
// chain, MinIO credentials from MINIO_ACCESS_KEY and MINIO_SECRET_KEY.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
