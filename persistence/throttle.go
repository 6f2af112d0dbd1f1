package persistence

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// ThrottledWriter limits the byte rate of writes to an underlying writer.
// It is used when streaming an index to remote storage.
type ThrottledWriter struct {
	ctx     context.Context
	w       io.Writer
	limiter *rate.Limiter
}

// NewThrottledWriter wraps w. A non-positive bytesPerSec disables throttling.
func NewThrottledWriter(ctx context.Context, w io.Writer, bytesPerSec int) io.Writer {
	if bytesPerSec <= 0 {
		return w
	}
	return &ThrottledWriter{
		ctx:     ctx,
		w:       w,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec),
	}
}

// Write implements io.Writer. It waits for the limiter in chunks no larger
// than the burst size.
func (t *ThrottledWriter) Write(p []byte) (int, error) {
	burst := t.limiter.Burst()
	written := 0
	for len(p) > 0 {
		chunk := p
		if len(chunk) > burst {
			chunk = chunk[:burst]
		}
		if err := t.limiter.WaitN(t.ctx, len(chunk)); err != nil {
			return written, err
		}
		n, err := t.w.Write(chunk)
		written += n
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}
