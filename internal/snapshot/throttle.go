package snapshot

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// throttledReader limits read throughput with a token bucket.
type throttledReader struct {
	ctx     context.Context
	r       io.ReadCloser
	limiter *rate.Limiter
}

// Throttle limits r to bytesPerSecond. A non-positive rate returns r as is.
func Throttle(ctx context.Context, r io.ReadCloser, bytesPerSecond int) io.ReadCloser {
	if bytesPerSecond <= 0 {
		return r
	}
	return &throttledReader{
		ctx:     ctx,
		r:       r,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond),
	}
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if burst := t.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if waitErr := t.limiter.WaitN(t.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}

func (t *throttledReader) Close() error {
	return t.r.Close()
}
