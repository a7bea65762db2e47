package retry

import (
	"math"
	"math/rand"
	"time"

	"golang.org/x/exp/constraints"
)

// Strategy reports how long to wait before attempt n+1, or that no more
// attempts should be made.
type Strategy interface {
	Sleep(n uint) (delay time.Duration, exceeded bool)
}

type never struct{}

// NewNever never retries.
func NewNever() *never {
	return &never{}
}

func (*never) Sleep(uint) (time.Duration, bool) {
	return 0, true
}

// Entropy maps an upper bound to a delay in [0, bound). rand.Int63n gives
// full jitter; tests pass an identity function.
type Entropy func(int64) int64

type exponentialBackOff struct {
	base          time.Duration
	max           time.Duration
	maxRetryCount uint
	entropy       Entropy
}

// NewExponentialBackOff doubles base on every retry up to max, and gives up
// after maxRetryCount retries. A nil entropy means full jitter.
func NewExponentialBackOff(base time.Duration, max time.Duration, maxRetryCount uint, entropy Entropy) *exponentialBackOff {
	if entropy == nil {
		entropy = rand.Int63n
	}
	return &exponentialBackOff{
		base:          base,
		max:           max,
		maxRetryCount: maxRetryCount,
		entropy:       entropy,
	}
}

func (eb *exponentialBackOff) Sleep(retryCount uint) (time.Duration, bool) {
	if retryCount >= eb.maxRetryCount {
		return 0, true
	}
	return time.Duration(eb.entropy(eb.ceiling(retryCount))), false
}

// ceiling is base*2^retryCount clamped to max, saturating on overflow.
func (eb *exponentialBackOff) ceiling(retryCount uint) int64 {
	limit := int64(eb.max)
	if retryCount >= 63 {
		return limit
	}
	delay, ok := mulInt64(1<<retryCount, int64(eb.base))
	if !ok {
		return limit
	}
	return lesser(delay, limit)
}

func lesser[T constraints.Ordered](l T, r T) T {
	if r < l {
		return r
	}
	return l
}

func mulInt64(l int64, r int64) (int64, bool) {
	if l == 0 || r == 0 {
		return 0, true
	}
	if l > math.MaxInt64/r {
		return 0, false
	}
	return l * r, true
}
