package common

import (
	"errors"
	"math"
	"sync"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/time/rate"
)

var (
	ErrQuotaRequestsExceeded  = errors.New("quota requests exceeded")
	ErrQuotaVolumeCapExceeded = errors.New("quota volume cap exceeded")
	ErrQuotaCounterOverflow   = errors.New("quota counter overflow")
	ErrRequestRateExceeded    = errors.New("request rate exceeded")
)

// QuotaNow captures the current quota usage counters for an address.
type QuotaNow struct {
	ReqCount   uint32
	VolumeUsed uint64
	EpochID    uint64
}

// Quota defines the per-authority rate limits enforced for a dispatcher
// command: how many requests it may submit per minute, and how much volume
// it may move per epoch. Volume is the swap input amount or the position
// collateral, in whichever asset it is paid; closes are not counted.
type Quota struct {
	MaxRequestsPerMin uint32
	MaxVolumePerEpoch uint64
	EpochSeconds      uint32
}

// CheckQuota verifies whether the additional request and volume usage fit
// within the configured quota. The returned QuotaNow reflects the updated
// counters when the quota is not exceeded.
func CheckQuota(q Quota, nowEpoch uint64, prev QuotaNow, addReq uint32, addVolume uint64) (QuotaNow, error) {
	next := prev
	if prev.EpochID != nowEpoch {
		next = QuotaNow{EpochID: nowEpoch}
	}

	if addReq > 0 {
		if next.ReqCount > math.MaxUint32-addReq {
			return prev, ErrQuotaCounterOverflow
		}
		next.ReqCount += addReq
	}
	if q.MaxRequestsPerMin > 0 && next.ReqCount > q.MaxRequestsPerMin {
		return prev, ErrQuotaRequestsExceeded
	}

	if addVolume > 0 {
		if next.VolumeUsed > math.MaxUint64-addVolume {
			return prev, ErrQuotaCounterOverflow
		}
		next.VolumeUsed += addVolume
	}
	if q.MaxVolumePerEpoch > 0 && next.VolumeUsed > q.MaxVolumePerEpoch {
		return prev, ErrQuotaVolumeCapExceeded
	}

	return next, nil
}

// RequestLimiter token-bucket throttles requests per authority, the same
// shape as the teacher's gateway rate limiter: MaxRequestsPerMin converts to
// a per-second refill rate with a small burst allowance instead of a hard
// count that only resets on the minute boundary. CheckQuota above enforces
// the epoch ceiling; RequestLimiter enforces how quickly an authority may
// approach it.
type RequestLimiter struct {
	mu        sync.Mutex
	limiters  map[solana.PublicKey]*rate.Limiter
	perSecond rate.Limit
	burst     int
}

// NewRequestLimiter builds a limiter from a Quota's MaxRequestsPerMin. A
// zero MaxRequestsPerMin disables throttling: Allow always succeeds.
func NewRequestLimiter(q Quota) *RequestLimiter {
	if q.MaxRequestsPerMin == 0 {
		return &RequestLimiter{perSecond: rate.Inf, burst: 1}
	}
	burst := int(q.MaxRequestsPerMin / 6)
	if burst < 1 {
		burst = 1
	}
	return &RequestLimiter{
		limiters:  make(map[solana.PublicKey]*rate.Limiter),
		perSecond: rate.Limit(float64(q.MaxRequestsPerMin) / 60.0),
		burst:     burst,
	}
}

// Allow reports whether authority may submit another request right now,
// creating its token bucket lazily on first use.
func (l *RequestLimiter) Allow(authority solana.PublicKey) bool {
	if l.limiters == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[authority]
	if !ok {
		lim = rate.NewLimiter(l.perSecond, l.burst)
		l.limiters[authority] = lim
	}
	return lim.Allow()
}
