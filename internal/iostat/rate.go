// Package iostat derives MB/s throughput rates from the monotonic byte
// and sector counters the kernel exposes for disks and network
// interfaces.
package iostat

import (
	"sync"
	"time"
)

const bytesPerMB = 1024 * 1024

// Rate is a derived transfer rate in MB/s.
type Rate struct {
	RxMBps float64
	TxMBps float64
}

type rawSample struct {
	rx, tx uint64 // cumulative bytes
	at     time.Time
}

// Calculator keeps a per-device baseline sample and turns each new
// cumulative reading into a rate. Anomalies are absorbed, never
// surfaced: a first sample reports zero, a non-positive elapsed time is
// discarded, and a counter decrease re-baselines at zero.
type Calculator struct {
	mu    sync.Mutex
	last  map[string]rawSample
	rates map[string]Rate
}

func NewCalculator() *Calculator {
	return &Calculator{
		last:  make(map[string]rawSample),
		rates: make(map[string]Rate),
	}
}

// Update feeds one cumulative counter sample for the device and returns
// the resulting rate.
func (c *Calculator) Update(device string, rxBytes, txBytes uint64, now time.Time) Rate {
	c.mu.Lock()
	defer c.mu.Unlock()

	sample := rawSample{rx: rxBytes, tx: txBytes, at: now}

	prev, ok := c.last[device]
	if !ok {
		c.last[device] = sample
		c.rates[device] = Rate{}

		return Rate{}
	}

	elapsed := now.Sub(prev.at).Seconds()
	if elapsed <= 0 {
		// Clock anomaly: keep the previous rate and baseline
		return c.rates[device]
	}

	if rxBytes < prev.rx || txBytes < prev.tx {
		// Counter reset (device replaced or driver reset): clamp to
		// zero and treat this sample as a fresh baseline
		c.last[device] = sample
		c.rates[device] = Rate{}

		return Rate{}
	}

	rate := Rate{
		RxMBps: float64(rxBytes-prev.rx) / elapsed / bytesPerMB,
		TxMBps: float64(txBytes-prev.tx) / elapsed / bytesPerMB,
	}
	c.last[device] = sample
	c.rates[device] = rate

	return rate
}

// Rate returns the most recently computed rate for the device.
func (c *Calculator) Rate(device string) (Rate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rate, ok := c.rates[device]

	return rate, ok
}
