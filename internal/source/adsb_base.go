package source

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/airwave/airwave/internal/model"
)

// adsbSnapshot is one state vector decoded from an upstream ADS-B feed,
// independent of whether it came from TAR1090, OpenSky, or ADSB-Exchange.
type adsbSnapshot struct {
	Hex          string
	Flight       string
	Lat, Lon     float64
	HasPosition  bool
	AltitudeFt   float64
	GroundSpeed  float64
	Heading      float64
	VerticalRate float64
	OnGround     bool
	Squawk       string
}

// derivePhase applies the flight-phase decision table common to all ADS-B
// sources.
func derivePhase(s adsbSnapshot) model.FlightPhase {
	switch {
	case s.OnGround || s.AltitudeFt < 100:
		return model.PhaseTaxi
	case s.VerticalRate > 1000 && s.AltitudeFt < 20000:
		return model.PhaseTakeoff
	case s.VerticalRate < -1000:
		return model.PhaseDescent
	case s.AltitudeFt < 10000 && math.Abs(s.VerticalRate) <= 500:
		return model.PhaseApproach
	case s.AltitudeFt >= 20000 && math.Abs(s.VerticalRate) <= 500:
		return model.PhaseCruise
	default:
		return model.PhaseUnknown
	}
}

// formatCoordinates renders lat/lon as "N/S DDMM E/W DDDMM", latitude
// zero-padded to 4 digits and longitude to 5.
func formatCoordinates(lat, lon float64) string {
	latHemi := "N"
	if lat < 0 {
		latHemi = "S"
		lat = -lat
	}
	lonHemi := "E"
	if lon < 0 {
		lonHemi = "W"
		lon = -lon
	}
	latDeg := int(lat)
	latMin := int(math.Round((lat - float64(latDeg)) * 60))
	lonDeg := int(lon)
	lonMin := int(math.Round((lon - float64(lonDeg)) * 60))
	return fmt.Sprintf("%s%02d%02d %s%03d%02d", latHemi, latDeg, latMin, lonHemi, lonDeg, lonMin)
}

// metersToFeet converts an altitude reported in meters (OpenSky) to feet.
func metersToFeet(m float64) float64 { return m * 3.28084 }

// mpsToKnots converts a velocity reported in meters/second to knots.
func mpsToKnots(mps float64) float64 { return mps * 1.94384 }

// lastSeenEntry is the previous snapshot used by the significant-change
// predicate, keyed by hex.
type lastSeenEntry struct {
	snapshot adsbSnapshot
	phase    model.FlightPhase
}

// significantChangeTracker decides whether a new snapshot for a hex differs
// enough from the last one seen to warrant emitting a message.
type significantChangeTracker struct {
	mu   sync.Mutex
	last map[string]lastSeenEntry
}

func newSignificantChangeTracker() *significantChangeTracker {
	return &significantChangeTracker{last: make(map[string]lastSeenEntry)}
}

// shouldEmit applies the significant-change predicate and, if true, records
// the new snapshot as the baseline for the next comparison.
func (t *significantChangeTracker) shouldEmit(hex string, s adsbSnapshot, phase model.FlightPhase) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, ok := t.last[hex]
	if !ok {
		t.last[hex] = lastSeenEntry{snapshot: s, phase: phase}
		return true
	}

	changed := false
	if s.HasPosition && prev.snapshot.HasPosition {
		if haversineDegrees(prev.snapshot.Lat, prev.snapshot.Lon, s.Lat, s.Lon) > 0.0015 {
			changed = true
		}
	} else if s.HasPosition != prev.snapshot.HasPosition {
		changed = true
	}
	if math.Abs(s.AltitudeFt-prev.snapshot.AltitudeFt) >= 1000 {
		changed = true
	}
	if math.Abs(s.GroundSpeed-prev.snapshot.GroundSpeed) >= 50 {
		changed = true
	}
	if headingDelta(prev.snapshot.Heading, s.Heading) >= 30 {
		changed = true
	}
	if phase != prev.phase {
		changed = true
	}

	if changed {
		t.last[hex] = lastSeenEntry{snapshot: s, phase: phase}
	}
	return changed
}

// haversineDegrees approximates planar distance in degrees; at the scale of
// the 0.0015° (~150m) significant-change threshold, Euclidean distance on
// lat/lon is an adequate proxy for a great-circle distance.
func haversineDegrees(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := lat2 - lat1
	dLon := lon2 - lon1
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

// headingDelta returns the modular difference between two headings in
// degrees, in [0, 180].
func headingDelta(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// pollRateLimiter doubles an ADS-B source's poll interval on HTTP 429 and
// restores it on the next successful response, capped at a maximum.
// golang.org/x/time/rate.Limiter is repurposed here as the interval holder:
// its token bucket isn't consulted for admission, only its rate is adjusted
// and read back via Limit() so pollInterval derives from a single source of
// truth rather than a separately tracked time.Duration.
type pollRateLimiter struct {
	base    time.Duration
	cap     time.Duration
	limiter *rate.Limiter
	doubled atomic.Bool
}

func newPollRateLimiter(base, cap time.Duration) *pollRateLimiter {
	return &pollRateLimiter{
		base:    base,
		cap:     cap,
		limiter: rate.NewLimiter(rate.Every(base), 1),
	}
}

// Interval returns the current poll interval.
func (p *pollRateLimiter) Interval() time.Duration {
	return time.Duration(float64(time.Second) / float64(p.limiter.Limit()))
}

// OnRateLimited doubles the interval, capped, on an HTTP 429 response.
func (p *pollRateLimiter) OnRateLimited() {
	cur := p.Interval()
	next := cur * 2
	if next > p.cap {
		next = p.cap
	}
	p.limiter.SetLimit(rate.Every(next))
	p.doubled.Store(true)
}

// OnSuccess restores the base interval after a 2xx response, if currently doubled.
func (p *pollRateLimiter) OnSuccess() {
	if p.doubled.CompareAndSwap(true, false) {
		p.limiter.SetLimit(rate.Every(p.base))
	}
}
