package source

import (
	"testing"
	"time"

	"github.com/airwave/airwave/internal/model"
)

func TestDerivePhase(t *testing.T) {
	tests := []struct {
		name string
		snap adsbSnapshot
		want model.FlightPhase
	}{
		{"on_ground", adsbSnapshot{OnGround: true, AltitudeFt: 5000}, model.PhaseTaxi},
		{"low_altitude", adsbSnapshot{AltitudeFt: 50}, model.PhaseTaxi},
		{"climbing_low", adsbSnapshot{AltitudeFt: 5000, VerticalRate: 1500}, model.PhaseTakeoff},
		{"descending", adsbSnapshot{AltitudeFt: 15000, VerticalRate: -1500}, model.PhaseDescent},
		{"approach", adsbSnapshot{AltitudeFt: 8000, VerticalRate: 200}, model.PhaseApproach},
		{"cruise", adsbSnapshot{AltitudeFt: 35000, VerticalRate: 0}, model.PhaseCruise},
		{"unknown", adsbSnapshot{AltitudeFt: 15000, VerticalRate: 600}, model.PhaseUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := derivePhase(tt.snap); got != tt.want {
				t.Errorf("derivePhase(%+v) = %s, want %s", tt.snap, got, tt.want)
			}
		})
	}
}

func TestFormatCoordinates(t *testing.T) {
	// 45.2N, 73.75W expressed as lat=45.2, lon=-73.75
	got := formatCoordinates(45.2, -73.75)
	want := "N4512 W07345"
	if got != want {
		t.Errorf("formatCoordinates(45.2, -73.75) = %q, want %q", got, want)
	}
}

func TestSignificantChangeTracker(t *testing.T) {
	sc := newSignificantChangeTracker()
	base := adsbSnapshot{Hex: "ABC123", Lat: 40.0, Lon: -75.0, HasPosition: true, AltitudeFt: 10000, GroundSpeed: 300, Heading: 90}

	if !sc.shouldEmit("ABC123", base, model.PhaseCruise) {
		t.Fatal("first sighting must always emit")
	}
	if sc.shouldEmit("ABC123", base, model.PhaseCruise) {
		t.Error("identical snapshot must not re-emit")
	}

	moved := base
	moved.Lat += 0.01 // well beyond the 0.0015 degree threshold
	if !sc.shouldEmit("ABC123", moved, model.PhaseCruise) {
		t.Error("position change beyond threshold must emit")
	}

	climbed := moved
	climbed.AltitudeFt += 1000
	if !sc.shouldEmit("ABC123", climbed, model.PhaseCruise) {
		t.Error("altitude change >= 1000ft must emit")
	}

	sped := climbed
	sped.GroundSpeed += 50
	if !sc.shouldEmit("ABC123", sped, model.PhaseCruise) {
		t.Error("ground speed change >= 50kt must emit")
	}

	turned := sped
	turned.Heading = 125
	if !sc.shouldEmit("ABC123", turned, model.PhaseCruise) {
		t.Error("heading change >= 30 degrees must emit")
	}

	if !sc.shouldEmit("ABC123", turned, model.PhaseDescent) {
		t.Error("flight phase change must emit")
	}
}

func TestHeadingDeltaWrapsModularly(t *testing.T) {
	if d := headingDelta(350, 10); d != 20 {
		t.Errorf("headingDelta(350,10) = %v, want 20", d)
	}
	if d := headingDelta(10, 350); d != 20 {
		t.Errorf("headingDelta(10,350) = %v, want 20", d)
	}
}

func TestPollRateLimiterDoublesAndRestores(t *testing.T) {
	prl := newPollRateLimiter(10*time.Second, 40*time.Second)
	if got := prl.Interval(); got != 10*time.Second {
		t.Fatalf("initial interval = %v, want 10s", got)
	}

	prl.OnRateLimited()
	if got := prl.Interval(); got != 20*time.Second {
		t.Fatalf("after one rate limit = %v, want 20s", got)
	}

	prl.OnRateLimited()
	if got := prl.Interval(); got != 40*time.Second {
		t.Fatalf("after two rate limits = %v, want 40s (capped)", got)
	}

	prl.OnRateLimited()
	if got := prl.Interval(); got != 40*time.Second {
		t.Fatalf("interval exceeded cap: %v", got)
	}

	prl.OnSuccess()
	if got := prl.Interval(); got != 10*time.Second {
		t.Fatalf("after success = %v, want base 10s restored", got)
	}
}

func TestUnitConversions(t *testing.T) {
	if got := metersToFeet(1000); got < 3280 || got > 3281 {
		t.Errorf("metersToFeet(1000) = %v, want ~3280.84", got)
	}
	if got := mpsToKnots(10); got < 19.4 || got > 19.5 {
		t.Errorf("mpsToKnots(10) = %v, want ~19.44", got)
	}
}
