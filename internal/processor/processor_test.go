package processor

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/airwave/airwave/internal/model"
)

func discardLogger() zerolog.Logger { return zerolog.New(io.Discard) }

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		msg  *model.Message
		want model.Category
	}{
		{"oooi", &model.Message{Text: "OUT 1423"}, model.CategoryOOOI},
		{"position", &model.Message{Text: "POS N4512E07345 FL350"}, model.CategoryPosition},
		{"weather", &model.Message{Text: "METAR KJFK 201751Z"}, model.CategoryWeather},
		{"adsb", &model.Message{SourceType: model.SourceADSB, Text: "whatever"}, model.CategoryADSB},
		{"hfgcs_by_text", &model.Message{Text: "SKYKING SKYKING DO NOT ANSWER"}, model.CategoryHFGCS},
		{"freetext", &model.Message{Text: "hello world"}, model.CategoryFreetext},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := categorize(tt.msg)
			if got != tt.want {
				t.Errorf("categorize(%q) = %s, want %s", tt.msg.Text, got, tt.want)
			}
		})
	}
}

func TestCategorizeExtractsOOOI(t *testing.T) {
	msg := &model.Message{Text: "OFF 1430"}
	cat, ex := categorize(msg)
	if cat != model.CategoryOOOI {
		t.Fatalf("category = %s, want oooi", cat)
	}
	if ex.oooiEvent != "OFF" || ex.oooiTime != "1430" {
		t.Errorf("extraction = %+v, want event=OFF time=1430", ex)
	}
}

type fakeStore struct {
	saved []*model.Message
}

func (f *fakeStore) SaveMessage(_ context.Context, msg *model.Message) (bool, error) {
	f.saved = append(f.saved, msg)
	return true, nil
}

type fakeTracker struct {
	upserted []*model.Message
}

func (f *fakeTracker) Upsert(msg *model.Message) { f.upserted = append(f.upserted, msg) }

type fakeHFGCS struct {
	considered []*model.Message
}

func (f *fakeHFGCS) Consider(msg *model.Message) { f.considered = append(f.considered, msg) }

func TestProcessBranchesOnSourceType(t *testing.T) {
	t.Run("adsb_goes_to_tracker_not_store", func(t *testing.T) {
		st := &fakeStore{}
		tr := &fakeTracker{}
		p := New(nil, st, tr, nil, nil, discardLogger())

		msg := &model.Message{SourceType: model.SourceADSB, Identity: &model.Identity{Hex: "ABC123"}}
		out := p.Process(context.Background(), msg)

		if len(st.saved) != 0 {
			t.Error("ADS-B messages must not be persisted")
		}
		if len(tr.upserted) != 1 {
			t.Error("ADS-B message should reach the tracker")
		}
		if out.MessageNumber == 0 {
			t.Error("message_number should be assigned")
		}
	})

	t.Run("acars_persists_and_skips_tracker", func(t *testing.T) {
		st := &fakeStore{}
		tr := &fakeTracker{}
		p := New(nil, st, tr, nil, nil, discardLogger())

		msg := &model.Message{SourceType: model.SourceACARS, Text: "hello"}
		p.Process(context.Background(), msg)

		if len(st.saved) != 1 {
			t.Error("non-ADS-B messages must be persisted")
		}
		if len(tr.upserted) != 0 {
			t.Error("non-ADS-B messages must not reach the aircraft tracker")
		}
	})

	t.Run("adsb_military_callsign_also_feeds_hfgcs_tracker", func(t *testing.T) {
		st := &fakeStore{}
		tr := &fakeTracker{}
		hf := &fakeHFGCS{}
		p := New(nil, st, tr, hf, nil, discardLogger())

		msg := &model.Message{SourceType: model.SourceADSB, Identity: &model.Identity{Hex: "AE1234", Flight: "IRON71"}}
		p.Process(context.Background(), msg)

		if len(tr.upserted) != 1 {
			t.Error("ADS-B message should still reach the aircraft tracker")
		}
		if len(hf.considered) != 1 {
			t.Error("ADS-B message with a military-indicative callsign should also reach the HFGCS tracker")
		}
	})

	t.Run("military_callsign_feeds_hfgcs_tracker", func(t *testing.T) {
		st := &fakeStore{}
		hf := &fakeHFGCS{}
		p := New(nil, st, nil, hf, nil, discardLogger())

		msg := &model.Message{SourceType: model.SourceACARS, Identity: &model.Identity{Flight: "IRON11"}, Text: "hello"}
		p.Process(context.Background(), msg)

		if len(hf.considered) != 1 {
			t.Error("military-indicative callsign should reach HFGCS tracker")
		}
	})
}

func TestMessageNumberMonotonic(t *testing.T) {
	p := New(nil, &fakeStore{}, nil, nil, nil, discardLogger())
	first := p.Process(context.Background(), &model.Message{SourceType: model.SourceACARS})
	second := p.Process(context.Background(), &model.Message{SourceType: model.SourceACARS})
	if second.MessageNumber <= first.MessageNumber {
		t.Errorf("message numbers not monotonic: %d then %d", first.MessageNumber, second.MessageNumber)
	}
}
