package processor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/airwave/airwave/internal/model"
)

var (
	oooiPattern     = regexp.MustCompile(`\b(OUT|OFF|ON|IN)\b\s*(\d{3,4}Z?)`)
	positionPattern = regexp.MustCompile(`\bPOS\b.*?([NS]\d{4,6}[EW]\d{5,7})`)
	altitudePattern = regexp.MustCompile(`\bFL(\d{3})\b`)
	cpdlcPattern    = regexp.MustCompile(`\b(REQUEST|CLEARED|CLIMB|DESCEND)\b`)
	weatherPattern  = regexp.MustCompile(`\b(METAR|TAF)\b`)
	hfgcsPattern    = regexp.MustCompile(`\b(SKYKING|EAM)\b`)

	cpdlcLabels = map[string]struct{}{
		"AA": {}, "CC": {}, "H1": {}, "B6": {},
	}
)

// categorize applies the text-pattern rules in priority order, first match
// wins, and returns the resulting category plus any structured extraction.
func categorize(msg *model.Message) (model.Category, extraction) {
	text := strings.ToUpper(msg.Text)

	if msg.SourceType == model.SourceADSB {
		return model.CategoryADSB, extraction{}
	}

	if m := oooiPattern.FindStringSubmatch(text); m != nil {
		return model.CategoryOOOI, extraction{oooiEvent: m[1], oooiTime: m[2]}
	}
	if m := positionPattern.FindStringSubmatch(text); m != nil {
		ex := extraction{positionCoord: m[1]}
		if alt := altitudePattern.FindStringSubmatch(text); alt != nil {
			if fl, err := strconv.Atoi(alt[1]); err == nil {
				ex.positionAltFt = float64(fl) * 100
			}
		}
		return model.CategoryPosition, ex
	}
	if cpdlcPattern.MatchString(text) {
		if _, ok := cpdlcLabels[msg.Label]; ok || msg.Label != "" {
			subtype := "request"
			if strings.Contains(text, "CLEARED") {
				subtype = "clearance"
			}
			return model.CategoryCPDLC, extraction{cpdlcType: subtype}
		}
	}
	if weatherPattern.MatchString(text) {
		return model.CategoryWeather, extraction{}
	}
	if msg.SourceType == model.SourceHFGCS || hfgcsPattern.MatchString(text) {
		htype := "EAM"
		if strings.Contains(text, "SKYKING") {
			htype = "SKYKING"
		}
		return model.CategoryHFGCS, extraction{hfgcsType: htype}
	}
	return model.CategoryFreetext, extraction{}
}

// extraction holds every category's structured fields; only the ones
// relevant to the assigned category are populated.
type extraction struct {
	oooiEvent     string
	oooiTime      string
	positionCoord string
	positionAltFt float64
	cpdlcType     string
	hfgcsType     string
}

// apply writes the extraction's fields onto msg.
func (e extraction) apply(msg *model.Message) {
	if e.oooiEvent != "" {
		msg.OOOI = &model.OOOIExtension{Event: e.oooiEvent, Time: e.oooiTime}
	}
	if e.positionCoord != "" {
		if msg.Position == nil {
			msg.Position = &model.Position{}
		}
		msg.Position.Coordinates = e.positionCoord
		if e.positionAltFt > 0 {
			msg.Position.AltitudeFt = e.positionAltFt
		}
	}
	if e.cpdlcType != "" {
		msg.CPDLCType = e.cpdlcType
	}
	if e.hfgcsType != "" {
		msg.HFGCSType = e.hfgcsType
	}
}
