package pirep

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
)

// prop returns a property as display text. Missing, empty, zero and false
// values all read as "".
func prop(p geojson.Properties, key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if !v {
			return ""
		}
		return "true"
	default:
		return fmt.Sprint(v)
	}
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// pad3 left-pads with zeros and keeps the last three characters, the way
// cloud bases and tops are written in hundreds of feet.
func pad3(s string) string {
	s = "000" + s
	return s[len(s)-3:]
}

func wind(p geojson.Properties) string {
	out := prop(p, "wdir")
	if spd := prop(p, "wspd"); spd != "" {
		out += "@" + spd
	}
	return out
}

func icing(p geojson.Properties) string {
	return squash(prop(p, "icgInt1") + " " + prop(p, "icgType1"))
}

func skyCondition(p geojson.Properties) string {
	out := ""
	if cvg := prop(p, "cloudCvg1"); cvg != "" {
		out += cvg + " "
	}
	if base := prop(p, "Bas1"); base != "" {
		out += pad3(base)
	}
	if top := prop(p, "Top1"); top != "" {
		out += "-" + pad3(top)
	}
	return strings.TrimSpace(out)
}

func turbulence(p geojson.Properties) string {
	return squash(prop(p, "tbInt1") + " " + prop(p, "tbFreq1") + " " + prop(p, "tbType1"))
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// observed parses obsTime, which shows up either as a timestamp string or as
// unix seconds.
func observed(p geojson.Properties) (time.Time, bool) {
	switch v := p["obsTime"].(type) {
	case float64:
		if v <= 0 {
			return time.Time{}, false
		}
		return time.Unix(int64(v), 0).UTC(), true
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
