package classify

import (
	"strings"
	"unicode"

	"github.com/spf13/cast"

	"github.com/ckfr/ops-allocation/internal/model"
)

// Legacy category keywords, checked in the order LegacyCategory lists them.
var (
	capitalKeywords = []string{
		"destroyer", "frigate", "corvette", "carrier", "dread", "capital",
		"large passenger", "heavy gunship", "heavy freight", "heavy salvage",
		"heavy construction", "heavy mining", "light carrier",
	}
	lightFighterKeywords = []string{"light fighter", "snub", "racing"}
)

// LegacyCategory derives the single-code category of an imported ship from
// its role text.  Anything that is not recognisably a fighter or a capital
// ship is multirole.
func LegacyCategory(role string) string {
	text := fold(role)
	switch {
	case containsAny(capitalKeywords)(text):
		return model.CategoryCapital
	case strings.Contains(text, "heavy fighter"):
		return model.CategoryHeavyFighter
	case strings.Contains(text, "medium fighter"):
		return model.CategoryMediumFighter
	case containsAny(lightFighterKeywords)(text):
		return model.CategoryLightFighter
	case strings.Contains(text, "gunship"):
		return model.CategoryHeavyFighter
	case strings.Contains(text, "bomber"):
		return model.CategoryMediumFighter
	}
	return model.CategoryMultirole
}

// ParseCrew reads a catalog crew field such as "2-4", "3", "-" or "?".
// Unknown or unparsable values give 0; max is never below min.
func ParseCrew(value string) (minCrew, maxCrew uint16) {
	value = strings.TrimSpace(value)
	if value == "" || value == "-" || value == "?" {
		return 0, 0
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)

	if start, end, ok := strings.Cut(cleaned, "-"); ok {
		minCrew = toCrew(start, 0)
		maxCrew = toCrew(end, minCrew)
	} else {
		minCrew = toCrew(cleaned, 0)
		maxCrew = minCrew
	}
	if maxCrew < minCrew {
		maxCrew = minCrew
	}
	return minCrew, maxCrew
}

func toCrew(s string, def uint16) uint16 {
	if s == "" {
		return def
	}
	n, err := cast.ToUint16E(s)
	if err != nil {
		return def
	}
	return n
}
