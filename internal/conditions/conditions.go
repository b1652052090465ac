// Package conditions maps upstream weather codes onto the internal Condition
// enumeration and the QWeather icon vocabulary used by the homepage pictograms.
//
// Two vocabularies are supported. Their numbering schemes are unrelated, so a new
// condition has to be added to both tables by hand.
package conditions

import "github.com/kjstillabower/homepage-weather/internal/models"

// Vocabulary identifies an upstream code set.
type Vocabulary string

const (
	// WMO is the WMO 4677 subset used by Open-Meteo weather_code.
	WMO Vocabulary = "wmo"
	// QWeather is the QWeather icon code set.
	QWeather Vocabulary = "qweather"
)

// Icon codes shared by both vocabularies (QWeather numbering).
const (
	IconClearDay   = 100
	IconClearNight = 150
)

// rule is the result of a lookup. dayIcon/nightIcon differ for codes with a
// night pictogram.
type rule struct {
	condition models.Condition
	dayIcon   int
	nightIcon int
}

func same(c models.Condition, icon int) rule { return rule{c, icon, icon} }

type codeKey struct {
	vocab Vocabulary
	code  int
}

type rangeRule struct {
	vocab    Vocabulary
	from, to int
	rule     rule
}

// exact holds single-code rules. They take precedence over ranges.
var exact = map[codeKey]rule{
	{WMO, 0}: {models.ConditionSunny, 100, 150},
	{WMO, 1}: {models.ConditionFewClouds, 102, 152},
	{WMO, 2}: {models.ConditionCloudy, 101, 151},
	{WMO, 3}: same(models.ConditionOvercast, 104),

	{WMO, 45}: same(models.ConditionFoggy, 501),
	{WMO, 48}: same(models.ConditionFoggy, 501),

	{WMO, 51}: same(models.ConditionLightDrizzle, 309),
	{WMO, 53}: same(models.ConditionModerateDrizzle, 309),
	{WMO, 55}: same(models.ConditionHeavyDrizzle, 309),
	{WMO, 56}: same(models.ConditionLightFreezingDrizzle, 313),
	{WMO, 57}: same(models.ConditionHeavyFreezingDrizzle, 313),

	{WMO, 61}: same(models.ConditionLightRain, 305),
	{WMO, 63}: same(models.ConditionModerateRain, 306),
	{WMO, 65}: same(models.ConditionHeavyRain, 307),
	{WMO, 66}: same(models.ConditionLightFreezingRain, 313),
	{WMO, 67}: same(models.ConditionHeavyFreezingRain, 313),

	{WMO, 71}: same(models.ConditionLightSnow, 400),
	{WMO, 73}: same(models.ConditionModerateSnow, 401),
	{WMO, 75}: same(models.ConditionHeavySnow, 402),
	{WMO, 77}: same(models.ConditionSnowy, 499),

	{WMO, 80}: {models.ConditionLightRain, 300, 350},
	{WMO, 81}: {models.ConditionModerateRain, 300, 350},
	{WMO, 82}: {models.ConditionHeavyRain, 301, 351},
	{WMO, 85}: {models.ConditionLightSnow, 407, 457},
	{WMO, 86}: {models.ConditionHeavySnow, 407, 457},

	{WMO, 95}: same(models.ConditionThunderstorm, 302),
	{WMO, 96}: same(models.ConditionThunderstormWithLightHail, 304),
	{WMO, 99}: same(models.ConditionThunderstormWithHeavyHail, 304),

	{QWeather, 100}: same(models.ConditionSunny, 100),
	{QWeather, 150}: same(models.ConditionSunny, 150),
	{QWeather, 101}: same(models.ConditionCloudy, 101),
	{QWeather, 151}: same(models.ConditionCloudy, 151),
	{QWeather, 102}: same(models.ConditionFewClouds, 102),
	{QWeather, 152}: same(models.ConditionFewClouds, 152),
	{QWeather, 103}: same(models.ConditionFewClouds, 103),
	{QWeather, 153}: same(models.ConditionFewClouds, 153),
	{QWeather, 104}: same(models.ConditionOvercast, 104),

	{QWeather, 300}: same(models.ConditionRainy, 300),
	{QWeather, 350}: same(models.ConditionRainy, 350),
	{QWeather, 301}: same(models.ConditionHeavyRain, 301),
	{QWeather, 351}: same(models.ConditionHeavyRain, 351),
	{QWeather, 302}: same(models.ConditionThunderstorm, 302),
	{QWeather, 303}: same(models.ConditionThunderstorm, 303),
	{QWeather, 304}: same(models.ConditionThunderstormWithHail, 304),
	{QWeather, 305}: same(models.ConditionLightRain, 305),
	{QWeather, 306}: same(models.ConditionModerateRain, 306),
	{QWeather, 307}: same(models.ConditionHeavyRain, 307),
	{QWeather, 309}: same(models.ConditionDrizzle, 309),
	{QWeather, 313}: same(models.ConditionFreezingRain, 313),
	{QWeather, 314}: same(models.ConditionModerateRain, 314),
	{QWeather, 315}: same(models.ConditionHeavyRain, 315),

	{QWeather, 400}: same(models.ConditionLightSnow, 400),
	{QWeather, 401}: same(models.ConditionModerateSnow, 401),
	{QWeather, 402}: same(models.ConditionHeavySnow, 402),
	{QWeather, 403}: same(models.ConditionHeavySnow, 403),
	{QWeather, 408}: same(models.ConditionModerateSnow, 408),
	{QWeather, 409}: same(models.ConditionHeavySnow, 409),
	{QWeather, 410}: same(models.ConditionHeavySnow, 410),

	{QWeather, 500}: same(models.ConditionMist, 500),
	{QWeather, 501}: same(models.ConditionFoggy, 501),
	{QWeather, 502}: same(models.ConditionHaze, 502),
	{QWeather, 503}: same(models.ConditionSand, 503),
	{QWeather, 504}: same(models.ConditionSand, 504),
	{QWeather, 507}: same(models.ConditionSandstorm, 507),
	{QWeather, 508}: same(models.ConditionSandstorm, 508),
	{QWeather, 511}: same(models.ConditionHaze, 511),
	{QWeather, 512}: same(models.ConditionHaze, 512),
	{QWeather, 513}: same(models.ConditionHaze, 513),

	{QWeather, 900}: same(models.ConditionSunny, 900),
	{QWeather, 901}: same(models.ConditionSunny, 901),
}

// ranges hold the generic classification per code block. For QWeather the
// matched code is itself the icon, so the rule icon is ignored (see Map).
var ranges = []rangeRule{
	{WMO, 1, 3, rule{models.ConditionCloudy, 101, 151}},
	{WMO, 40, 49, same(models.ConditionFoggy, 501)},
	{WMO, 50, 55, same(models.ConditionDrizzle, 309)},
	{WMO, 56, 57, same(models.ConditionFreezingDrizzle, 313)},
	{WMO, 60, 65, same(models.ConditionRainy, 305)},
	{WMO, 66, 67, same(models.ConditionFreezingRain, 313)},
	{WMO, 70, 79, same(models.ConditionSnowy, 400)},
	{WMO, 80, 84, rule{models.ConditionRainy, 300, 350}},
	{WMO, 85, 86, rule{models.ConditionSnowy, 407, 457}},
	{WMO, 95, 99, same(models.ConditionThunderstorm, 302)},

	{QWeather, 200, 213, rule{condition: models.ConditionWindy}},
	{QWeather, 308, 312, rule{condition: models.ConditionHeavyRain}},
	{QWeather, 316, 318, rule{condition: models.ConditionHeavyRain}},
	{QWeather, 300, 399, rule{condition: models.ConditionRainy}},
	{QWeather, 400, 499, rule{condition: models.ConditionSnowy}},
	{QWeather, 509, 515, rule{condition: models.ConditionFoggy}},
}

var nightIcons = map[int]struct{}{
	150: {}, 151: {}, 152: {}, 153: {},
	350: {}, 351: {},
	456: {}, 457: {},
}

// Map returns the Condition and icon code for an upstream code. Unknown codes
// resolve to Sunny with the clear-sky icon of the matching time of day.
func Map(vocab Vocabulary, code int, isDay bool) (models.Condition, int) {
	if r, ok := exact[codeKey{vocab, code}]; ok {
		return r.condition, r.icon(isDay)
	}
	for _, rr := range ranges {
		if rr.vocab != vocab || code < rr.from || code > rr.to {
			continue
		}
		if vocab == QWeather {
			return rr.rule.condition, code
		}
		return rr.rule.condition, rr.rule.icon(isDay)
	}
	if isDay {
		return models.ConditionSunny, IconClearDay
	}
	return models.ConditionSunny, IconClearNight
}

// MapWMO is Map for Open-Meteo weather codes.
func MapWMO(code int, isDay bool) (models.Condition, int) {
	return Map(WMO, code, isDay)
}

// MapQWeather is Map for QWeather icon codes. Day/night is derived from the icon.
func MapQWeather(icon int) (models.Condition, int, bool) {
	isDay := !IsNightIcon(icon)
	c, i := Map(QWeather, icon, isDay)
	return c, i, isDay
}

// IsNightIcon reports whether a QWeather icon code is a night variant.
func IsNightIcon(icon int) bool {
	_, ok := nightIcons[icon]
	return ok
}

func (r rule) icon(isDay bool) int {
	if isDay {
		return r.dayIcon
	}
	return r.nightIcon
}
