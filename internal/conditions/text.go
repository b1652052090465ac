package conditions

import "github.com/kjstillabower/homepage-weather/internal/models"

type labels struct{ zh, en string }

var text = map[models.Condition]labels{
	models.ConditionSunny:     {"晴", "Sunny"},
	models.ConditionCloudy:    {"多云", "Cloudy"},
	models.ConditionFewClouds: {"少云", "Few Clouds"},
	models.ConditionOvercast:  {"阴", "Overcast"},

	models.ConditionRainy:        {"雨", "Rain"},
	models.ConditionLightRain:    {"小雨", "Light Rain"},
	models.ConditionModerateRain: {"中雨", "Moderate Rain"},
	models.ConditionHeavyRain:    {"大雨", "Heavy Rain"},

	models.ConditionDrizzle:         {"毛毛雨", "Drizzle"},
	models.ConditionLightDrizzle:    {"小毛毛雨", "Light Drizzle"},
	models.ConditionModerateDrizzle: {"毛毛雨", "Moderate Drizzle"},
	models.ConditionHeavyDrizzle:    {"浓毛毛雨", "Dense Drizzle"},

	models.ConditionFreezingRain:      {"冻雨", "Freezing Rain"},
	models.ConditionLightFreezingRain: {"小冻雨", "Light Freezing Rain"},
	models.ConditionHeavyFreezingRain: {"强冻雨", "Heavy Freezing Rain"},

	models.ConditionFreezingDrizzle:      {"冻毛毛雨", "Freezing Drizzle"},
	models.ConditionLightFreezingDrizzle: {"小冻毛毛雨", "Light Freezing Drizzle"},
	models.ConditionHeavyFreezingDrizzle: {"强冻毛毛雨", "Dense Freezing Drizzle"},

	models.ConditionSnowy:        {"雪", "Snow"},
	models.ConditionLightSnow:    {"小雪", "Light Snow"},
	models.ConditionModerateSnow: {"中雪", "Moderate Snow"},
	models.ConditionHeavySnow:    {"大雪", "Heavy Snow"},

	models.ConditionThunderstorm:              {"雷阵雨", "Thunderstorm"},
	models.ConditionThunderstormWithHail:      {"雷阵雨伴有冰雹", "Thunderstorm with Hail"},
	models.ConditionThunderstormWithLightHail: {"雷阵雨伴有小冰雹", "Thunderstorm with Light Hail"},
	models.ConditionThunderstormWithHeavyHail: {"雷阵雨伴有大冰雹", "Thunderstorm with Heavy Hail"},

	models.ConditionFoggy:     {"雾", "Fog"},
	models.ConditionWindy:     {"大风", "Windy"},
	models.ConditionMist:      {"薄雾", "Mist"},
	models.ConditionHaze:      {"霾", "Haze"},
	models.ConditionSand:      {"扬沙", "Sand"},
	models.ConditionSandstorm: {"沙尘暴", "Sandstorm"},
}

// Text returns display text for c in lang. Unknown conditions return c verbatim.
func Text(c models.Condition, lang models.Lang) string {
	l, ok := text[c]
	if !ok {
		return string(c)
	}
	if lang == models.LangZH {
		return l.zh
	}
	return l.en
}
