package models

// Condition is the closed set of normalized weather states.
type Condition string

const (
	ConditionSunny     Condition = "Sunny"
	ConditionCloudy    Condition = "Cloudy"
	ConditionFewClouds Condition = "FewClouds"
	ConditionOvercast  Condition = "Overcast"

	ConditionRainy        Condition = "Rainy"
	ConditionLightRain    Condition = "LightRain"
	ConditionModerateRain Condition = "ModerateRain"
	ConditionHeavyRain    Condition = "HeavyRain"

	ConditionDrizzle         Condition = "Drizzle"
	ConditionLightDrizzle    Condition = "LightDrizzle"
	ConditionModerateDrizzle Condition = "ModerateDrizzle"
	ConditionHeavyDrizzle    Condition = "HeavyDrizzle"

	ConditionFreezingRain      Condition = "FreezingRain"
	ConditionLightFreezingRain Condition = "LightFreezingRain"
	ConditionHeavyFreezingRain Condition = "HeavyFreezingRain"

	ConditionFreezingDrizzle      Condition = "FreezingDrizzle"
	ConditionLightFreezingDrizzle Condition = "LightFreezingDrizzle"
	ConditionHeavyFreezingDrizzle Condition = "HeavyFreezingDrizzle"

	ConditionSnowy        Condition = "Snowy"
	ConditionLightSnow    Condition = "LightSnow"
	ConditionModerateSnow Condition = "ModerateSnow"
	ConditionHeavySnow    Condition = "HeavySnow"

	ConditionThunderstorm              Condition = "Thunderstorm"
	ConditionThunderstormWithHail      Condition = "ThunderstormWithHail"
	ConditionThunderstormWithLightHail Condition = "ThunderstormWithLightHail"
	ConditionThunderstormWithHeavyHail Condition = "ThunderstormWithHeavyHail"

	ConditionFoggy     Condition = "Foggy"
	ConditionWindy     Condition = "Windy"
	ConditionMist      Condition = "Mist"
	ConditionHaze      Condition = "Haze"
	ConditionSand      Condition = "Sand"
	ConditionSandstorm Condition = "Sandstorm"
)

// AllConditions lists every member of the enumeration.
var AllConditions = []Condition{
	ConditionSunny, ConditionCloudy, ConditionFewClouds, ConditionOvercast,
	ConditionRainy, ConditionLightRain, ConditionModerateRain, ConditionHeavyRain,
	ConditionDrizzle, ConditionLightDrizzle, ConditionModerateDrizzle, ConditionHeavyDrizzle,
	ConditionFreezingRain, ConditionLightFreezingRain, ConditionHeavyFreezingRain,
	ConditionFreezingDrizzle, ConditionLightFreezingDrizzle, ConditionHeavyFreezingDrizzle,
	ConditionSnowy, ConditionLightSnow, ConditionModerateSnow, ConditionHeavySnow,
	ConditionThunderstorm, ConditionThunderstormWithHail, ConditionThunderstormWithLightHail, ConditionThunderstormWithHeavyHail,
	ConditionFoggy, ConditionWindy, ConditionMist, ConditionHaze, ConditionSand, ConditionSandstorm,
}

var conditionSet = func() map[Condition]struct{} {
	m := make(map[Condition]struct{}, len(AllConditions))
	for _, c := range AllConditions {
		m[c] = struct{}{}
	}
	return m
}()

// Valid reports whether c is a member of the enumeration.
func (c Condition) Valid() bool {
	_, ok := conditionSet[c]
	return ok
}
