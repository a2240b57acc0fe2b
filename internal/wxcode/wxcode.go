// Package wxcode maps upstream 3-digit weather codes and wind-direction
// indexes to domain conditions and localized descriptions.
package wxcode

import "github.com/soratext/soratext/internal/models"

type entry struct {
	condition   models.WeatherCondition
	description string
}

// codeTable maps the upstream telop-style codes. Unknown codes map to
// ConditionUnknown, never an error.
var codeTable = map[string]entry{
	// 100 series: sunny.
	"100": {models.ConditionClear, "晴れ"},
	"101": {models.ConditionPartlyCloudy, "晴れ時々曇り"},
	"102": {models.ConditionPartlyCloudy, "晴れ一時雨"},
	"103": {models.ConditionPartlyCloudy, "晴れ時々雨"},
	"104": {models.ConditionPartlyCloudy, "晴れ一時雪"},
	"105": {models.ConditionPartlyCloudy, "晴れ時々雪"},
	"106": {models.ConditionPartlyCloudy, "晴れ一時雨か雪"},
	"107": {models.ConditionPartlyCloudy, "晴れ時々雨か雪"},
	"108": {models.ConditionPartlyCloudy, "晴れ一時雨か雷雨"},
	"110": {models.ConditionPartlyCloudy, "晴れのち時々曇り"},
	"111": {models.ConditionPartlyCloudy, "晴れのち曇り"},
	"112": {models.ConditionPartlyCloudy, "晴れのち一時雨"},
	"113": {models.ConditionPartlyCloudy, "晴れのち時々雨"},
	"114": {models.ConditionPartlyCloudy, "晴れのち雨"},
	"115": {models.ConditionPartlyCloudy, "晴れのち一時雪"},
	"116": {models.ConditionPartlyCloudy, "晴れのち時々雪"},
	"117": {models.ConditionPartlyCloudy, "晴れのち雪"},
	"118": {models.ConditionPartlyCloudy, "晴れのち雨か雪"},
	"119": {models.ConditionPartlyCloudy, "晴れのち雨か雷雨"},
	"120": {models.ConditionPartlyCloudy, "晴れ朝夕一時雨"},
	"121": {models.ConditionPartlyCloudy, "晴れ朝の内一時雨"},
	"122": {models.ConditionPartlyCloudy, "晴れ夕方一時雨"},
	"123": {models.ConditionClear, "晴れ山沿い雷雨"},
	"124": {models.ConditionClear, "晴れ山沿い雪"},
	"125": {models.ConditionClear, "晴れ午後は雷雨"},
	"126": {models.ConditionClear, "晴れ昼頃から雨"},
	"127": {models.ConditionClear, "晴れ夕方から雨"},
	"128": {models.ConditionClear, "晴れ夜は雨"},
	"130": {models.ConditionFog, "朝の内霧のち晴れ"},
	"131": {models.ConditionFog, "晴れ明け方霧"},
	"132": {models.ConditionPartlyCloudy, "晴れ朝夕曇り"},
	"140": {models.ConditionThunder, "晴れ時々雨で雷を伴う"},
	"160": {models.ConditionPartlyCloudy, "晴れ一時雪か雨"},
	"170": {models.ConditionPartlyCloudy, "晴れ時々雪か雨"},
	"181": {models.ConditionPartlyCloudy, "晴れのち雪か雨"},

	// 200 series: cloudy.
	"200": {models.ConditionCloudy, "曇り"},
	"201": {models.ConditionCloudy, "曇り時々晴れ"},
	"202": {models.ConditionCloudy, "曇り一時雨"},
	"203": {models.ConditionCloudy, "曇り時々雨"},
	"204": {models.ConditionCloudy, "曇り一時雪"},
	"205": {models.ConditionCloudy, "曇り時々雪"},
	"206": {models.ConditionCloudy, "曇り一時雨か雪"},
	"207": {models.ConditionCloudy, "曇り時々雨か雪"},
	"208": {models.ConditionCloudy, "曇り一時雨か雷雨"},
	"209": {models.ConditionFog, "霧"},
	"210": {models.ConditionCloudy, "曇りのち時々晴れ"},
	"211": {models.ConditionCloudy, "曇りのち晴れ"},
	"212": {models.ConditionCloudy, "曇りのち一時雨"},
	"213": {models.ConditionCloudy, "曇りのち時々雨"},
	"214": {models.ConditionCloudy, "曇りのち雨"},
	"215": {models.ConditionCloudy, "曇りのち一時雪"},
	"216": {models.ConditionCloudy, "曇りのち時々雪"},
	"217": {models.ConditionCloudy, "曇りのち雪"},
	"218": {models.ConditionCloudy, "曇りのち雨か雪"},
	"219": {models.ConditionCloudy, "曇りのち雨か雷雨"},
	"220": {models.ConditionCloudy, "曇り朝夕一時雨"},
	"221": {models.ConditionCloudy, "曇り朝の内一時雨"},
	"222": {models.ConditionCloudy, "曇り夕方一時雨"},
	"223": {models.ConditionCloudy, "曇り日中時々晴れ"},
	"224": {models.ConditionCloudy, "曇り昼頃から雨"},
	"225": {models.ConditionCloudy, "曇り夕方から雨"},
	"226": {models.ConditionCloudy, "曇り夜は雨"},
	"228": {models.ConditionCloudy, "曇り昼頃から雪"},
	"229": {models.ConditionCloudy, "曇り夕方から雪"},
	"230": {models.ConditionCloudy, "曇り夜は雪"},
	"231": {models.ConditionFog, "曇り海上海岸は霧か霧雨"},
	"240": {models.ConditionThunder, "曇り時々雨で雷を伴う"},
	"250": {models.ConditionThunder, "曇り時々雪で雷を伴う"},
	"260": {models.ConditionCloudy, "曇り一時雪か雨"},
	"270": {models.ConditionCloudy, "曇り時々雪か雨"},
	"281": {models.ConditionCloudy, "曇りのち雪か雨"},

	// 300 series: rain.
	"300": {models.ConditionRain, "雨"},
	"301": {models.ConditionRain, "雨時々晴れ"},
	"302": {models.ConditionRain, "雨時々止む"},
	"303": {models.ConditionRain, "雨時々雪"},
	"304": {models.ConditionRain, "雨か雪"},
	"306": {models.ConditionHeavyRain, "大雨"},
	"308": {models.ConditionStorm, "雨で暴風を伴う"},
	"309": {models.ConditionRain, "雨一時雪"},
	"311": {models.ConditionRain, "雨のち晴れ"},
	"313": {models.ConditionRain, "雨のち曇り"},
	"314": {models.ConditionRain, "雨のち時々雪"},
	"315": {models.ConditionRain, "雨のち雪"},
	"316": {models.ConditionRain, "雨か雪のち晴れ"},
	"317": {models.ConditionRain, "雨か雪のち曇り"},
	"320": {models.ConditionRain, "朝の内雨のち晴れ"},
	"321": {models.ConditionRain, "朝の内雨のち曇り"},
	"322": {models.ConditionRain, "雨朝晩一時雪"},
	"323": {models.ConditionRain, "雨昼頃から晴れ"},
	"324": {models.ConditionRain, "雨夕方から晴れ"},
	"325": {models.ConditionRain, "雨夜は晴れ"},
	"326": {models.ConditionRain, "雨夕方から雪"},
	"327": {models.ConditionRain, "雨夜は雪"},
	"328": {models.ConditionHeavyRain, "雨一時強く降る"},
	"329": {models.ConditionRain, "雨一時みぞれ"},
	"340": {models.ConditionSnow, "雪か雨"},
	"350": {models.ConditionThunder, "雨で雷を伴う"},
	"361": {models.ConditionSnow, "雪か雨のち晴れ"},
	"371": {models.ConditionSnow, "雪か雨のち曇り"},

	// 400 series: snow.
	"400": {models.ConditionSnow, "雪"},
	"401": {models.ConditionSnow, "雪時々晴れ"},
	"402": {models.ConditionSnow, "雪時々止む"},
	"403": {models.ConditionSnow, "雪時々雨"},
	"405": {models.ConditionHeavySnow, "大雪"},
	"406": {models.ConditionHeavySnow, "風雪強い"},
	"407": {models.ConditionHeavySnow, "暴風雪"},
	"409": {models.ConditionSnow, "雪一時雨"},
	"411": {models.ConditionSnow, "雪のち晴れ"},
	"413": {models.ConditionSnow, "雪のち曇り"},
	"414": {models.ConditionSnow, "雪のち雨"},
	"420": {models.ConditionSnow, "朝の内雪のち晴れ"},
	"421": {models.ConditionSnow, "朝の内雪のち曇り"},
	"422": {models.ConditionSnow, "雪昼頃から雨"},
	"423": {models.ConditionSnow, "雪夕方から雨"},
	"425": {models.ConditionHeavySnow, "雪一時強く降る"},
	"426": {models.ConditionSnow, "雪のちみぞれ"},
	"427": {models.ConditionSnow, "雪一時みぞれ"},
	"450": {models.ConditionThunder, "雪で雷を伴う"},

	// 500 series: severe.
	"500": {models.ConditionThunder, "雷"},
	"550": {models.ConditionExtremeHeat, "猛暑"},
	"552": {models.ConditionSevereStorm, "台風"},
	"553": {models.ConditionSevereStorm, "猛烈な暴風雨"},
	"558": {models.ConditionStorm, "暴風雨"},
	"562": {models.ConditionStorm, "暴風"},
	"573": {models.ConditionHeavyRain, "激しい雨"},
	"582": {models.ConditionHeavyRain, "非常に激しい雨"},
	"583": {models.ConditionSevereStorm, "猛烈な雨"},
}

// Lookup resolves an upstream weather code to its condition and Japanese
// description. Unknown codes return (ConditionUnknown, "不明").
func Lookup(code string) (models.WeatherCondition, string) {
	if e, ok := codeTable[code]; ok {
		return e.condition, e.description
	}
	return models.ConditionUnknown, "不明"
}

// windEntry pairs a compass direction with its degree heading.
type windEntry struct {
	direction models.WindDirection
	degrees   int
}

// windTable maps the upstream 0-8 wind-direction index. 0 is calm; 1-8 step
// clockwise from north in 45 degree increments.
var windTable = [9]windEntry{
	{models.WindCalm, 0},
	{models.WindNorth, 0},
	{models.WindNortheast, 45},
	{models.WindEast, 90},
	{models.WindSoutheast, 135},
	{models.WindSouth, 180},
	{models.WindSouthwest, 225},
	{models.WindWest, 270},
	{models.WindNorthwest, 315},
}

// LookupWind resolves the 0-8 wind index to (direction, degrees). Out-of-range
// indexes return (WindUnknown, 0).
func LookupWind(index int) (models.WindDirection, int) {
	if index < 0 || index >= len(windTable) {
		return models.WindUnknown, 0
	}
	e := windTable[index]
	return e.direction, e.degrees
}
