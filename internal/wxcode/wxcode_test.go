package wxcode

import (
	"testing"

	"github.com/soratext/soratext/internal/models"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		code     string
		wantCond models.WeatherCondition
		wantDesc string
	}{
		{"100", models.ConditionClear, "晴れ"},
		{"200", models.ConditionCloudy, "曇り"},
		{"209", models.ConditionFog, "霧"},
		{"300", models.ConditionRain, "雨"},
		{"306", models.ConditionHeavyRain, "大雨"},
		{"400", models.ConditionSnow, "雪"},
		{"405", models.ConditionHeavySnow, "大雪"},
		{"500", models.ConditionThunder, "雷"},
		{"550", models.ConditionExtremeHeat, "猛暑"},
		{"552", models.ConditionSevereStorm, "台風"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			cond, desc := Lookup(tt.code)
			if cond != tt.wantCond || desc != tt.wantDesc {
				t.Errorf("Lookup(%s) = (%s, %s), want (%s, %s)",
					tt.code, cond, desc, tt.wantCond, tt.wantDesc)
			}
		})
	}
}

func TestLookupUnknownCode(t *testing.T) {
	cond, desc := Lookup("999")
	if cond != models.ConditionUnknown || desc != "不明" {
		t.Errorf("Lookup(999) = (%s, %s), want (unknown, 不明)", cond, desc)
	}
}

func TestLookupWind(t *testing.T) {
	tests := []struct {
		index   int
		wantDir models.WindDirection
		wantDeg int
	}{
		{0, models.WindCalm, 0},
		{1, models.WindNorth, 0},
		{3, models.WindEast, 90},
		{5, models.WindSouth, 180},
		{8, models.WindNorthwest, 315},
		{9, models.WindUnknown, 0},
		{-1, models.WindUnknown, 0},
	}
	for _, tt := range tests {
		dir, deg := LookupWind(tt.index)
		if dir != tt.wantDir || deg != tt.wantDeg {
			t.Errorf("LookupWind(%d) = (%s, %d), want (%s, %d)",
				tt.index, dir, deg, tt.wantDir, tt.wantDeg)
		}
	}
}
