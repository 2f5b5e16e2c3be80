package config

import (
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	// DefaultDrone is used when a request names no model or an unknown one.
	DefaultDrone = "m2phq"
	// CustomDrone selects the caller's own diagonal FOV.
	CustomDrone = "custom"
)

// diagonal FOV in degrees per drone model
var droneFOV = map[string]float64{
	"m2phq":  55.0,
	"m2pfov": 75.0,
	"m2z":    83.0,
	"mp":     78.8,
	"ma":     85.0,
	"spark":  81.9,
	"p4p":    84.0,
	"p4a":    84.0,
	"p42":    84.0,
}

func setDroneDefaults() {
	for model, fov := range droneFOV {
		viper.SetDefault("drones."+model, fov)
	}
}

// DroneFOV resolves a drone model to its diagonal FOV. The custom model uses
// customFOV, which may be a number or a numeric string. Anything that cannot
// be resolved falls back to the default drone.
func DroneFOV(model string, customFOV any) float64 {
	fallback := viper.GetFloat64("drones." + DefaultDrone)
	if fallback == 0 {
		fallback = droneFOV[DefaultDrone]
	}

	model = strings.ToLower(strings.TrimSpace(model))
	if model == CustomDrone {
		fov, err := cast.ToFloat64E(customFOV)
		if err != nil || fov <= 0 || fov >= 180 {
			return fallback
		}
		return fov
	}
	if model == "" {
		return fallback
	}
	if fov := viper.GetFloat64("drones." + model); fov > 0 {
		return fov
	}
	return fallback
}
