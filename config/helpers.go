package config

import (
	"time"

	"github.com/spf13/viper"
)

// orDefault reads key with get, falling back to def when the key is unset.
func orDefault[T any](v *viper.Viper, key string, def T, get func(string) T) T {
	if !v.IsSet(key) {
		return def
	}
	return get(key)
}

func getDurationOrDefault(v *viper.Viper, key string, def time.Duration) time.Duration {
	return orDefault(v, key, def, v.GetDuration)
}

func getUint32OrDefault(v *viper.Viper, key string, def uint32) uint32 {
	return orDefault(v, key, def, v.GetUint32)
}

func getIntOrDefault(v *viper.Viper, key string, def int) int {
	return orDefault(v, key, def, v.GetInt)
}

func getStringOrDefault(v *viper.Viper, key string, def string) string {
	return orDefault(v, key, def, v.GetString)
}

func getBoolOrDefault(v *viper.Viper, key string, def bool) bool {
	return orDefault(v, key, def, v.GetBool)
}

func getFloat64OrDefault(v *viper.Viper, key string, def float64) float64 {
	return orDefault(v, key, def, v.GetFloat64)
}
