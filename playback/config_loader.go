package playback

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads the playback configuration from Viper,
// layering file values over the defaults and environment variables over
// both.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("playback.library_dir") {
		cfg.LibraryDir = viper.GetString("playback.library_dir")
	}
	if viper.IsSet("playback.program_volume") {
		cfg.ProgramVolume = viper.GetFloat64("playback.program_volume")
	}
	if viper.IsSet("playback.voice_over_volume") {
		cfg.VoiceOverVolume = viper.GetFloat64("playback.voice_over_volume")
	}
	if viper.IsSet("playback.voice_over_cue") {
		cfg.VoiceOverCue = viper.GetString("playback.voice_over_cue")
	}
	if viper.IsSet("playback.engine") {
		cfg.Engine = viper.GetString("playback.engine")
	}
	if viper.IsSet("playback.sample_rate") {
		cfg.SampleRate = viper.GetInt("playback.sample_rate")
	}
	if viper.IsSet("playback.buffer_length") {
		if d, err := time.ParseDuration(viper.GetString("playback.buffer_length")); err == nil {
			cfg.BufferLength = d
		}
	}
	if viper.IsSet("playback.debug") {
		cfg.Debug = viper.GetBool("playback.debug")
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("reading playback environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
