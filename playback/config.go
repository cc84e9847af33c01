package playback

import (
	"fmt"
	"time"
)

// Config holds the playback core's tunable settings.
type Config struct {
	// Library root directory holding tracks/, programs/, paragraphs/
	// and media/.
	LibraryDir string `yaml:"library_dir" mapstructure:"library_dir" env:"ALPHAPRESENTER_LIBRARY_DIR"`

	// Volume defaults applied when a slide or cue doesn't set one.
	ProgramVolume   float64 `yaml:"program_volume" mapstructure:"program_volume" env:"ALPHAPRESENTER_PROGRAM_VOLUME"`
	VoiceOverVolume float64 `yaml:"voice_over_volume" mapstructure:"voice_over_volume" env:"ALPHAPRESENTER_VOICE_OVER_VOLUME"`

	// VoiceOverCue is the track the voice-over key plays. Empty
	// disables the binding.
	VoiceOverCue string `yaml:"voice_over_cue" mapstructure:"voice_over_cue" env:"ALPHAPRESENTER_VOICE_OVER_CUE"`

	// Engine selects the playback engine: "beep" or "mock".
	Engine string `yaml:"engine" mapstructure:"engine" env:"ALPHAPRESENTER_ENGINE"`

	// SampleRate is the output sample rate everything is resampled to.
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate" env:"ALPHAPRESENTER_SAMPLE_RATE"`

	// BufferLength is the speaker buffer size.
	BufferLength time.Duration `yaml:"buffer_length" mapstructure:"buffer_length" env:"ALPHAPRESENTER_BUFFER_LENGTH"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug" mapstructure:"debug" env:"ALPHAPRESENTER_DEBUG"`
}

// DefaultConfig returns the configuration used when nothing overrides
// it.
func DefaultConfig() Config {
	return Config{
		LibraryDir:      "",
		ProgramVolume:   DefaultProgramVolume,
		VoiceOverVolume: DefaultVoiceOverVolume,
		Engine:          "beep",
		SampleRate:      44100,
		BufferLength:    100 * time.Millisecond,
	}
}

// Validate checks the configuration for values the players cannot work
// with.
func (c Config) Validate() error {
	if c.ProgramVolume < 0 || c.ProgramVolume > 1 {
		return fmt.Errorf("%w: program_volume %v not in [0, 1]", ErrInvalidConfig, c.ProgramVolume)
	}
	if c.VoiceOverVolume < 0 || c.VoiceOverVolume > 1 {
		return fmt.Errorf("%w: voice_over_volume %v not in [0, 1]", ErrInvalidConfig, c.VoiceOverVolume)
	}
	switch c.Engine {
	case "beep", "mock":
	default:
		return fmt.Errorf("%w: unknown engine %q", ErrInvalidConfig, c.Engine)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate must be positive", ErrInvalidConfig)
	}
	if c.BufferLength <= 0 {
		return fmt.Errorf("%w: buffer_length must be positive", ErrInvalidConfig)
	}
	return nil
}
