// Package settings loads host settings from ~/.judy/settings.json and the
// environment, and persists the small amount of user state judy remembers.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/daikw/judy/internal/avatar"
	"github.com/daikw/judy/internal/chat"
	"github.com/daikw/judy/internal/motivation"
	"github.com/daikw/judy/internal/voice"
	"github.com/daikw/judy/internal/voice/provider"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	DirName          = ".judy"
	SettingsFileName = "settings.json"
	StateFileName    = "state.json"
	EnvPrefix        = "JUDY"

	DefaultListen = "127.0.0.1:7878"
)

// Settings holds everything configurable on the host side
type Settings struct {
	GeminiAPIKey   string `mapstructure:"gemini_api_key"`
	GeminiModel    string `mapstructure:"gemini_model"`
	CharactersDir  string `mapstructure:"characters_dir"`
	TranscriptPath string `mapstructure:"transcript_path"`
	Listen         string `mapstructure:"listen"`
	Mute           bool   `mapstructure:"mute"`

	Voice      VoiceSettings      `mapstructure:"voice"`
	Avatar     AvatarSettings     `mapstructure:"avatar"`
	Motivation MotivationSettings `mapstructure:"motivation"`

	// path the settings were read from, empty when no file exists
	source string
}

// VoiceSettings configures the TTS provider and how replies are read
type VoiceSettings struct {
	Provider        string  `mapstructure:"provider"`
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	Format          string  `mapstructure:"format"`
	Speed           float64 `mapstructure:"speed"`
	Stability       float64 `mapstructure:"stability"`
	SimilarityBoost float64 `mapstructure:"similarity_boost"`
	Style           float64 `mapstructure:"style"`
	SpeakerBoost    bool    `mapstructure:"speaker_boost"`
	Voice           string  `mapstructure:"voice"`
	Language        string  `mapstructure:"language"`
	Engine          string  `mapstructure:"engine"`
	Region          string  `mapstructure:"region"`
	ProjectID       string  `mapstructure:"project_id"`

	ReadingMode string `mapstructure:"reading_mode"`
	MaxChars    int    `mapstructure:"max_chars"`
	MaxLines    int    `mapstructure:"max_lines"`
}

// AvatarSettings configures animation timing
type AvatarSettings struct {
	Tick        time.Duration `mapstructure:"tick"`
	PetDuration time.Duration `mapstructure:"pet_duration"`
}

// MotivationSettings configures the nudge tracker
type MotivationSettings struct {
	Enabled           bool          `mapstructure:"enabled"`
	Interval          time.Duration `mapstructure:"interval"`
	CharThreshold     int           `mapstructure:"char_threshold"`
	InactiveThreshold time.Duration `mapstructure:"inactive_threshold"`
}

// Dir returns ~/.judy
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// DefaultPath returns ~/.judy/settings.json
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFileName), nil
}

func setDefaults(v *viper.Viper, dir string) {
	reading := voice.DefaultReadingOptions()
	mot := motivation.DefaultConfig()

	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", chat.DefaultGeminiModel)
	v.SetDefault("characters_dir", filepath.Join(dir, "characters"))
	v.SetDefault("transcript_path", filepath.Join(dir, "transcript.db"))
	v.SetDefault("listen", DefaultListen)
	v.SetDefault("mute", false)

	v.SetDefault("voice.provider", "elevenlabs")
	v.SetDefault("voice.api_key", "")
	v.SetDefault("voice.model", provider.ElevenLabsDefaultModel)
	v.SetDefault("voice.format", "mp3")
	v.SetDefault("voice.speed", voice.DefaultSpeed)
	v.SetDefault("voice.stability", 0.5)
	v.SetDefault("voice.similarity_boost", 0.75)
	v.SetDefault("voice.style", 0.0)
	v.SetDefault("voice.speaker_boost", true)
	v.SetDefault("voice.voice", "")
	v.SetDefault("voice.language", "")
	v.SetDefault("voice.engine", "")
	v.SetDefault("voice.region", "")
	v.SetDefault("voice.project_id", "")
	v.SetDefault("voice.reading_mode", reading.Mode)
	v.SetDefault("voice.max_chars", reading.MaxChars)
	v.SetDefault("voice.max_lines", reading.MaxLines)

	v.SetDefault("avatar.tick", avatar.DefaultTick)
	v.SetDefault("avatar.pet_duration", avatar.DefaultPetDuration)

	v.SetDefault("motivation.enabled", true)
	v.SetDefault("motivation.interval", mot.Interval)
	v.SetDefault("motivation.char_threshold", mot.CharThreshold)
	v.SetDefault("motivation.inactive_threshold", mot.InactiveThreshold)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// names used before the JUDY_ prefix existed
	_ = v.BindEnv("gemini_api_key", "JUDY_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("voice.region", "JUDY_VOICE_REGION", "AWS_REGION")
	_ = v.BindEnv("voice.project_id", "JUDY_VOICE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
}

// Load reads settings from path (DefaultPath when empty). A missing file is
// not an error; defaults and the environment still apply.
func Load(path string) (*Settings, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = filepath.Join(dir, SettingsFileName)
	}

	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v, dir)
	bindEnv(v)

	var source string
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		checkFilePermissions(path)
		if err := v.ReadConfig(strings.NewReader(expandEnvVars(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
		}
		source = path
		log.Debug().Str("path", path).Msg("Loaded settings")
	case os.IsNotExist(err):
		log.Debug().Str("path", path).Msg("No settings file found, using defaults")
	default:
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.source = source
	s.normalize()

	return &s, nil
}

func (s *Settings) normalize() {
	s.CharactersDir = expandHome(s.CharactersDir)
	s.TranscriptPath = expandHome(s.TranscriptPath)

	if clamped := avatar.ClampTick(s.Avatar.Tick); clamped != s.Avatar.Tick {
		log.Warn().Dur("tick", s.Avatar.Tick).Dur("clamped", clamped).Msg("Avatar tick out of range")
		s.Avatar.Tick = clamped
	}
	if s.Avatar.PetDuration <= 0 {
		s.Avatar.PetDuration = avatar.DefaultPetDuration
	}
}

// Source returns the file the settings were read from
func (s *Settings) Source() string {
	return s.source
}

// ProviderConfig selects the TTS provider
func (s *Settings) ProviderConfig() provider.Config {
	return provider.Config{
		Provider:  s.Voice.Provider,
		APIKey:    s.Voice.APIKey,
		Region:    s.Voice.Region,
		ProjectID: s.Voice.ProjectID,
		Voice:     s.Voice.Voice,
		Language:  s.Voice.Language,
		Engine:    s.Voice.Engine,
	}
}

// SynthesizeOptions returns the defaults every synthesis starts from
func (s *Settings) SynthesizeOptions() provider.SynthesizeOptions {
	return provider.SynthesizeOptions{
		Voice:           s.Voice.Voice,
		Speed:           s.Voice.Speed,
		Format:          s.Voice.Format,
		Language:        s.Voice.Language,
		Model:           s.Voice.Model,
		Stability:       s.Voice.Stability,
		SimilarityBoost: s.Voice.SimilarityBoost,
		Style:           s.Voice.Style,
		UseSpeakerBoost: s.Voice.SpeakerBoost,
		Engine:          s.Voice.Engine,
	}
}

// ReadingOptions returns how much of each reply is spoken
func (s *Settings) ReadingOptions() voice.ReadingOptions {
	return voice.ReadingOptions{
		Mode:     s.Voice.ReadingMode,
		MaxChars: s.Voice.MaxChars,
		MaxLines: s.Voice.MaxLines,
	}
}

// MotivationConfig returns the tracker configuration
func (s *Settings) MotivationConfig() motivation.Config {
	return motivation.Config{
		Interval:          s.Motivation.Interval,
		CharThreshold:     s.Motivation.CharThreshold,
		InactiveThreshold: s.Motivation.InactiveThreshold,
	}
}

// Validate returns human-readable problems; an empty slice means usable
func (s *Settings) Validate() []string {
	var errors []string

	if s.GeminiAPIKey == "" {
		errors = append(errors, "gemini_api_key is required (use ${GEMINI_API_KEY} or set GEMINI_API_KEY)")
	}

	switch s.Voice.Provider {
	case "elevenlabs", "openai", "polly", "gcp":
	default:
		errors = append(errors, fmt.Sprintf("voice.provider: unknown provider %q", s.Voice.Provider))
	}
	if s.Voice.Speed != 0 && (s.Voice.Speed < 0.25 || s.Voice.Speed > 4.0) {
		errors = append(errors, "voice.speed must be between 0.25 and 4.0")
	}
	if s.Voice.Stability < 0 || s.Voice.Stability > 1 {
		errors = append(errors, "voice.stability must be between 0.0 and 1.0")
	}
	if s.Voice.SimilarityBoost < 0 || s.Voice.SimilarityBoost > 1 {
		errors = append(errors, "voice.similarity_boost must be between 0.0 and 1.0")
	}
	switch s.Voice.ReadingMode {
	case voice.ModeFullText, voice.ModeFirstLine, voice.ModeLineLimit, voice.ModeAfterFirst, voice.ModeCharLimit:
	default:
		errors = append(errors, fmt.Sprintf("voice.reading_mode: unknown mode %q", s.Voice.ReadingMode))
	}
	if s.Listen == "" {
		errors = append(errors, "listen address must not be empty")
	}

	return errors
}

// MaskSecrets returns a copy safe to display.
// Only indicates that a key is set, never any of its characters.
func (s *Settings) MaskSecrets() *Settings {
	masked := *s
	masked.GeminiAPIKey = maskSecret(s.GeminiAPIKey)
	masked.Voice.APIKey = maskSecret(s.Voice.APIKey)
	return &masked
}

func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	return fmt.Sprintf("[set, %d chars]", len(v))
}

func (s *Settings) toViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")

	v.Set("gemini_api_key", s.GeminiAPIKey)
	v.Set("gemini_model", s.GeminiModel)
	v.Set("characters_dir", s.CharactersDir)
	v.Set("transcript_path", s.TranscriptPath)
	v.Set("listen", s.Listen)
	v.Set("mute", s.Mute)

	v.Set("voice.provider", s.Voice.Provider)
	v.Set("voice.api_key", s.Voice.APIKey)
	v.Set("voice.model", s.Voice.Model)
	v.Set("voice.format", s.Voice.Format)
	v.Set("voice.speed", s.Voice.Speed)
	v.Set("voice.stability", s.Voice.Stability)
	v.Set("voice.similarity_boost", s.Voice.SimilarityBoost)
	v.Set("voice.style", s.Voice.Style)
	v.Set("voice.speaker_boost", s.Voice.SpeakerBoost)
	v.Set("voice.voice", s.Voice.Voice)
	v.Set("voice.language", s.Voice.Language)
	v.Set("voice.engine", s.Voice.Engine)
	v.Set("voice.region", s.Voice.Region)
	v.Set("voice.project_id", s.Voice.ProjectID)
	v.Set("voice.reading_mode", s.Voice.ReadingMode)
	v.Set("voice.max_chars", s.Voice.MaxChars)
	v.Set("voice.max_lines", s.Voice.MaxLines)

	v.Set("avatar.tick", s.Avatar.Tick.String())
	v.Set("avatar.pet_duration", s.Avatar.PetDuration.String())

	v.Set("motivation.enabled", s.Motivation.Enabled)
	v.Set("motivation.interval", s.Motivation.Interval.String())
	v.Set("motivation.char_threshold", s.Motivation.CharThreshold)
	v.Set("motivation.inactive_threshold", s.Motivation.InactiveThreshold.String())

	return v
}

// JSON renders the settings as an indented document
func (s *Settings) JSON() (string, error) {
	data, err := json.MarshalIndent(s.toViper().AllSettings(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal settings: %w", err)
	}
	return string(data), nil
}

// Write saves the settings to path with owner-only permissions
func (s *Settings) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := s.toViper().WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to restrict settings permissions: %w", err)
	}
	return nil
}

// GenerateExample returns a settings document that reads secrets from the
// environment
func GenerateExample() string {
	v := viper.New()
	setDefaults(v, filepath.Join("~", DirName))

	var example Settings
	_ = v.Unmarshal(&example)
	example.GeminiAPIKey = "${GEMINI_API_KEY}"
	example.Voice.APIKey = "${ELEVENLABS_API_KEY}"

	out, _ := example.JSON()
	return out
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := match[2 : len(match)-1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Don't log variable names for security reasons
		log.Debug().Msg("Referenced environment variable not set in settings")
		return ""
	})
}

func checkFilePermissions(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		log.Warn().
			Str("permissions", fmt.Sprintf("%04o", mode)).
			Msg("Settings file may contain secrets but has permissive permissions. Consider: chmod 600")
	}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
