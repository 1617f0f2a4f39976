package voice

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Player plays one utterance. Play returns once playback has finished, which
// is the completion signal the talking animation is joined on.
type Player interface {
	Play(ctx context.Context, speech *Speech, volume float64) error
}

// CommandPlayer plays audio through external command line players. Each
// utterance goes to the first installed player that can decode its format.
type CommandPlayer struct {
	players []playerCommand

	// command builds the process; replaced in tests
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

type playerCommand struct {
	name string
	path string
}

// playerCandidates are tried in order
var playerCandidates = []string{"afplay", "ffplay", "mpg123", "paplay", "aplay"}

// playerFormats lists what each player decodes. paplay and aplay read
// sound files only, never MP3.
var playerFormats = map[string][]string{
	"afplay": {"mp3", "wav"},
	"ffplay": {"mp3", "wav", "ogg"},
	"mpg123": {"mp3"},
	"paplay": {"wav", "ogg"},
	"aplay":  {"wav"},
}

// NewCommandPlayer finds the installed audio players
func NewCommandPlayer() (*CommandPlayer, error) {
	p := &CommandPlayer{command: exec.CommandContext}
	for _, name := range playerCandidates {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		p.players = append(p.players, playerCommand{name: name, path: path})
	}
	if len(p.players) == 0 {
		return nil, fmt.Errorf("no audio player found (tried %s)", strings.Join(playerCandidates, ", "))
	}
	log.Debug().Str("players", p.Name()).Msg("Found audio players")
	return p, nil
}

// Name returns the installed player command names
func (p *CommandPlayer) Name() string {
	names := make([]string, 0, len(p.players))
	for _, pc := range p.players {
		names = append(names, pc.name)
	}
	return strings.Join(names, ",")
}

func (p *CommandPlayer) playerFor(format string) (playerCommand, bool) {
	for _, pc := range p.players {
		if slices.Contains(playerFormats[pc.name], format) {
			return pc, true
		}
	}
	return playerCommand{}, false
}

// Play writes the audio to a temp file and runs the player until it exits.
// Raw PCM is given a WAV header first.
func (p *CommandPlayer) Play(ctx context.Context, speech *Speech, volume float64) error {
	if speech == nil || len(speech.Audio) == 0 {
		return nil
	}

	audio, format := speech.Audio, fileExtension(speech.Format)
	if speech.Format == "pcm" {
		audio = wavFromPCM(speech.Audio)
	}

	pc, ok := p.playerFor(format)
	if !ok {
		return fmt.Errorf("no installed audio player can play %s (have %s)", speech.Format, p.Name())
	}

	tmpFile, err := os.CreateTemp("", "judy_*."+format)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(audio); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write audio: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}

	args := playerArgs(pc.name, tmpFile.Name(), clampVolume(volume))
	cmd := p.command(ctx, pc.path, args...)

	log.Debug().
		Str("player", pc.name).
		Str("format", speech.Format).
		Dur("duration", speech.Duration).
		Float64("volume", volume).
		Msg("Playing speech")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to play audio: %w", err)
	}
	return nil
}

// wavFromPCM prepends a RIFF header for 16-bit mono PCM
func wavFromPCM(pcm []byte) []byte {
	const headerSize = 44
	out := make([]byte, headerSize+len(pcm))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], 1) // mono
	binary.LittleEndian.PutUint32(out[24:28], pcmSampleRate)
	binary.LittleEndian.PutUint32(out[28:32], pcmSampleRate*pcmBytesPerSample)
	binary.LittleEndian.PutUint16(out[32:34], pcmBytesPerSample)
	binary.LittleEndian.PutUint16(out[34:36], 8*pcmBytesPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[headerSize:], pcm)
	return out
}

// playerArgs maps a 0..1 volume onto each player's own scale
func playerArgs(name, file string, volume float64) []string {
	switch name {
	case "afplay":
		return []string{"-v", strconv.FormatFloat(volume, 'f', 2, 64), file}
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet",
			"-volume", strconv.Itoa(int(volume * 100)), file}
	case "mpg123":
		return []string{"-q", "-f", strconv.Itoa(int(volume * 32768)), file}
	case "paplay":
		return []string{"--volume", strconv.Itoa(int(volume * 65536)), file}
	default:
		return []string{file}
	}
}

func fileExtension(format string) string {
	switch format {
	case "", "mp3":
		return "mp3"
	case "wav", "wave", "pcm":
		return "wav"
	default:
		return format
	}
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// SilentPlayer does not produce sound; it only waits for the speech duration
type SilentPlayer struct{}

// Play blocks for the duration of the speech or until ctx is done
func (SilentPlayer) Play(ctx context.Context, speech *Speech, volume float64) error {
	if speech == nil || speech.Duration <= 0 {
		return nil
	}

	timer := time.NewTimer(speech.Duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewPlayer returns a command player, or a silent one when muted or when no
// player command is installed
func NewPlayer(mute bool) Player {
	if mute {
		return SilentPlayer{}
	}
	p, err := NewCommandPlayer()
	if err != nil {
		log.Warn().Err(err).Msg("Audio playback disabled")
		return SilentPlayer{}
	}
	return p
}
