package character

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/daikw/judy/internal/avatar"
	"github.com/rs/zerolog/log"
)

// 1x1 transparent PNG served when neither the frame nor default.png exists
const builtinPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// Image is a frame ready to hand to the display
type Image struct {
	MIMEType string
	Data     []byte
	// Fallback is set when the requested frame was missing
	Fallback bool
}

// DataURL encodes the image as a data: URL
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// BuiltinImage returns the built-in placeholder frame
func BuiltinImage() Image {
	data, _ := base64.StdEncoding.DecodeString(builtinPNG)
	return Image{MIMEType: "image/png", Data: data, Fallback: true}
}

// FrameImage reads a frame of a character. frameName is either a file name
// from the frame map or a state name. Missing frames never fail: the catalog's
// default.png is used, then the built-in placeholder.
func (s *Store) FrameImage(id, frameName string) Image {
	if filepath.Ext(frameName) == "" {
		if state, err := avatar.ParseState(frameName); err == nil {
			frameName = s.FrameMap(id)[state]
		}
	}

	if err := ValidateName(id); err != nil {
		log.Warn().Err(err).Msg("Rejected character id for frame image")
		return s.DefaultImage()
	}
	if err := ValidateName(frameName); err != nil {
		log.Warn().Err(err).Str("character", id).Msg("Rejected frame name")
		return s.DefaultImage()
	}

	path := filepath.Join(s.dir, id, FramesDirName, frameName)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Str("character", id).Str("frame", frameName).Msg("Frame image missing, using default image")
		return s.DefaultImage()
	}

	return Image{MIMEType: mimeType(frameName), Data: data}
}

// DefaultImage returns <dir>/default.png or the built-in placeholder
func (s *Store) DefaultImage() Image {
	data, err := os.ReadFile(filepath.Join(s.dir, DefaultImageName))
	if err != nil {
		log.Debug().Str("dir", s.dir).Msg("No default image in catalog, using built-in placeholder")
		return BuiltinImage()
	}
	return Image{MIMEType: "image/png", Data: data, Fallback: true}
}

func mimeType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gif":
		return "image/gif"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	default:
		return "image/png"
	}
}
