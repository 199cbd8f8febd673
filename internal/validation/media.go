package validation

import (
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/lineaapp/linea/internal/model"
)

var (
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrMediaTooLarge    = errors.New("media file too large")
	ErrEmptyMedia       = errors.New("media file is empty")
)

type mediaRule struct {
	kind    model.MediaType
	mimes   []string
	maxSize int64
}

var mediaRules = []mediaRule{
	{model.MediaTypePhoto, []string{"image/jpeg", "image/png", "image/webp", "image/gif", "image/heic", "image/heif"}, 15 << 20},
	{model.MediaTypeVideo, []string{"video/mp4", "video/quicktime", "video/webm"}, 200 << 20},
	{model.MediaTypeAudio, []string{"audio/mpeg", "audio/mp4", "audio/x-m4a", "audio/wav", "audio/ogg", "audio/aac"}, 50 << 20},
}

// DetectedMedia is what the file content says it is, regardless of its name.
type DetectedMedia struct {
	Type      model.MediaType
	MimeType  string
	Extension string
}

// DetectMedia sniffs the content and checks it against the allowed
// photo, video and audio types and their size caps.
func DetectMedia(data []byte) (*DetectedMedia, error) {
	if len(data) == 0 {
		return nil, ErrEmptyMedia
	}

	mt := mimetype.Detect(data)
	for _, rule := range mediaRules {
		for _, m := range rule.mimes {
			if !mt.Is(m) {
				continue
			}
			if int64(len(data)) > rule.maxSize {
				return nil, fmt.Errorf("%w: %s files are limited to %d MB", ErrMediaTooLarge, rule.kind, rule.maxSize>>20)
			}
			return &DetectedMedia{Type: rule.kind, MimeType: m, Extension: mt.Extension()}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, mt.String())
}

// MaxMediaSize is the largest upload any media kind accepts.
func MaxMediaSize() int64 {
	var largest int64
	for _, rule := range mediaRules {
		if rule.maxSize > largest {
			largest = rule.maxSize
		}
	}
	return largest
}
