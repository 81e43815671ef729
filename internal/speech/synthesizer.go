package speech

import (
	"context"
	"errors"
)

// Synthesizer define la interfaz para convertir texto de capítulos en audio.
type Synthesizer interface {
	// Synthesize devuelve los bytes del audio (MP3) para el texto dado.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type disabledSynthesizer struct {
	reason string
}

// NewDisabledSynthesizer se usa cuando no hay API key configurada.
func NewDisabledSynthesizer(reason string) Synthesizer {
	return &disabledSynthesizer{reason: reason}
}

func (s *disabledSynthesizer) Synthesize(_ context.Context, _ string) ([]byte, error) {
	if s.reason == "" {
		return nil, errors.New("speech synthesizer disabled")
	}
	return nil, errors.New(s.reason)
}
