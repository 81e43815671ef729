package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"coach-llm/internal/repository"
	"coach-llm/internal/speech"
)

// AudioService genera el audio de un capítulo via text-to-speech, lo escribe
// en el directorio público de medios y registra la URL en la fila del capítulo.
type AudioService struct {
	logger       *zap.Logger
	synthesizer  speech.Synthesizer
	chapters     repository.ChapterRepository
	mediaDir     string
	mediaBaseURL string
}

func NewAudioService(
	logger *zap.Logger,
	synthesizer speech.Synthesizer,
	chapters repository.ChapterRepository,
	mediaDir, mediaBaseURL string,
) *AudioService {
	return &AudioService{
		logger:       logger,
		synthesizer:  synthesizer,
		chapters:     chapters,
		mediaDir:     mediaDir,
		mediaBaseURL: strings.TrimRight(mediaBaseURL, "/"),
	}
}

// GenerateChapterAudio sintetiza el contenido completo del capítulo y devuelve
// la URL pública resultante.
func (s *AudioService) GenerateChapterAudio(ctx context.Context, chapterID string) (string, error) {
	chapterID = strings.TrimSpace(chapterID)
	if chapterID == "" {
		return "", ErrInvalidRequest
	}

	chapter, err := getChapter(ctx, s.chapters, chapterID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(chapter.Content) == "" {
		return "", ErrInvalidRequest
	}

	audio, err := s.synthesizer.Synthesize(ctx, chapter.Content)
	if err != nil {
		s.logger.Error("speech synthesis failed", zap.Error(err), zap.String("chapter_id", chapterID))
		return "", ErrUpstreamUnavailable
	}

	audioDir := filepath.Join(s.mediaDir, "audio")
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create media dir: %v", ErrPersistence, err)
	}
	fileName := chapter.ID + ".mp3"
	if err := os.WriteFile(filepath.Join(audioDir, fileName), audio, 0o644); err != nil {
		return "", fmt.Errorf("%w: write audio file: %v", ErrPersistence, err)
	}

	audioURL := s.mediaBaseURL + "/audio/" + fileName
	if err := s.chapters.SetAudioURL(ctx, chapter.ID, audioURL); err != nil {
		return "", fmt.Errorf("%w: set audio url: %v", ErrPersistence, err)
	}
	return audioURL, nil
}
