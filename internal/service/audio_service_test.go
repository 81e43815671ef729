package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"coach-llm/internal/domain"
	"coach-llm/internal/speech"
)

type stubSynthesizer struct {
	audio []byte
	err   error
	text  string
}

func (s *stubSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	s.text = text
	return s.audio, s.err
}

func TestGenerateChapterAudio(t *testing.T) {
	chapters := &mockChapterRepo{chapters: []domain.Chapter{
		{ID: "ch-1", Title: "Letting Go", Content: "Delegate outcomes."},
	}}
	synth := &stubSynthesizer{audio: []byte("mp3-bytes")}
	mediaDir := t.TempDir()
	svc := NewAudioService(zap.NewNop(), synth, chapters, mediaDir, "/media/")

	url, err := svc.GenerateChapterAudio(context.Background(), "ch-1")
	if err != nil {
		t.Fatalf("GenerateChapterAudio: %v", err)
	}
	if url != "/media/audio/ch-1.mp3" {
		t.Errorf("unexpected audio url %q", url)
	}
	if synth.text != "Delegate outcomes." {
		t.Errorf("full chapter content must be synthesized, got %q", synth.text)
	}

	written, err := os.ReadFile(filepath.Join(mediaDir, "audio", "ch-1.mp3"))
	if err != nil {
		t.Fatalf("read audio file: %v", err)
	}
	if string(written) != "mp3-bytes" {
		t.Errorf("audio bytes mismatch: %q", written)
	}
	if chapters.chapters[0].AudioURL != url {
		t.Errorf("audio url not recorded on the chapter: %q", chapters.chapters[0].AudioURL)
	}
}

func TestGenerateChapterAudioValidation(t *testing.T) {
	chapters := &mockChapterRepo{chapters: []domain.Chapter{
		{ID: "empty", Title: "Empty", Content: "   "},
	}}
	svc := NewAudioService(zap.NewNop(), &stubSynthesizer{}, chapters, t.TempDir(), "/media")

	if _, err := svc.GenerateChapterAudio(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown chapter must be not found, got %v", err)
	}
	if _, err := svc.GenerateChapterAudio(context.Background(), "empty"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty content must be rejected, got %v", err)
	}
}

func TestGenerateChapterAudioSynthFailure(t *testing.T) {
	chapters := &mockChapterRepo{chapters: []domain.Chapter{
		{ID: "ch-1", Title: "A", Content: "body"},
	}}
	synth := &stubSynthesizer{err: errors.New("tts down")}
	svc := NewAudioService(zap.NewNop(), synth, chapters, t.TempDir(), "/media")

	if _, err := svc.GenerateChapterAudio(context.Background(), "ch-1"); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("synth failure must surface as upstream error, got %v", err)
	}
}

func TestDisabledSynthesizerRefuses(t *testing.T) {
	chapters := &mockChapterRepo{chapters: []domain.Chapter{
		{ID: "ch-1", Title: "A", Content: "body"},
	}}
	svc := NewAudioService(zap.NewNop(), speech.NewDisabledSynthesizer("no api key"), chapters, t.TempDir(), "/media")

	if _, err := svc.GenerateChapterAudio(context.Background(), "ch-1"); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("disabled synthesizer must surface as upstream error, got %v", err)
	}
}
