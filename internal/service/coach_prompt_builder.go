package service

import (
	"fmt"
	"math"
	"strings"

	"coach-llm/internal/domain"
)

const defaultCoachPersona = `You are an experienced management coach for first-time team leads.
You ground every answer in the training library below and in the learner's current progress.
Be concrete and practical, prefer short actionable advice, and point the learner to the
relevant chapter (by its path) whenever one applies. If the library does not cover a topic,
say so instead of inventing content.`

// Longitud máxima de contenido por capítulo dentro del prompt.
const chapterExcerptLimit = 800

// CoachPromptBuilder arma el system prompt del coach a partir de la biblioteca
// completa y el avance del usuario. Se reconstruye en cada turno con lecturas
// frescas para que el progreso recién marcado se refleje de inmediato.
type CoachPromptBuilder struct {
	persona string
}

func NewCoachPromptBuilder(persona string) CoachPromptBuilder {
	if strings.TrimSpace(persona) == "" {
		persona = defaultCoachPersona
	}
	return CoachPromptBuilder{persona: persona}
}

// Build concatena persona, resumen de avance, dump truncado de capítulos e
// índice navegable, en ese orden.
func (b CoachPromptBuilder) Build(chapters []domain.Chapter, categories []domain.Category, progress []domain.UserProgress) string {
	completed := make(map[string]bool, len(progress))
	for _, p := range progress {
		if p.Completed {
			completed[p.ChapterID] = true
		}
	}

	categoryTitles := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryTitles[c.ID] = c.Title
	}

	var completedTitles, pendingTitles []string
	for _, ch := range chapters {
		if completed[ch.ID] {
			completedTitles = append(completedTitles, ch.Title)
		} else {
			pendingTitles = append(pendingTitles, ch.Title)
		}
	}

	var sb strings.Builder
	sb.WriteString(b.persona)
	sb.WriteString("\n\n")

	// Resumen de avance. El guard de total==0 evita dividir por cero.
	rate := 0
	if len(chapters) > 0 {
		rate = int(math.Round(100 * float64(len(completedTitles)) / float64(len(chapters))))
	}
	sb.WriteString("=== LEARNER PROGRESS ===\n")
	sb.WriteString(fmt.Sprintf("Completion: %d%% (%d of %d chapters)\n", rate, len(completedTitles), len(chapters)))
	if len(completedTitles) > 0 {
		sb.WriteString("Completed chapters: " + strings.Join(completedTitles, ", ") + "\n")
	} else {
		sb.WriteString("Completed chapters: None yet\n")
	}
	if len(pendingTitles) > 0 {
		recommended := pendingTitles
		if len(recommended) > 3 {
			recommended = recommended[:3]
		}
		sb.WriteString("Recommended next: " + strings.Join(recommended, ", ") + "\n")
	} else {
		sb.WriteString("Recommended next: All chapters completed!\n")
	}
	sb.WriteString("\n")

	sb.WriteString("=== TRAINING LIBRARY ===\n")
	for _, ch := range chapters {
		status := "NOT_STARTED"
		if completed[ch.ID] {
			status = "COMPLETED"
		}
		sb.WriteString(fmt.Sprintf("%s (%s) - %s:\n", ch.Title, categoryTitles[ch.CategoryID], status))
		sb.WriteString(truncateContent(ch.Content, chapterExcerptLimit))
		sb.WriteString("\n\n")
	}

	sb.WriteString("=== CHAPTER INDEX ===\n")
	for _, ch := range chapters {
		sb.WriteString(fmt.Sprintf("%s -> /chapters/%s\n", ch.Title, ch.Slug))
	}

	return sb.String()
}

// truncateContent corta a limit runas y agrega el marcador. Contenido vacío
// devuelve solo el marcador, sin paniquear.
func truncateContent(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content + "..."
	}
	return string(runes[:limit]) + "..."
}
