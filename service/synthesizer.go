package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"officialqa-backend/generation"
	"officialqa-backend/models"
)

const (
	DefaultHighThreshold   = 0.7
	DefaultMediumThreshold = 0.4
	DefaultMaxContextChars = 4000
	DefaultGenerateTimeout = 15 * time.Second
)

const (
	NoEvidenceAnswer       = "Insufficient information: no relevant information found in the indexed records."
	GenerationFailedAnswer = "Answer generation failed. The retrieved sources are listed so the records can be reviewed directly."
)

const promptTemplate = `You are an assistant that answers questions about public officials using their declared public records.

Context from the officials index:
%s

Question: %s

Instructions:
1. Answer using ONLY this context; say "insufficient information" if it doesn't answer the question.
2. Name the official each fact belongs to.
3. Quote financial figures, criminal case counts and dynasty details exactly as they appear in the context.
4. Format financial amounts in Indian currency (₹) when applicable.

Answer:`

// Synthesizer turns retrieved chunks into a grounded answer.
type Synthesizer struct {
	generator       generation.Generator
	highThreshold   float64
	mediumThreshold float64
	maxContextChars int
	timeout         time.Duration
}

// SynthesizerOption configures a Synthesizer
type SynthesizerOption func(*Synthesizer)

// WithThresholds sets the minimum top similarity for high and medium confidence
func WithThresholds(high, medium float64) SynthesizerOption {
	return func(s *Synthesizer) {
		if high > 0 && medium > 0 && medium <= high {
			s.highThreshold = high
			s.mediumThreshold = medium
		}
	}
}

// WithMaxContextChars bounds the context handed to the generator
func WithMaxContextChars(n int) SynthesizerOption {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxContextChars = n
		}
	}
}

// WithGenerateTimeout bounds a single generation call
func WithGenerateTimeout(d time.Duration) SynthesizerOption {
	return func(s *Synthesizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewSynthesizer creates a new synthesizer
func NewSynthesizer(generator generation.Generator, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		generator:       generator,
		highThreshold:   DefaultHighThreshold,
		mediumThreshold: DefaultMediumThreshold,
		maxContextChars: DefaultMaxContextChars,
		timeout:         DefaultGenerateTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize never fails: no evidence and generator errors produce labelled
// low-confidence answers instead.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, result models.QueryResult) models.AnswerResult {
	if len(result) == 0 {
		return models.AnswerResult{
			Answer:     NoEvidenceAnswer,
			Sources:    []models.Source{},
			Confidence: models.ConfidenceLow,
			Outcome:    models.OutcomeNoEvidence,
		}
	}

	contextText, used := s.buildContext(result)
	sources := make([]models.Source, len(used))
	for i, sc := range used {
		sources[i] = models.Source{
			EntityName:      sc.Chunk.EntityName,
			ChunkType:       sc.Chunk.Type,
			SimilarityScore: sc.Similarity,
		}
	}

	answer, err := s.generate(ctx, BuildPrompt(question, contextText))
	if err != nil {
		log.Printf("Warning: answer generation failed: %v", err)
		return models.AnswerResult{
			Answer:     GenerationFailedAnswer,
			Sources:    sources,
			Confidence: models.ConfidenceLow,
			Outcome:    models.OutcomeGenerationFailed,
		}
	}

	return models.AnswerResult{
		Answer:     answer,
		Sources:    sources,
		Confidence: s.Confidence(result[0].Similarity),
		Outcome:    models.OutcomeAnswered,
	}
}

func (s *Synthesizer) generate(ctx context.Context, prompt string) (string, error) {
	if s.generator == nil {
		return "", fmt.Errorf("generator not configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	answer, err := s.generator.Generate(callCtx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.generator.Name(), err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%s: %w", s.generator.Name(), generation.ErrEmptyResponse)
	}
	return answer, nil
}

// Confidence maps the best similarity to a tier.
func (s *Synthesizer) Confidence(topSimilarity float64) models.ConfidenceTier {
	switch {
	case topSimilarity >= s.highThreshold:
		return models.ConfidenceHigh
	case topSimilarity >= s.mediumThreshold:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// buildContext keeps the highest-similarity chunks that fit the budget.
// result must already be ordered by non-increasing similarity.
func (s *Synthesizer) buildContext(result models.QueryResult) (string, []models.ScoredChunk) {
	var (
		b    strings.Builder
		used []models.ScoredChunk
		size int
	)
	for i, sc := range result {
		line := contextLine(i+1, sc, sc.Chunk.Content)
		lineSize := utf8.RuneCountInString(line)
		if i > 0 {
			lineSize += 2
		}

		if size+lineSize > s.maxContextChars {
			if i > 0 {
				break
			}
			// The best chunk alone is over budget; keep as much of it as fits.
			budget := s.maxContextChars - utf8.RuneCountInString(contextLine(1, sc, ""))
			line = contextLine(1, sc, truncateRunes(sc.Chunk.Content, max(budget, 1)))
			lineSize = utf8.RuneCountInString(line)
		}

		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(line)
		size += lineSize
		used = append(used, sc)
	}
	return b.String(), used
}

func contextLine(n int, sc models.ScoredChunk, content string) string {
	return fmt.Sprintf("[%d] %s (%s, similarity %.2f): %s", n, sc.Chunk.EntityName, sc.Chunk.Type, sc.Similarity, content)
}

// BuildPrompt renders the grounded generation prompt.
func BuildPrompt(question, contextText string) string {
	return fmt.Sprintf(promptTemplate, contextText, strings.TrimSpace(question))
}
