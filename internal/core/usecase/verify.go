package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/verirag/verirag/internal/core/domain"
	"github.com/verirag/verirag/internal/core/ports"
)

// Verifier constrains the generator to the retrieved passages and parses its
// structured self-assessment. The faithfulness score is self-reported by the
// same model producing the answer: treat it as an advisory abstention signal,
// not a calibrated confidence.
type Verifier struct {
	generator ports.AnswerGenerator
}

func NewVerifier(generator ports.AnswerGenerator) *Verifier {
	return &Verifier{generator: generator}
}

func (v *Verifier) Verify(ctx context.Context, question string, passages []domain.RetrievedPassage) *domain.VerifiedAnswer {
	if len(passages) == 0 {
		return domain.NoContextAnswer()
	}

	raw, err := v.generator.GenerateVerified(ctx, buildVerifierPrompt(question, passages))
	if err != nil {
		slog.Error("answer generation failed", "error", err)
		return domain.FailureAnswer(failureKind(err), "Answer generation failed: "+err.Error())
	}

	answer, err := parseVerifiedPayload(raw)
	if err != nil {
		slog.Error("generation output not parseable", "error", err)
		return domain.FailureAnswer(
			domain.FailureGenerationFormat,
			"The model returned malformed structured output; no answer was produced.",
		)
	}

	answer.Sources = passages
	return answer
}

func buildVerifierPrompt(question string, passages []domain.RetrievedPassage) string {
	var contextBlock strings.Builder
	for idx, p := range passages {
		contextBlock.WriteString(fmt.Sprintf(
			"[%d] document=%s score=%.3f\n%s\n\n",
			idx+1,
			p.Title,
			p.Score,
			p.Text,
		))
	}

	return fmt.Sprintf(`Answer the user question using ONLY the context below.
If the answer is not derivable from the context, the answer field must state that the information was not found and faithfulness_score must be exactly 0.
Return a single JSON object with exactly these keys:
answer (string), faithfulness_score (number from 0.0 to 1.0), explanation (string), source_citation (string quoting the supporting passage).
No markdown, no extra keys.

Question:
%s

Context:
%s`, question, contextBlock.String())
}

// parseVerifiedPayload strips non-structural wrapping (markdown fences,
// leading prose) and decodes the required four-field object. A half-parsed
// payload is never returned.
func parseVerifiedPayload(raw string) (*domain.VerifiedAnswer, error) {
	payload := extractJSONObject(raw)

	var parsed struct {
		Answer            string   `json:"answer"`
		FaithfulnessScore *float64 `json:"faithfulness_score"`
		Explanation       string   `json:"explanation"`
		SourceCitation    string   `json:"source_citation"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, domain.WrapError(domain.ErrGenerationFormat, "parse verified payload", err)
	}
	if strings.TrimSpace(parsed.Answer) == "" || parsed.FaithfulnessScore == nil {
		return nil, domain.WrapError(
			domain.ErrGenerationFormat,
			"parse verified payload",
			fmt.Errorf("missing required fields in %q", payload),
		)
	}

	return &domain.VerifiedAnswer{
		Answer:            parsed.Answer,
		FaithfulnessScore: clampScore(*parsed.FaithfulnessScore),
		Explanation:       parsed.Explanation,
		SourceCitation:    parsed.SourceCitation,
	}, nil
}

func extractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
