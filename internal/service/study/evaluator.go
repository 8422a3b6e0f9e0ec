package study

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/flashdeck-backend/internal/domain"
)

// Evaluator judges submitted answers against the card's back face. It never
// touches scheduling state; it only produces a verdict.
type Evaluator struct {
	log     *slog.Logger
	checker answerChecker
	cutoff  float64
}

// NewEvaluator creates an evaluator. checker may be nil, leaving only exact
// matching after normalization.
func NewEvaluator(log *slog.Logger, checker answerChecker, cutoff float64) *Evaluator {
	return &Evaluator{log: log, checker: checker, cutoff: cutoff}
}

// Evaluate compares the submitted answer with the canonical one. Exact match
// after normalization wins immediately; otherwise the AI checker, when
// configured, judges semantic similarity against the cutoff. Checker errors
// degrade to the exact-match verdict instead of failing the submission.
func (e *Evaluator) Evaluate(ctx context.Context, canonical, answer string) domain.AnswerVerdict {
	verdict := domain.AnswerVerdict{
		CanonicalAnswer: canonical,
		IsCorrect:       domain.NormalizeText(answer) == domain.NormalizeText(canonical),
	}
	if verdict.IsCorrect {
		verdict.Category = "exact"
		return verdict
	}

	if e.checker == nil {
		verdict.Category = "wrong"
		return verdict
	}

	result, err := e.checker.CheckAnswer(ctx, canonical, answer)
	if err != nil {
		e.log.WarnContext(ctx, "answer checker failed, falling back to exact match", "error", err)
		verdict.Category = "wrong"
		return verdict
	}

	similarity := result.Similarity
	verdict.Similarity = &similarity
	verdict.Category = result.Category
	verdict.Feedback = result.Feedback
	verdict.IsCorrect = similarity >= e.cutoff

	return verdict
}
