package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"voice-platform/internal/llm"
)

type Category string

// The six classification outcomes, plus two sentinels that are never produced by the model.
const (
	CategoryInterested      Category = "interested_in_product"
	CategoryNotInterested   Category = "not_interested"
	CategoryAngry           Category = "angry_customer"
	CategorySatisfied       Category = "satisfied_customer"
	CategoryRequestCallback Category = "request_callback"
	CategoryNeutralInquiry  Category = "neutral_inquiry"

	CategoryNoSpeech       Category = "no_speech"
	CategoryAnalysisFailed Category = "analysis_failed"
)

var taxonomy = []Category{
	CategoryInterested,
	CategoryNotInterested,
	CategoryAngry,
	CategorySatisfied,
	CategoryRequestCallback,
	CategoryNeutralInquiry,
}

// Valid reports whether c is one of the six model categories.
func (c Category) Valid() bool {
	for _, t := range taxonomy {
		if c == t {
			return true
		}
	}
	return false
}

// Known reports whether c may be stored: a model category or a sentinel.
func (c Category) Known() bool {
	return c.Valid() || c == CategoryNoSpeech || c == CategoryAnalysisFailed
}

type Result struct {
	Category       Category `json:"category"`
	Confidence     float64  `json:"confidence"`
	Reason         string   `json:"reason"`
	FollowUpAction string   `json:"follow_up_action"`
}

// Analyzer classifies a finished call's transcript. Classify never returns an error:
// failures degrade to CategoryAnalysisFailed so analytics persistence is never blocked.
type Analyzer struct {
	llm   llm.Completer
	model string
	log   *slog.Logger
}

func NewAnalyzer(c llm.Completer, model string, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{llm: c, model: model, log: log}
}

var (
	noSpeech = Result{
		Category:       CategoryNoSpeech,
		Confidence:     1.0,
		Reason:         "Empty transcript - no speech detected",
		FollowUpAction: "No action needed",
	}
	failed = Result{
		Category:       CategoryAnalysisFailed,
		Confidence:     0.0,
		Reason:         "Analysis failed due to technical error",
		FollowUpAction: "Manual review required",
	}
)

func (a *Analyzer) Classify(ctx context.Context, transcript string) Result {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return noSpeech
	}

	raw, err := a.llm.Complete(ctx, prompt(transcript), llm.Options{
		Model:       a.model,
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		a.log.Warn("sentiment completion failed", "err", err)
		return failed
	}
	res, err := parse(raw)
	if err != nil {
		a.log.Warn("sentiment response unusable", "err", err)
		return failed
	}
	return res
}

func prompt(transcript string) string {
	return fmt.Sprintf(`Analyze this COMPLETE customer call transcript and categorize it into ONE of these categories:
1. interested_in_product - Customer shows interest in product/service, asks for details
2. not_interested - Customer clearly states they are not interested or refuses
3. angry_customer - Customer is angry, frustrated, or dissatisfied
4. satisfied_customer - Customer is happy, satisfied, or thankful
5. request_callback - Customer requests callback or more information
6. neutral_inquiry - General inquiry without clear sentiment

Complete Transcript: %q

Respond in JSON format only:
{"category": "category_name", "confidence": 0.95, "reason": "brief explanation based on key phrases from transcript", "follow_up_action": "specific suggested action"}`, transcript)
}

var errNoJSON = errors.New("sentiment: no json object in response")

// parse accepts the model's JSON even when wrapped in prose or code fences.
func parse(raw string) (Result, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Result{}, errNoJSON
	}
	var r Result
	if err := json.Unmarshal([]byte(raw[start:end+1]), &r); err != nil {
		return Result{}, fmt.Errorf("sentiment: decode: %w", err)
	}
	r.Category = Category(strings.ToLower(strings.TrimSpace(string(r.Category))))
	if !r.Category.Valid() {
		return Result{}, fmt.Errorf("sentiment: category %q outside taxonomy", r.Category)
	}
	switch {
	case r.Confidence < 0:
		r.Confidence = 0
	case r.Confidence > 1:
		r.Confidence = 1
	}
	r.Reason = strings.TrimSpace(r.Reason)
	r.FollowUpAction = strings.TrimSpace(r.FollowUpAction)
	return r, nil
}
