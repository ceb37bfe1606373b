package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"voice-platform/internal/sentiment"
)

func intPtr(v int) *int { return &v }

func TestRecordDefaultsAndDuplicate(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	ctx := context.Background()

	rec, err := svc.Record(ctx, Record{
		TenantID:   "t1",
		BotID:      "b1",
		CallUUID:   "c1",
		Category:   sentiment.CategoryInterested,
		Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.RecipientName != UnknownRecipient || rec.RecipientNumber != UnknownRecipient {
		t.Fatalf("expected Unknown recipient, got %+v", rec)
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp")
	}

	_, err = svc.Record(ctx, Record{TenantID: "t1", BotID: "b1", CallUUID: "c1", Category: sentiment.CategoryAngry})
	if !errors.Is(err, ErrDuplicateRecord) {
		t.Fatalf("expected ErrDuplicateRecord, got %v", err)
	}
	list, _ := svc.Query(ctx, "t1", "b1", "")
	if len(list) != 1 || list[0].Category != sentiment.CategoryInterested {
		t.Fatalf("first record must survive, got %+v", list)
	}
}

func TestRecordRejectsBadInput(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	ctx := context.Background()
	bad := []Record{
		{BotID: "b1", CallUUID: "c", Category: sentiment.CategoryAngry},
		{TenantID: "t1", BotID: "b1", CallUUID: "c", Category: "happy"},
		{TenantID: "t1", BotID: "b1", CallUUID: "c", Category: sentiment.CategoryAngry, Confidence: 1.5},
	}
	for i, r := range bad {
		if _, err := svc.Record(ctx, r); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}
}

func TestQueryNewestFirstAndScoped(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	seed := []Record{
		{TenantID: "t1", BotID: "b1", CallUUID: "c1", RecipientNumber: "+1555", Category: sentiment.CategorySatisfied, CreatedAt: base},
		{TenantID: "t1", BotID: "b1", CallUUID: "c2", RecipientNumber: "+1666", Category: sentiment.CategoryAngry, CreatedAt: base.Add(time.Minute)},
		{TenantID: "t1", BotID: "b1", CallUUID: "c3", RecipientNumber: "+1555", Category: sentiment.CategoryNoSpeech, Confidence: 1, CreatedAt: base.Add(2 * time.Minute)},
		{TenantID: "t2", BotID: "b1", CallUUID: "c4", Category: sentiment.CategoryAngry, CreatedAt: base},
	}
	for _, r := range seed {
		if _, err := svc.Record(ctx, r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	all, err := svc.Query(ctx, "t1", "b1", "")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 || all[0].CallUUID != "c3" || all[2].CallUUID != "c1" {
		t.Fatalf("unexpected order: %+v", all)
	}
	one, _ := svc.Query(ctx, "t1", "b1", " +1555 ")
	if len(one) != 2 {
		t.Fatalf("expected 2 records for recipient, got %d", len(one))
	}
}

func TestSummary(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil)
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	seed := []Record{
		{CallUUID: "c1", Category: sentiment.CategoryInterested, Confidence: 0.8, DurationSeconds: intPtr(60), CreatedAt: base},
		{CallUUID: "c2", Category: sentiment.CategoryInterested, Confidence: 0.6, DurationSeconds: intPtr(30), CreatedAt: base.Add(time.Hour)},
		{CallUUID: "c3", Category: sentiment.CategoryAnalysisFailed, Confidence: 0, CreatedAt: base.Add(2 * time.Hour)},
		{CallUUID: "c4", Category: sentiment.CategoryAngry, Confidence: 1, CreatedAt: base.Add(48 * time.Hour)},
	}
	for _, r := range seed {
		r.TenantID, r.BotID = "t1", "b1"
		if _, err := svc.Record(ctx, r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	sum, err := svc.Summary(ctx, "t1", "b1", TimeRange{From: base, To: base.Add(24 * time.Hour)})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalCalls != 3 || sum.ByCategory[sentiment.CategoryInterested] != 2 || sum.ByCategory[sentiment.CategoryAnalysisFailed] != 1 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if sum.TimedCalls != 2 || sum.TotalDurationSeconds != 90 || sum.AverageDurationSeconds != 45 {
		t.Fatalf("unexpected durations: %+v", sum)
	}
	if d := sum.AverageConfidence - 1.4/3; d > 1e-9 || d < -1e-9 {
		t.Fatalf("unexpected average confidence %v", sum.AverageConfidence)
	}

	open, _ := svc.Summary(ctx, "t1", "b1", TimeRange{})
	if open.TotalCalls != 4 {
		t.Fatalf("open range should include all, got %d", open.TotalCalls)
	}
	if _, err := svc.Summary(ctx, "t1", "b1", TimeRange{From: base, To: base}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected invalid range, got %v", err)
	}
}
