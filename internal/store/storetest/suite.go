package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Conversations
	conv, err := s.Conversations().Create(ctx, nil)
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if conv.ConversationID == 0 {
		t.Fatalf("CreateConversation: zero id")
	}
	if got, err := s.Conversations().Get(ctx, conv.ConversationID); err != nil || got == nil || got.ConversationID != conv.ConversationID {
		t.Fatalf("GetConversation: got=%v err=%v", got, err)
	}
	if _, err := s.Conversations().Get(ctx, 999999); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetConversation missing: want ErrNotFound, got %v", err)
	}

	// Messages: append order must survive List round-trips
	contents := []string{"I was scammed via WhatsApp", "Can you tell me more?", "It happened yesterday", "What did they ask for?"}
	roles := []model.SenderRole{model.SenderHuman, model.SenderAI, model.SenderHuman, model.SenderAI}
	for i := range contents {
		if _, err := s.Messages().Append(ctx, conv.ConversationID, roles[i], contents[i]); err != nil {
			t.Fatalf("AppendMessage %d: %v", i, err)
		}
	}
	msgs, err := s.Messages().List(ctx, conv.ConversationID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != len(contents) {
		t.Fatalf("ListMessages: n=%d want %d", len(msgs), len(contents))
	}
	var prev time.Time
	for i, m := range msgs {
		if m.Content != contents[i] || m.SenderRole != roles[i] {
			t.Fatalf("ListMessages order: got %q/%s at %d", m.Content, m.SenderRole, i)
		}
		if m.SentTime.Before(prev) {
			t.Fatalf("ListMessages: sent_time regressed at %d", i)
		}
		prev = m.SentTime
	}

	// Transactional scope: a failing fn must leave no partial writes
	before := len(msgs)
	txErr := errors.New("boom")
	err = s.WithinTx(ctx, func(tx store.Store) error {
		if _, err := tx.Messages().Append(ctx, conv.ConversationID, model.SenderHuman, "rolled back"); err != nil {
			return err
		}
		return txErr
	})
	if !errors.Is(err, txErr) {
		t.Fatalf("WithinTx: want propagated fn error, got %v", err)
	}
	msgs, err = s.Messages().List(ctx, conv.ConversationID)
	if err != nil || len(msgs) != before {
		t.Fatalf("WithinTx rollback: n=%d want %d err=%v", len(msgs), before, err)
	}

	// Reports
	rep, err := s.Reports().Create(ctx, &model.ScamReport{
		IncidentDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		ReportDate:   time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
		ScamType:     "ecommerce",
		Description:  "Paid for a phone that never arrived",
		AmountLost:   420.50,
	})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}
	if rep.ReportID == 0 {
		t.Fatalf("CreateReport: zero id")
	}
	rep.Description = "Paid for a phone on a marketplace listing that never arrived"
	if _, err := s.Reports().Update(ctx, rep); err != nil {
		t.Fatalf("UpdateReport: %v", err)
	}
	got, err := s.Reports().Get(ctx, rep.ReportID)
	if err != nil || got.Description != rep.Description {
		t.Fatalf("GetReport after update: got=%v err=%v", got, err)
	}
	if lst, err := s.Reports().List(ctx); err != nil || len(lst) == 0 {
		t.Fatalf("ListReports: n=%d err=%v", len(lst), err)
	}
	if _, err := s.Reports().Get(ctx, 999999); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetReport missing: want ErrNotFound, got %v", err)
	}

	// Strategies
	low := &model.Dimension{Level: "low"}
	for i := 0; i < 3; i++ {
		if _, err := s.Strategies().Create(ctx, &model.Strategy{
			StrategyType: "reassurance",
			Response:     fmt.Sprintf("template %d", i),
			SuccessScore: 0.5 + float64(i)/10,
			Profile:      model.Profile{TechLiteracy: low},
		}); err != nil {
			t.Fatalf("CreateStrategy %d: %v", i, err)
		}
	}
	strats, err := s.Strategies().List(ctx)
	if err != nil || len(strats) != 3 {
		t.Fatalf("ListStrategies: n=%d err=%v", len(strats), err)
	}
	if strats[0].Profile.TechLiteracy == nil || strats[0].Profile.TechLiteracy.Level != "low" {
		t.Fatalf("ListStrategies: profile did not round-trip: %+v", strats[0].Profile)
	}
	if err := s.Strategies().IncrementRetrievalCount(ctx, []int64{strats[0].StrategyID, strats[1].StrategyID}); err != nil {
		t.Fatalf("IncrementRetrievalCount: %v", err)
	}
	strats, err = s.Strategies().List(ctx)
	if err != nil {
		t.Fatalf("ListStrategies after increment: %v", err)
	}
	if strats[0].RetrievalCount != 1 || strats[1].RetrievalCount != 1 || strats[2].RetrievalCount != 0 {
		t.Fatalf("IncrementRetrievalCount: counts=%d,%d,%d", strats[0].RetrievalCount, strats[1].RetrievalCount, strats[2].RetrievalCount)
	}
}
