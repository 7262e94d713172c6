package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Yasin-shaik/QValley/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testTransaction(createdAt time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:        uuid.New().String(),
		Account:   "ACC-1",
		Payee:     "ramesh stores",
		Amount:    1500,
		TS:        "2025-03-01 10:30:00",
		Score:     82,
		Verdict:   domain.VerdictSafe,
		Reasons:   []string{"Known payee"},
		Action:    "Allow • Monitor",
		CreatedAt: createdAt,
	}
}

func TestTransactionPersistence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("SaveAndList", func(t *testing.T) {
		tx := testTransaction(time.Now().UTC())
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}

		txs, err := repo.ListTransactions(ctx, 10)
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(txs) != 1 {
			t.Fatalf("expected 1 transaction, got %d", len(txs))
		}

		got := txs[0]
		if got.ID != tx.ID {
			t.Errorf("id mismatch: %s vs %s", got.ID, tx.ID)
		}
		if got.Payee != "ramesh stores" || got.Amount != 1500 {
			t.Errorf("row fields mismatch: %+v", got)
		}
		if got.Verdict != domain.VerdictSafe {
			t.Errorf("verdict mismatch: %s", got.Verdict)
		}
		if len(got.Reasons) != 1 || got.Reasons[0] != "Known payee" {
			t.Errorf("reasons mismatch: %v", got.Reasons)
		}
	})

	t.Run("NewestFirst", func(t *testing.T) {
		base := time.Now().UTC()
		older := testTransaction(base.Add(-time.Hour))
		newer := testTransaction(base.Add(time.Hour))

		_ = repo.SaveTransaction(ctx, older)
		_ = repo.SaveTransaction(ctx, newer)

		txs, err := repo.ListTransactions(ctx, 10)
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if txs[0].ID != newer.ID {
			t.Error("expected newest transaction first")
		}
	})

	t.Run("LimitApplied", func(t *testing.T) {
		repo := newTestRepo(t)
		for i := 0; i < 5; i++ {
			_ = repo.SaveTransaction(ctx, testTransaction(time.Now().UTC()))
		}

		txs, err := repo.ListTransactions(ctx, 3)
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(txs) != 3 {
			t.Errorf("expected 3 transactions, got %d", len(txs))
		}
	})

	t.Run("RejectsMissingID", func(t *testing.T) {
		err := repo.SaveTransaction(ctx, &domain.Transaction{})
		if err == nil {
			t.Error("expected error for missing id")
		}
	})
}

func TestAnalysisPersistence(t *testing.T) {
	ctx := context.Background()

	saveAnalysis := func(t *testing.T, repo domain.Repository, feature string, score int, createdAt time.Time) *domain.Analysis {
		t.Helper()
		a := &domain.Analysis{
			ID:         uuid.New().String(),
			Feature:    feature,
			InputValue: "sample input",
			Score:      score,
			Verdict:    domain.VerdictSuspicious,
			Reasons:    []string{"Urgency language detected"},
			Action:     "Call back",
			CreatedAt:  createdAt,
		}
		if err := repo.SaveAnalysis(ctx, a); err != nil {
			t.Fatalf("SaveAnalysis failed: %v", err)
		}
		return a
	}

	t.Run("SaveAndList", func(t *testing.T) {
		repo := newTestRepo(t)
		a := saveAnalysis(t, repo, domain.FeatureChat, 55, time.Now().UTC())

		got, err := repo.ListAnalyses(ctx, domain.ResultFilter{})
		if err != nil {
			t.Fatalf("ListAnalyses failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 analysis, got %d", len(got))
		}
		if got[0].ID != a.ID || got[0].Feature != domain.FeatureChat {
			t.Errorf("analysis mismatch: %+v", got[0])
		}
		if len(got[0].Reasons) != 1 {
			t.Errorf("reasons mismatch: %v", got[0].Reasons)
		}
	})

	t.Run("FeatureFilter", func(t *testing.T) {
		repo := newTestRepo(t)
		now := time.Now().UTC()
		saveAnalysis(t, repo, domain.FeatureChat, 50, now)
		saveAnalysis(t, repo, domain.FeatureScreenshot, 60, now)

		got, err := repo.ListAnalyses(ctx, domain.ResultFilter{Feature: domain.FeatureScreenshot})
		if err != nil {
			t.Fatalf("ListAnalyses failed: %v", err)
		}
		if len(got) != 1 || got[0].Feature != domain.FeatureScreenshot {
			t.Errorf("feature filter failed: %+v", got)
		}

		// "all" means no feature constraint
		got, err = repo.ListAnalyses(ctx, domain.ResultFilter{Feature: "all"})
		if err != nil {
			t.Fatalf("ListAnalyses failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 analyses for 'all', got %d", len(got))
		}
	})

	t.Run("DateRangeFilter", func(t *testing.T) {
		repo := newTestRepo(t)
		base := time.Now().UTC()
		saveAnalysis(t, repo, domain.FeatureChat, 50, base.Add(-48*time.Hour))
		recent := saveAnalysis(t, repo, domain.FeatureChat, 60, base)

		got, err := repo.ListAnalyses(ctx, domain.ResultFilter{From: base.Add(-time.Hour)})
		if err != nil {
			t.Fatalf("ListAnalyses failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != recent.ID {
			t.Errorf("date filter failed: %+v", got)
		}
	})

	t.Run("ScoreOrdering", func(t *testing.T) {
		repo := newTestRepo(t)
		now := time.Now().UTC()
		saveAnalysis(t, repo, domain.FeatureChat, 20, now)
		saveAnalysis(t, repo, domain.FeatureChat, 90, now)
		saveAnalysis(t, repo, domain.FeatureChat, 55, now)

		got, err := repo.ListAnalyses(ctx, domain.ResultFilter{Order: "hi"})
		if err != nil {
			t.Fatalf("ListAnalyses failed: %v", err)
		}
		if got[0].Score != 90 || got[2].Score != 20 {
			t.Errorf("hi ordering wrong: %d, %d, %d", got[0].Score, got[1].Score, got[2].Score)
		}

		got, err = repo.ListAnalyses(ctx, domain.ResultFilter{Order: "lo"})
		if err != nil {
			t.Fatalf("ListAnalyses failed: %v", err)
		}
		if got[0].Score != 20 {
			t.Errorf("lo ordering wrong: first score %d", got[0].Score)
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		repo := newTestRepo(t)
		now := time.Now().UTC()
		for i := 0; i < 5; i++ {
			saveAnalysis(t, repo, domain.FeatureChat, 50+i, now.Add(time.Duration(i)*time.Second))
		}

		page1, err := repo.ListAnalyses(ctx, domain.ResultFilter{Limit: 2, Page: 1})
		if err != nil {
			t.Fatalf("ListAnalyses failed: %v", err)
		}
		page2, err := repo.ListAnalyses(ctx, domain.ResultFilter{Limit: 2, Page: 2})
		if err != nil {
			t.Fatalf("ListAnalyses failed: %v", err)
		}

		if len(page1) != 2 || len(page2) != 2 {
			t.Fatalf("expected 2 per page, got %d and %d", len(page1), len(page2))
		}
		if page1[0].ID == page2[0].ID {
			t.Error("pages overlap")
		}
	})
}

func TestRiskRulePersistence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rule := &domain.RiskRule{
		ID:         "high-amount",
		Name:       "High amount",
		Expression: "amount > 10000.0",
		Points:     25,
		Reason:     "Large transfer",
		Enabled:    true,
	}

	t.Run("SaveAndList", func(t *testing.T) {
		if err := repo.SaveRiskRule(ctx, rule); err != nil {
			t.Fatalf("SaveRiskRule failed: %v", err)
		}

		got, err := repo.ListRiskRules(ctx)
		if err != nil {
			t.Fatalf("ListRiskRules failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 rule, got %d", len(got))
		}
		if got[0].Expression != rule.Expression || got[0].Points != 25 {
			t.Errorf("rule mismatch: %+v", got[0])
		}
	})

	t.Run("UpsertUpdatesInPlace", func(t *testing.T) {
		updated := *rule
		updated.Points = 40
		if err := repo.SaveRiskRule(ctx, &updated); err != nil {
			t.Fatalf("SaveRiskRule failed: %v", err)
		}

		got, err := repo.ListRiskRules(ctx)
		if err != nil {
			t.Fatalf("ListRiskRules failed: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 rule after upsert, got %d", len(got))
		}
		if got[0].Points != 40 {
			t.Errorf("expected updated points 40, got %d", got[0].Points)
		}
	})

	t.Run("DisabledRulesExcluded", func(t *testing.T) {
		disabled := &domain.RiskRule{
			ID:         "disabled",
			Name:       "Disabled",
			Expression: "true",
			Enabled:    false,
		}
		if err := repo.SaveRiskRule(ctx, disabled); err != nil {
			t.Fatalf("SaveRiskRule failed: %v", err)
		}

		got, err := repo.ListRiskRules(ctx)
		if err != nil {
			t.Fatalf("ListRiskRules failed: %v", err)
		}
		for _, r := range got {
			if r.ID == "disabled" {
				t.Error("disabled rule should not be listed")
			}
		}
	})
}

func TestRepositoryLifecycle(t *testing.T) {
	t.Run("Ping", func(t *testing.T) {
		repo := newTestRepo(t)
		if err := repo.Ping(context.Background()); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("UnsupportedDriver", func(t *testing.T) {
		_, err := New(domain.RepositoryConfig{Driver: "oracle"})
		if err == nil {
			t.Error("expected error for unsupported driver")
		}
	})
}

func TestRebind(t *testing.T) {
	sqlite := &SQLRepository{driver: "sqlite"}
	if got := sqlite.rebind("SELECT ?, ?"); got != "SELECT ?, ?" {
		t.Errorf("sqlite rebind should be identity, got %q", got)
	}

	pg := &SQLRepository{driver: "postgres"}
	if got := pg.rebind("SELECT ?, ?, ?"); got != "SELECT $1, $2, $3" {
		t.Errorf("postgres rebind wrong: %q", got)
	}
}
