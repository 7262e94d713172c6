package ingest

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/Yasin-shaik/QValley/internal/analyzer"
	"github.com/Yasin-shaik/QValley/internal/domain"
)

func testAnalyzer() *analyzer.Analyzer {
	return analyzer.New(rand.NewSource(1))
}

func TestCheckFilename(t *testing.T) {
	valid := []string{"data.csv", "DATA.CSV", "report.Csv", "dir/batch.csv"}
	for _, name := range valid {
		if err := CheckFilename(name); err != nil {
			t.Errorf("CheckFilename(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"data.xlsx", "data", "data.csv.txt", "image.png"}
	for _, name := range invalid {
		err := CheckFilename(name)
		if !errors.Is(err, ErrUnsupportedMedia) {
			t.Errorf("CheckFilename(%q) = %v, want ErrUnsupportedMedia", name, err)
		}
	}
}

func TestIngest(t *testing.T) {
	t.Run("EmptyInput", func(t *testing.T) {
		_, err := Ingest(strings.NewReader(""), testAnalyzer())
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("expected ErrEmptyInput, got %v", err)
		}
	})

	t.Run("HeaderOnly", func(t *testing.T) {
		txs, err := Ingest(strings.NewReader("account,payee,amount,ts\n"), testAnalyzer())
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if len(txs) != 0 {
			t.Errorf("expected empty slice for header-only file, got %d rows", len(txs))
		}
	})

	t.Run("RawRowsAreScored", func(t *testing.T) {
		csv := "account,payee,amount,ts\n" +
			"ACC-1,Ramesh Stores,1500,2025-03-01 10:30:00\n" +
			"ACC-2,BigMart,200,2025-03-02 09:00:00\n"

		txs, err := Ingest(strings.NewReader(csv), testAnalyzer())
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if len(txs) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(txs))
		}

		for _, tx := range txs {
			if tx.Score < 5 || tx.Score > 95 {
				t.Errorf("score %d outside mock range", tx.Score)
			}
			if len(tx.Reasons) < 1 || len(tx.Reasons) > 3 {
				t.Errorf("expected 1-3 reasons, got %v", tx.Reasons)
			}
			if tx.ID == "" {
				t.Error("expected generated ID")
			}
		}
		if txs[0].Payee != "ramesh stores" {
			t.Errorf("payee not folded: %q", txs[0].Payee)
		}
	})

	t.Run("PreAnalyzedPassthrough", func(t *testing.T) {
		csv := "account,payee,amount,ts,score,verdict,reasons,action\n" +
			"ACC-1,Ramesh Stores,1500,2025-03-01 10:30:00,82,safe,Looks fine • Known payee,Allow\n"

		txs, err := Ingest(strings.NewReader(csv), testAnalyzer())
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if len(txs) != 1 {
			t.Fatalf("expected 1 row, got %d", len(txs))
		}

		tx := txs[0]
		if tx.Score != 82 {
			t.Errorf("score re-rolled: got %d, want 82", tx.Score)
		}
		if tx.Verdict != domain.VerdictSafe {
			t.Errorf("verdict not uppercased: %q", tx.Verdict)
		}
		if len(tx.Reasons) != 2 || tx.Reasons[0] != "Looks fine" || tx.Reasons[1] != "Known payee" {
			t.Errorf("bullet reasons split wrong: %v", tx.Reasons)
		}
		if tx.Action != "Allow" {
			t.Errorf("action not preserved: %q", tx.Action)
		}
		if tx.Payee != "ramesh stores" {
			t.Errorf("payee not folded: %q", tx.Payee)
		}
	})

	t.Run("PreAnalyzedDefaults", func(t *testing.T) {
		csv := "account,payee,amount,ts,score,verdict,reasons,action\n" +
			"ACC-1,Shop,not-a-number,,bad,, ,\n"

		txs, err := Ingest(strings.NewReader(csv), testAnalyzer())
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if len(txs) != 1 {
			t.Fatalf("expected 1 row, got %d", len(txs))
		}

		tx := txs[0]
		if tx.Amount != 0 {
			t.Errorf("bad amount should default to 0, got %f", tx.Amount)
		}
		if tx.Score != 0 {
			t.Errorf("bad score should default to 0, got %d", tx.Score)
		}
		if tx.Verdict != domain.VerdictSafe {
			t.Errorf("missing verdict should default to SAFE, got %q", tx.Verdict)
		}
		if tx.Reasons == nil || len(tx.Reasons) != 0 {
			t.Errorf("blank reasons should yield empty slice, got %v", tx.Reasons)
		}
		if tx.Action != DefaultAction {
			t.Errorf("missing action should default to %q, got %q", DefaultAction, tx.Action)
		}
	})

	t.Run("MissingAnalysisFieldRoutesToScoring", func(t *testing.T) {
		// No 'action' column, so rows are raw despite score/verdict/reasons.
		csv := "account,payee,amount,ts,score,verdict,reasons\n" +
			"ACC-1,Shop,100,2025-01-01,82,SAFE,Fine\n"

		txs, err := Ingest(strings.NewReader(csv), testAnalyzer())
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if len(txs) != 1 {
			t.Fatalf("expected 1 row, got %d", len(txs))
		}
		// The mock scorer replaces the claimed analysis wholesale.
		if len(txs[0].Reasons) < 1 || txs[0].Reasons[0] == "Fine" {
			t.Errorf("raw row should be re-scored, got reasons %v", txs[0].Reasons)
		}
	})

	t.Run("RaggedRowsTolerated", func(t *testing.T) {
		csv := "account,payee,amount,ts\n" +
			"ACC-1,Shop\n" +
			"ACC-2,Store,50,2025-01-01,extra,fields\n"

		txs, err := Ingest(strings.NewReader(csv), testAnalyzer())
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if len(txs) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(txs))
		}
		if txs[0].Amount != 0 {
			t.Errorf("short row amount should default to 0, got %f", txs[0].Amount)
		}
		if txs[1].Amount != 50 {
			t.Errorf("long row amount should parse, got %f", txs[1].Amount)
		}
	})
}

func TestSplitReasons(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a • b • c", []string{"a", "b", "c"}},
		{"a, b, c", []string{"a", "b", "c"}},
		{"only one", []string{"only one"}},
		{"", []string{}},
		{" • • ", []string{}},
		{"mixed, commas • win", []string{"mixed, commas", "win"}},
	}

	for _, tc := range cases {
		got := SplitReasons(tc.in)
		if len(got) != len(tc.want) {
			t.Errorf("SplitReasons(%q) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("SplitReasons(%q)[%d] = %q, want %q", tc.in, i, got[i], tc.want[i])
			}
		}
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	original := "account,payee,amount,ts,score,verdict,reasons,action\n" +
		"ACC-1,shop,1500,2025-03-01 10:30:00,82,SAFE,Looks fine • Known payee,Allow\n" +
		"ACC-2,store,90,2025-03-02 11:00:00,30,FRAUD,Risky invoice-like pattern,HOLD\n"

	txs, err := Ingest(strings.NewReader(original), testAnalyzer())
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, txs); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	again, err := Ingest(&buf, testAnalyzer())
	if err != nil {
		t.Fatalf("re-Ingest failed: %v", err)
	}
	if len(again) != len(txs) {
		t.Fatalf("row count changed: %d -> %d", len(txs), len(again))
	}

	for i := range txs {
		if again[i].Score != txs[i].Score {
			t.Errorf("row %d score changed: %d -> %d", i, txs[i].Score, again[i].Score)
		}
		if again[i].Verdict != txs[i].Verdict {
			t.Errorf("row %d verdict changed: %s -> %s", i, txs[i].Verdict, again[i].Verdict)
		}
		if strings.Join(again[i].Reasons, "|") != strings.Join(txs[i].Reasons, "|") {
			t.Errorf("row %d reasons changed: %v -> %v", i, txs[i].Reasons, again[i].Reasons)
		}
		if again[i].Action != txs[i].Action {
			t.Errorf("row %d action changed: %q -> %q", i, txs[i].Action, again[i].Action)
		}
	}
}
