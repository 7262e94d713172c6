// Package ingest implements the dual-mode CSV ingestion pipeline.
//
// Each uploaded row either already carries analysis fields (pre-analyzed
// passthrough, normalized but never re-scored) or is routed through the
// transaction-row estimator. Structural problems — no header row, wrong
// file type — abort the whole batch before any row is processed; row-level
// malformations never do. Bad per-row values degrade to defaults, which is
// a deliberate best-effort tolerance policy.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Yasin-shaik/QValley/internal/analyzer"
	"github.com/Yasin-shaik/QValley/internal/domain"
)

var (
	// ErrEmptyInput is returned when the upload has no header row.
	ErrEmptyInput = errors.New("csv file is empty")

	// ErrUnsupportedMedia is returned for non-CSV uploads.
	ErrUnsupportedMedia = errors.New("invalid file type, expected a CSV")
)

// DefaultAction is applied to pre-analyzed rows missing an action field.
const DefaultAction = "Allow • Monitor"

// ReasonSeparator joins reasons on export; imports accept it or a comma.
const ReasonSeparator = " • "

// CheckFilename validates the upload extension at the ingestion boundary.
func CheckFilename(name string) error {
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return fmt.Errorf("%w: %s", ErrUnsupportedMedia, name)
	}
	return nil
}

// rowClass is the explicit tagged variant a data row is classified into
// before dispatch, replacing inline field-set membership checks.
type rowClass int

const (
	rawRow rowClass = iota
	preAnalyzedRow
)

// analysisFields must all be present for a row to count as pre-analyzed.
var analysisFields = []string{"score", "verdict", "reasons", "action"}

// Ingest parses a CSV upload and yields exactly one Transaction per data
// row, in input order. A header row is required: its absence is terminal
// for the whole batch. A header-only file yields an empty slice.
func Ingest(r io.Reader, a *analyzer.Analyzer) ([]*domain.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, ErrEmptyInput
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}

	out := []*domain.Transaction{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Ragged or slightly malformed lines are tolerated, not fatal.
			continue
		}

		fields := zipRow(header, record)
		switch classifyRow(fields) {
		case preAnalyzedRow:
			out = append(out, normalizeRow(fields))
		default:
			out = append(out, a.AnalyzeRow(
				stringField(fields, "account", ""),
				stringField(fields, "payee", ""),
				floatField(fields, "amount", 0),
				stringField(fields, "ts", ""),
			))
		}
	}

	return out, nil
}

// zipRow pairs header names with record values. Extra values are ignored;
// short records leave the trailing fields absent.
func zipRow(header, record []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(record) {
			m[h] = record[i]
		}
	}
	return m
}

// classifyRow decides the row variant once, up front: a row is pre-analyzed
// only when every analysis field is present (field presence, not value).
func classifyRow(fields map[string]string) rowClass {
	for _, f := range analysisFields {
		if _, ok := fields[f]; !ok {
			return rawRow
		}
	}
	return preAnalyzedRow
}

// normalizeRow converts a pre-analyzed row into a Transaction without
// re-scoring it. Missing or unparseable values take the stated defaults.
func normalizeRow(fields map[string]string) *domain.Transaction {
	return &domain.Transaction{
		ID:        uuid.New().String(),
		Account:   stringField(fields, "account", ""),
		Payee:     strings.ToLower(stringField(fields, "payee", "")),
		Amount:    floatField(fields, "amount", 0),
		TS:        analyzer.NormalizeTimestamp(stringField(fields, "ts", "")),
		Score:     intField(fields, "score", 0),
		Verdict:   domain.Verdict(strings.ToUpper(stringField(fields, "verdict", string(domain.VerdictSafe)))),
		Reasons:   SplitReasons(stringField(fields, "reasons", "")),
		Action:    stringField(fields, "action", DefaultAction),
		CreatedAt: time.Now().UTC(),
	}
}

// SplitReasons splits a serialized reason list on the bullet separator if
// present, otherwise on commas. Empty entries are dropped so an empty field
// yields an empty slice, never a null.
func SplitReasons(raw string) []string {
	sep := ","
	if strings.Contains(raw, "•") {
		sep = "•"
	}

	reasons := []string{}
	for _, r := range strings.Split(raw, sep) {
		if r = strings.TrimSpace(r); r != "" {
			reasons = append(reasons, r)
		}
	}
	return reasons
}

// Typed parse-with-default field helpers. Absent keys and unparseable
// values both fall back to the default; nothing raises.

func stringField(m map[string]string, key, def string) string {
	v, ok := m[key]
	if !ok {
		return def
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

func floatField(m map[string]string, key string, def float64) float64 {
	f, err := strconv.ParseFloat(stringField(m, key, ""), 64)
	if err != nil {
		return def
	}
	return f
}

func intField(m map[string]string, key string, def int) int {
	n, err := strconv.Atoi(stringField(m, key, ""))
	if err != nil {
		return def
	}
	return n
}
