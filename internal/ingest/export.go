package ingest

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/Yasin-shaik/QValley/internal/domain"
)

// exportHeader is the fixed column order for CSV export.
var exportHeader = []string{"account", "payee", "amount", "score", "verdict", "reasons", "action", "createdAt"}

// WriteCSV serializes analyzed transactions for download. Reasons are
// joined with the bullet separator, which Ingest accepts back unchanged.
func WriteCSV(w io.Writer, txs []*domain.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(exportHeader); err != nil {
		return err
	}

	for _, tx := range txs {
		record := []string{
			tx.Account,
			tx.Payee,
			strconv.FormatFloat(tx.Amount, 'f', -1, 64),
			strconv.Itoa(tx.Score),
			string(tx.Verdict),
			strings.Join(tx.Reasons, ReasonSeparator),
			tx.Action,
			tx.CreatedAt.UTC().Format(domain.TimestampLayout),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
