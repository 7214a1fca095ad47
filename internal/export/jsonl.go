// Package export provides JSONL import and export for the transaction
// ledger.
//
// Export writes one transaction JSON document per line from the local
// snapshot. Import reads documents line by line and feeds them through
// the transaction repository, so an import performed offline queues
// for sync like any other mutation.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kessler/pocketbook/internal/repo"
	"github.com/kessler/pocketbook/internal/schema"
)

// Result contains statistics about an import or export run.
type Result struct {
	Written int
	Skipped int
	Errors  []string
}

// ToJSONL writes all transactions to w, one JSON document per line,
// oldest first.
func ToJSONL(transactions *repo.TransactionRepo, w io.Writer) (*Result, error) {
	txs, err := transactions.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	result := &Result{}
	enc := json.NewEncoder(w)
	// List returns newest first; export oldest first so re-import
	// preserves occurrence order.
	for i := len(txs) - 1; i >= 0; i-- {
		if err := enc.Encode(txs[i]); err != nil {
			return result, fmt.Errorf("failed to write transaction %s: %w", txs[i].ID, err)
		}
		result.Written++
	}
	return result, nil
}

// ExportFile writes all transactions to the named file.
func ExportFile(transactions *repo.TransactionRepo, path string) (*Result, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()
	return ToJSONL(transactions, f)
}

// FromJSONL reads one transaction per line from r and creates each
// through the repository. Individual bad lines are recorded and
// skipped; they do not stop the import.
func FromJSONL(transactions *repo.TransactionRepo, r io.Reader) (*Result, error) {
	result := &Result{}
	dec := json.NewDecoder(r)
	lineNum := 0

	for {
		var tx schema.Transaction
		err := dec.Decode(&tx)
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return result, fmt.Errorf("invalid JSON at line %d: %w", lineNum, err)
		}

		if err := transactions.Create(&tx); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}
		result.Written++
	}

	return result, nil
}

// ImportFile reads transactions from the named JSONL file.
func ImportFile(transactions *repo.TransactionRepo, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return FromJSONL(transactions, f)
}
