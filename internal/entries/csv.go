// csv.go - CSV ingestion for the balance table.
//
// Record format, one line per user:
//
//	username;balance_1,balance_2,...,balance_N
//
// Balances are unsigned big integers in decimal. Malformed input surfaces as
// a typed error before any circuit work begins.

package entries

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
)

var (
	// ErrFieldCount reports a line without exactly one username field and
	// one balance-list field, or a balance list of the wrong length.
	ErrFieldCount = errors.New("entries: wrong field count")
	// ErrBadBalance reports a balance field that is not an unsigned decimal.
	ErrBadBalance = errors.New("entries: malformed balance")
)

// ParseCSV reads the record stream and returns the entries in input order
// together with the plaintext per-currency totals. Row order is preserved
// exactly: it fixes the evaluation-domain index of every user.
func ParseCSV(r io.Reader, nCurrencies, nBytes int) ([]*Entry, []*big.Int, error) {
	totals := make([]*big.Int, nCurrencies)
	for i := range totals {
		totals[i] = new(big.Int)
	}

	var result []*Entry
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Split(text, ";")
		if len(fields) != 2 {
			return nil, nil, fmt.Errorf("line %d: expected username;balances, got %d fields: %w", line, len(fields), ErrFieldCount)
		}

		rawBalances := strings.Split(fields[1], ",")
		if len(rawBalances) != nCurrencies {
			return nil, nil, fmt.Errorf("line %d: expected %d balances, got %d: %w", line, nCurrencies, len(rawBalances), ErrFieldCount)
		}

		balances := make([]*big.Int, nCurrencies)
		for i, raw := range rawBalances {
			b, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
			if !ok || b.Sign() < 0 {
				return nil, nil, fmt.Errorf("line %d: balance %d %q: %w", line, i, raw, ErrBadBalance)
			}
			balances[i] = b
			totals[i].Add(totals[i], b)
		}

		entry, err := NewEntry(fields[0], balances, nBytes)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		result = append(result, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading entries: %w", err)
	}
	return result, totals, nil
}

// ParseCSVFile opens path and parses it with ParseCSV.
func ParseCSVFile(path string, nCurrencies, nBytes int) ([]*Entry, []*big.Int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening entries file: %w", err)
	}
	defer f.Close()
	return ParseCSV(f, nCurrencies, nBytes)
}
