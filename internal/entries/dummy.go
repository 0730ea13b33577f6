// dummy.go - Random entry generation for benchmarks and tests.

package entries

import (
	"errors"
	"fmt"
	"math/big"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// ErrNoCurrencies reports a generation request for a table with zero
// balance columns.
var ErrNoCurrencies = errors.New("entries: at least one currency is required")

const usernameLen = 10

const usernameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateDummyEntries produces nUsers rows with random 10-character
// usernames and balances in [1000, 90000), one goroutine per row. Each row
// owns its output slot so no synchronization is needed beyond the group wait.
func GenerateDummyEntries(nUsers int, currencies []Cryptocurrency, nBytes int) ([]*Entry, error) {
	if len(currencies) == 0 {
		return nil, ErrNoCurrencies
	}
	if nUsers <= 0 {
		return nil, fmt.Errorf("entries: invalid user count %d", nUsers)
	}

	result := make([]*Entry, nUsers)
	var g errgroup.Group
	for i := 0; i < nUsers; i++ {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(i) + 1))
			name := make([]byte, usernameLen)
			for j := range name {
				name[j] = usernameAlphabet[rng.Intn(len(usernameAlphabet))]
			}
			balances := make([]*big.Int, len(currencies))
			for j := range balances {
				balances[j] = big.NewInt(int64(1000 + rng.Intn(89000)))
			}
			entry, err := NewEntry(string(name), balances, nBytes)
			if err != nil {
				return err
			}
			result[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
