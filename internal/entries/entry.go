// entry.go - User entry data model for the solvency witness table.
//
// An Entry is one row of the custodian's balance table: a username and one
// unsigned balance per supported currency. The slice order of parsed entries
// is load-bearing: row i becomes evaluation point omega^i for every later
// inclusion opening, so entries are immutable once constructed.

package entries

import (
	"fmt"
	"math/big"
)

// Cryptocurrency describes one balance column of the table.
type Cryptocurrency struct {
	Name  string `json:"name"`
	Chain string `json:"chain"`
}

// Entry is a single user row. Balances are unsigned and each must fit in
// nBytes bytes; this is checked at construction and again in-circuit.
type Entry struct {
	username    string
	usernameBig *big.Int
	balances    []*big.Int
}

// NewEntry builds an entry and validates every balance against the nBytes
// capacity. The username is mapped to an integer by interpreting its UTF-8
// bytes as a big-endian unsigned number.
func NewEntry(username string, balances []*big.Int, nBytes int) (*Entry, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), uint(8*nBytes))
	for i, b := range balances {
		if b.Sign() < 0 {
			return nil, fmt.Errorf("entry %q: balance %d is negative", username, i)
		}
		if b.Cmp(limit) >= 0 {
			return nil, fmt.Errorf("entry %q: balance %d does not fit in %d bytes", username, i, nBytes)
		}
	}
	return &Entry{
		username:    username,
		usernameBig: usernameToBigInt(username),
		balances:    balances,
	}, nil
}

// EmptyEntry returns the zero row used to pad the table up to the domain size.
func EmptyEntry(nCurrencies int) *Entry {
	balances := make([]*big.Int, nCurrencies)
	for i := range balances {
		balances[i] = new(big.Int)
	}
	return &Entry{
		username:    "",
		usernameBig: new(big.Int),
		balances:    balances,
	}
}

func (e *Entry) Username() string { return e.username }

// UsernameBigInt returns the username encoded as a big-endian unsigned integer.
func (e *Entry) UsernameBigInt() *big.Int { return e.usernameBig }

// Balances returns the balance list. Callers must not mutate it.
func (e *Entry) Balances() []*big.Int { return e.balances }

func usernameToBigInt(username string) *big.Int {
	return new(big.Int).SetBytes([]byte(username))
}
