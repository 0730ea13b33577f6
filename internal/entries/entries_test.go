package entries

import (
	"errors"
	"math/big"
	"strings"
	"testing"
)

func TestParseCSV(t *testing.T) {
	input := "alice;100,200\nbob;300,400\n"
	got, totals, err := ParseCSV(strings.NewReader(input), 2, 8)
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Username() != "alice" {
		t.Errorf("expected username alice, got %q", got[0].Username())
	}
	if got[1].Balances()[1].Cmp(big.NewInt(400)) != 0 {
		t.Errorf("expected balance 400, got %v", got[1].Balances()[1])
	}
	if totals[0].Cmp(big.NewInt(400)) != 0 || totals[1].Cmp(big.NewInt(600)) != 0 {
		t.Errorf("unexpected totals %v, %v", totals[0], totals[1])
	}
}

func TestParseCSVFieldCount(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader("alice;100\n"), 2, 8)
	if !errors.Is(err, ErrFieldCount) {
		t.Fatalf("expected ErrFieldCount, got %v", err)
	}
	_, _, err = ParseCSV(strings.NewReader("alice\n"), 2, 8)
	if !errors.Is(err, ErrFieldCount) {
		t.Fatalf("expected ErrFieldCount for missing balances, got %v", err)
	}
}

func TestParseCSVBadBalance(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader("alice;12x,200\n"), 2, 8)
	if !errors.Is(err, ErrBadBalance) {
		t.Fatalf("expected ErrBadBalance, got %v", err)
	}
	_, _, err = ParseCSV(strings.NewReader("alice;-5,200\n"), 2, 8)
	if !errors.Is(err, ErrBadBalance) {
		t.Fatalf("expected ErrBadBalance for negative value, got %v", err)
	}
}

func TestNewEntryRange(t *testing.T) {
	// 2-byte capacity: 65535 fits, 65536 does not.
	if _, err := NewEntry("u", []*big.Int{big.NewInt(65535)}, 2); err != nil {
		t.Fatalf("in-range balance rejected: %v", err)
	}
	if _, err := NewEntry("u", []*big.Int{big.NewInt(65536)}, 2); err == nil {
		t.Fatal("out-of-range balance accepted")
	}
}

func TestUsernameBigInt(t *testing.T) {
	e, err := NewEntry("AB", []*big.Int{big.NewInt(1)}, 8)
	if err != nil {
		t.Fatalf("NewEntry failed: %v", err)
	}
	// "AB" = 0x4142 big-endian.
	if e.UsernameBigInt().Cmp(big.NewInt(0x4142)) != 0 {
		t.Errorf("expected 0x4142, got %v", e.UsernameBigInt())
	}
}

func TestGenerateDummyEntries(t *testing.T) {
	currencies := []Cryptocurrency{{Name: "ETH", Chain: "ETH"}, {Name: "USDT", Chain: "ETH"}}
	got, err := GenerateDummyEntries(32, currencies, 8)
	if err != nil {
		t.Fatalf("GenerateDummyEntries failed: %v", err)
	}
	if len(got) != 32 {
		t.Fatalf("expected 32 entries, got %d", len(got))
	}
	for i, e := range got {
		if len(e.Username()) != usernameLen {
			t.Fatalf("entry %d: bad username %q", i, e.Username())
		}
		for j, b := range e.Balances() {
			if b.Cmp(big.NewInt(1000)) < 0 || b.Cmp(big.NewInt(90000)) >= 0 {
				t.Fatalf("entry %d balance %d out of range: %v", i, j, b)
			}
		}
	}
}

func TestGenerateDummyEntriesNoCurrencies(t *testing.T) {
	_, err := GenerateDummyEntries(8, nil, 8)
	if !errors.Is(err, ErrNoCurrencies) {
		t.Fatalf("expected ErrNoCurrencies, got %v", err)
	}
}
