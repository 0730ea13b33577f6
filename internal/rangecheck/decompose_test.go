package rangecheck

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDecomposeToBytes(t *testing.T) {
	v := big.NewInt(0x1f2f3f4f)

	got, truncated := DecomposeToBytes(v, 4)
	if truncated {
		t.Fatal("unexpected truncation")
	}
	want := []byte{0x4f, 0x3f, 0x2f, 0x1f}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, got[i], want[i])
		}
	}

	got, truncated = DecomposeToBytes(v, 6)
	if truncated || len(got) != 6 || got[4] != 0 || got[5] != 0 {
		t.Fatalf("expected zero padding to 6 bytes, got %v (truncated=%v)", got, truncated)
	}

	got, truncated = DecomposeToBytes(v, 2)
	if !truncated {
		t.Fatal("expected truncation flag")
	}
	if got[0] != 0x4f || got[1] != 0x3f {
		t.Fatalf("expected least significant bytes kept, got %v", got)
	}

	got, truncated = DecomposeToBytes(big.NewInt(0xf1f2f3f), 2)
	if !truncated || got[0] != 0x3f || got[1] != 0x2f {
		t.Fatalf("unexpected truncation result %v (truncated=%v)", got, truncated)
	}
}

func TestDecomposeToBytePairs(t *testing.T) {
	v := big.NewInt(0x1f2f3f4f)

	got, truncated := DecomposeToBytePairs(v, 2)
	if truncated || got[0] != 0x3f4f || got[1] != 0x1f2f {
		t.Fatalf("unexpected pairs %v (truncated=%v)", got, truncated)
	}

	got, truncated = DecomposeToBytePairs(v, 3)
	if truncated || len(got) != 3 || got[2] != 0 {
		t.Fatalf("expected zero-padded pairs, got %v (truncated=%v)", got, truncated)
	}

	got, truncated = DecomposeToBytePairs(v, 1)
	if !truncated || got[0] != 0x3f4f {
		t.Fatalf("expected truncated pairs, got %v (truncated=%v)", got, truncated)
	}
}

func TestDecomposeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("byte recomposition is value mod 2^(8n)", prop.ForAll(
		func(raw uint64, n uint8) bool {
			nBytes := int(n%8) + 1
			v := new(big.Int).SetUint64(raw)
			limbs, truncated := DecomposeToBytes(v, nBytes)

			recomposed := new(big.Int)
			for i := len(limbs) - 1; i >= 0; i-- {
				recomposed.Lsh(recomposed, 8)
				recomposed.Or(recomposed, big.NewInt(int64(limbs[i])))
			}
			mod := new(big.Int).Lsh(big.NewInt(1), uint(8*nBytes))
			wantTruncated := len(v.Bytes()) > nBytes
			return recomposed.Cmp(new(big.Int).Mod(v, mod)) == 0 && truncated == wantTruncated
		},
		gen.UInt64(),
		gen.UInt8(),
	))

	properties.Property("pair decomposition packs adjacent bytes", prop.ForAll(
		func(raw uint64) bool {
			v := new(big.Int).SetUint64(raw)
			bytes, _ := DecomposeToBytes(v, 8)
			pairs, truncated := DecomposeToBytePairs(v, 4)
			if truncated {
				return false
			}
			for i := 0; i < 4; i++ {
				if pairs[i] != uint16(bytes[2*i])|uint16(bytes[2*i+1])<<8 {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
