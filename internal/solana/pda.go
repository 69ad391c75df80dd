package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// MetaplexProgramID is the Metaplex Token Metadata program.
const MetaplexProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

const pdaMarker = "ProgramDerivedAddress"

// ErrNoViableBump is returned when every bump seed lands on the curve.
var ErrNoViableBump = errors.New("no viable bump seed")

// DecodePubkey decodes a base58 public key and checks its length.
func DecodePubkey(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("pubkey %q: want 32 bytes, got %d", s, len(b))
	}
	return b, nil
}

// FindProgramAddress derives the canonical PDA for seeds under programID,
// searching bumps from 255 down.
func FindProgramAddress(seeds [][]byte, programID []byte) (string, uint8, error) {
	for bump := 255; bump > 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programID)
		h.Write([]byte(pdaMarker))
		sum := h.Sum(nil)

		if !isOnCurve(sum) {
			return base58.Encode(sum), uint8(bump), nil
		}
	}
	return "", 0, ErrNoViableBump
}

// MetadataPDA derives the Metaplex metadata account of a mint.
// Seeds: ["metadata", program id, mint].
func MetadataPDA(mint string) (string, error) {
	mintBytes, err := DecodePubkey(mint)
	if err != nil {
		return "", err
	}
	programBytes, err := DecodePubkey(MetaplexProgramID)
	if err != nil {
		return "", err
	}

	pda, _, err := FindProgramAddress([][]byte{[]byte("metadata"), programBytes, mintBytes}, programBytes)
	if err != nil {
		return "", fmt.Errorf("derive metadata pda for %s: %w", mint, err)
	}
	return pda, nil
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
