package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"

	"solana-wallet-lab/internal/domain"
)

// SPL Token mint layout: mintAuthority Option<Pubkey> (36), supply u64 (8),
// decimals u8 (1), isInitialized bool (1), freezeAuthority Option<Pubkey> (36).
const (
	mintAccountSize    = 82
	mintDecimalsOffset = 44
)

// Metaplex metadata layout: key u8, updateAuthority (32), mint (32),
// then borsh strings name, symbol, uri.
const (
	metaplexKeyMetadataV1 = 4
	metaplexStringsOffset = 65
	maxNameLen            = 100
	maxSymbolLen          = 20
)

// MetadataResolver reads token identity straight from chain:
// decimals from the SPL mint account, name and symbol from the Metaplex PDA.
type MetadataResolver struct {
	rpc AccountReader
}

// NewMetadataResolver creates a resolver reading through rpc.
func NewMetadataResolver(rpc AccountReader) *MetadataResolver {
	return &MetadataResolver{rpc: rpc}
}

// Resolve returns the metadata of mint. ok is false when the mint account
// does not exist, is not an SPL mint, or carries no Metaplex symbol.
func (r *MetadataResolver) Resolve(ctx context.Context, mint string) (domain.TokenMetadata, bool, error) {
	meta := domain.TokenMetadata{Address: mint}

	mintInfo, err := r.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return meta, false, fmt.Errorf("get mint account %s: %w", mint, err)
	}
	if mintInfo == nil {
		return meta, false, nil
	}

	decimals, err := parseMintDecimals(mintInfo.Data)
	if err != nil {
		return meta, false, nil
	}
	meta.Decimals = decimals

	pda, err := MetadataPDA(mint)
	if err != nil {
		return meta, false, nil
	}
	metaInfo, err := r.rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return meta, false, fmt.Errorf("get metadata account %s: %w", pda, err)
	}
	if metaInfo == nil {
		return meta, false, nil
	}

	name, symbol, ok := parseMetaplexData(metaInfo.Data)
	if !ok || symbol == "" {
		return meta, false, nil
	}
	if name == "" {
		name = symbol
	}
	meta.Name = name
	meta.Symbol = symbol
	return meta, true, nil
}

func parseMintDecimals(data string) (int, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return 0, fmt.Errorf("decode mint data: %w", err)
	}
	if len(decoded) < mintAccountSize {
		return 0, fmt.Errorf("mint data too short: %d", len(decoded))
	}
	return int(decoded[mintDecimalsOffset]), nil
}

func parseMetaplexData(data string) (name, symbol string, ok bool) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", "", false
	}
	if len(decoded) <= metaplexStringsOffset || decoded[0] != metaplexKeyMetadataV1 {
		return "", "", false
	}

	offset := metaplexStringsOffset
	name, offset, ok = readBorshString(decoded, offset, maxNameLen)
	if !ok {
		return "", "", false
	}
	symbol, _, ok = readBorshString(decoded, offset, maxSymbolLen)
	if !ok {
		return "", "", false
	}
	return name, symbol, true
}

// readBorshString reads a u32-length-prefixed string and trims NUL padding.
func readBorshString(buf []byte, offset, maxLen int) (string, int, bool) {
	if offset+4 > len(buf) {
		return "", offset, false
	}
	n := int(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	if n > maxLen || offset+n > len(buf) {
		return "", offset, false
	}
	s := strings.TrimSpace(strings.TrimRight(string(buf[offset:offset+n]), "\x00"))
	return s, offset + n, true
}
