package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"solana-wallet-lab/internal/domain"
)

type stubMetadata struct {
	result map[string]domain.TokenMetadata
	err    error
}

func (s *stubMetadata) FetchMetadata(context.Context, []string) (map[string]domain.TokenMetadata, error) {
	return s.result, s.err
}

type stubResolver struct {
	known map[string]domain.TokenMetadata
	fail  map[string]bool
	calls []string
}

func (s *stubResolver) Resolve(_ context.Context, mint string) (domain.TokenMetadata, bool, error) {
	s.calls = append(s.calls, mint)
	if s.fail[mint] {
		return domain.TokenMetadata{}, false, errors.New("rpc down")
	}
	meta, ok := s.known[mint]
	return meta, ok, nil
}

func TestFallbackMetadataSource_FillsGaps(t *testing.T) {
	primary := &stubMetadata{result: map[string]domain.TokenMetadata{
		"A": {Address: "A", Symbol: "AAA", Name: "Alpha", Decimals: 6},
	}}
	resolver := &stubResolver{
		known: map[string]domain.TokenMetadata{"B": {Address: "B", Symbol: "BBB", Name: "Beta", Decimals: 9}},
		fail:  map[string]bool{"C": true},
	}

	src := NewFallbackMetadataSource(primary, resolver, zap.NewNop())
	got, err := src.FetchMetadata(context.Background(), []string{"A", "B", "C", "D"})
	require.NoError(t, err)

	assert.Len(t, got, 2)
	assert.Equal(t, "AAA", got["A"].Symbol)
	assert.Equal(t, "BBB", got["B"].Symbol)
	assert.Equal(t, []string{"B", "C", "D"}, resolver.calls, "only unresolved mints go on-chain")
}

func TestFallbackMetadataSource_PrimaryFailureFailsBatch(t *testing.T) {
	resolver := &stubResolver{}
	src := NewFallbackMetadataSource(&stubMetadata{err: errors.New("503")}, resolver, zap.NewNop())

	_, err := src.FetchMetadata(context.Background(), []string{"A"})
	assert.Error(t, err)
	assert.Empty(t, resolver.calls)
}
