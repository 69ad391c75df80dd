package raydium

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mint/ids", r.URL.Path)
		assert.Equal(t, "MintA,MintB,MintC", r.URL.Query().Get("mints"))

		w.Write([]byte(`{"id":"x","success":true,"data":[
			{"address":"MintA","symbol":"AAA","name":"Alpha","decimals":6,"programId":"Tok"},
			null,
			{"address":"MintC","symbol":"CCC","name":"Gamma","decimals":9}
		]}`))
	}))
	defer server.Close()

	got, err := NewClient(server.URL).FetchMetadata(context.Background(), []string{"MintA", "MintB", "MintC"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "AAA", got["MintA"].Symbol)
	assert.Equal(t, "Alpha", got["MintA"].Name)
	assert.Equal(t, 6, got["MintA"].Decimals)
	assert.Equal(t, 9, got["MintC"].Decimals)
	_, ok := got["MintB"]
	assert.False(t, ok)
}

func TestClient_FetchMetadata_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"msg":"bad mints"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).FetchMetadata(context.Background(), []string{"MintA"})
	assert.Error(t, err)
}
