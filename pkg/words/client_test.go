package words

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hits *int32) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/word", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		word := "cat"
		if r.URL.Query().Get("lang") == "pt" {
			word = "gato"
		}
		fmt.Fprintf(w, `{"id":7,"word":%q}`, word)
	})
	mux.HandleFunc("/v1/word/42", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		fmt.Fprint(w, `{"id":42,"word":"house"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRandomWord(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	client, err := NewClient(NewClientOptions{BaseURL: srv.URL + "/v1/", RequestsPerSecond: 100})
	require.NoError(t, err)

	word, err := client.RandomWord(context.Background(), LanguagePortuguese)
	require.NoError(t, err)
	assert.Equal(t, Word{ID: 7, Word: "gato"}, word)

	word, err = client.WordByID(context.Background(), 42, LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, "house", word.Word)
}

func TestRandomWordErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	client, err := NewClient(NewClientOptions{BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	_, err = client.RandomWord(context.Background(), LanguageEnglish)
	assert.ErrorContains(t, err, "503")
}

func TestRequestsAreRateLimited(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	client, err := NewClient(NewClientOptions{BaseURL: srv.URL + "/v1/", RequestsPerSecond: 20})
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 5; i++ {
		_, err := client.RandomWord(context.Background(), LanguageEnglish)
		require.NoError(t, err)
	}
	// one burst token, then one request every 50ms
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits))
}

func TestLanguageFromLocale(t *testing.T) {
	tests := []struct {
		locale string
		want   Language
	}{
		{locale: "en_US", want: LanguageEnglish},
		{locale: "en_GB", want: LanguageEnglish},
		{locale: "pt_PT", want: LanguagePortuguese},
		{locale: "pt_BR", want: LanguagePortuguese},
		{locale: "fr_FR", want: FallbackLanguage},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.want, LanguageFromLocale(tt.locale))
		})
	}
	assert.Equal(t, LanguagePortuguese, ParseLanguage("pt"))
	assert.Equal(t, FallbackLanguage, ParseLanguage("xx"))
}
