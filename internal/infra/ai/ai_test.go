package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/maos-da-obra/internal/apperr"
)

func TestGenerateWithoutKey(t *testing.T) {
	c, err := New(context.Background(), "", "")
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), Prompt{Text: "oi"})
	var ce *apperr.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "GEMINI_API_KEY", ce.Key)
}

func TestGenerate(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"  Comece pela fundação.  "}]}}]}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), "key", "gemini-test", WithBaseURL(srv.URL, srv.Client()))
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), Prompt{System: "Você é um mestre de obras.", Text: "Por onde começo?", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, "Comece pela fundação.", out)
	assert.True(t, strings.HasSuffix(gotPath, "models/gemini-test:generateContent"), gotPath)
	assert.Contains(t, gotBody, "systemInstruction")
}
