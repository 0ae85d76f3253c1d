package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddParamsToURL(t *testing.T) {
	params := map[string]string{"per_page": "100"}

	assert.Equal(t, "https://api.github.com/user/repos", addParamsToURL("https://api.github.com/user/repos", nil))
	assert.Equal(t, "https://api.github.com/user/repos?per_page=100", addParamsToURL("https://api.github.com/user/repos", &params))
	assert.Equal(t, "https://api.github.com/x?ref=main&per_page=100", addParamsToURL("https://api.github.com/x?ref=main", &params))
}

func TestRequestSetsGithubHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	headers := map[string]string{
		"Authorization": "Bearer abc",
		"Accept":        "application/vnd.github+json",
	}

	resp, err := Request(context.Background(), server.Client(), http.MethodGet, server.URL, &headers, nil, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
