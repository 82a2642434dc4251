package github

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github-repo-analyzer/internal/common"

	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupGraphQLSource GraphQL 与 REST 共用一个测试服务器
func setupGraphQLSource(t *testing.T, graphqlHandler http.HandlerFunc, contributors int, readme http.HandlerFunc) *GraphQLSource {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", graphqlHandler)
	mux.HandleFunc("/repos/octo/cat/contributors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, contributorsJSON(contributors))
	})
	mux.HandleFunc("/repos/octo/cat/readme", readme)
	server, rest := setupMockGitHubServer(t, mux)

	return &GraphQLSource{
		client: githubv4.NewEnterpriseClient(server.URL+"/graphql", server.Client()),
		rest:   rest,
		logger: discardLogger(),
	}
}

func TestGraphQLSource_FetchMetrics(t *testing.T) {
	source := setupGraphQLSource(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "octo", body.Variables["owner"])
		assert.Equal(t, "cat", body.Variables["name"])
		assert.Contains(t, body.Query, "stargazerCount")

		writeJSON(w, http.StatusOK, `{"data": {"repository": {
			"stargazerCount": 12000,
			"forkCount": 2000,
			"hasWikiEnabled": true,
			"description": "A test repository",
			"createdAt": "2021-06-01T00:00:00Z",
			"updatedAt": "2024-05-30T00:00:00Z",
			"licenseInfo": {"name": "MIT License"},
			"primaryLanguage": {"name": "Go"},
			"issues": {"totalCount": 30},
			"pullRequests": {"totalCount": 20},
			"defaultBranchRef": {"target": {"authoredDate": "2024-05-29T10:00:00Z"}}
		}}}`)
	}, 120, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, readmeJSON("# cat"))
	})

	m, err := source.FetchMetrics(context.Background(), testRef)
	require.NoError(t, err)

	assert.Equal(t, 12000, m.Stars)
	assert.Equal(t, 2000, m.Forks)
	assert.Equal(t, 50, m.OpenIssues)
	assert.Equal(t, 120, m.Contributors)
	assert.Equal(t, time.Date(2024, 5, 29, 10, 0, 0, 0, time.UTC), m.LastCommitDate.UTC())
	assert.True(t, m.HasReadme)
	assert.True(t, m.HasLicense)
	assert.True(t, m.HasWiki)
	assert.True(t, m.HasDescription)
	assert.Equal(t, "Go", m.Language)
}

func TestGraphQLSource_FetchMetrics_EmptyRepository(t *testing.T) {
	source := setupGraphQLSource(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data": {"repository": {
			"stargazerCount": 0,
			"forkCount": 0,
			"hasWikiEnabled": false,
			"description": null,
			"createdAt": "2024-01-01T00:00:00Z",
			"updatedAt": "2024-01-02T00:00:00Z",
			"licenseInfo": null,
			"primaryLanguage": null,
			"issues": {"totalCount": 0},
			"pullRequests": {"totalCount": 0},
			"defaultBranchRef": null
		}}}`)
	}, 0, notFoundReadme)

	m, err := source.FetchMetrics(context.Background(), testRef)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), m.LastCommitDate.UTC())
	assert.False(t, m.HasReadme)
	assert.False(t, m.HasLicense)
	assert.False(t, m.HasDescription)
	assert.Equal(t, "Unknown", m.Language)
}

func TestGraphQLSource_FetchMetrics_NotFound(t *testing.T) {
	var calls atomic.Int32
	source := setupGraphQLSource(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, `{"data": {"repository": null}, "errors": [{"message": "Could not resolve to a Repository with the name 'octo/cat'."}]}`)
	}, 0, notFoundReadme)

	_, err := source.FetchMetrics(context.Background(), testRef)
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.ErrCodeNotFound))
	assert.Equal(t, int32(1), calls.Load())
}

func notFoundReadme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, `{"message": "Not Found"}`)
}

func TestGraphQLSource_FetchMetrics_ReadmeVariants(t *testing.T) {
	minimalRepo := `{"data": {"repository": {
		"stargazerCount": 10,
		"forkCount": 1,
		"hasWikiEnabled": false,
		"description": "cat",
		"createdAt": "2024-01-01T00:00:00Z",
		"updatedAt": "2024-01-02T00:00:00Z",
		"licenseInfo": null,
		"primaryLanguage": null,
		"issues": {"totalCount": 0},
		"pullRequests": {"totalCount": 0},
		"defaultBranchRef": null
	}}}`

	tests := []struct {
		name     string
		readme   http.HandlerFunc
		expected bool
	}{
		{
			name: "README.rst 也算有 README",
			readme: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `{"type": "file", "name": "README.rst", "path": "README.rst", "encoding": "base64", "content": "Y2F0"}`)
			},
			expected: true,
		},
		{
			name: "docs/README.md 也算有 README",
			readme: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, `{"type": "file", "name": "README.md", "path": "docs/README.md", "encoding": "base64", "content": "Y2F0"}`)
			},
			expected: true,
		},
		{
			name:     "没有 README",
			readme:   notFoundReadme,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := setupGraphQLSource(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, minimalRepo)
			}, 1, tt.readme)

			m, err := source.FetchMetrics(context.Background(), testRef)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.HasReadme)
		})
	}
}

func TestGraphQLSource_FetchMetrics_ReadmeError(t *testing.T) {
	source := setupGraphQLSource(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"data": {"repository": {"stargazerCount": 1}}}`)
	}, 1, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, `{"message": "Forbidden"}`)
	})

	_, err := source.FetchMetrics(context.Background(), testRef)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get readme")
}
