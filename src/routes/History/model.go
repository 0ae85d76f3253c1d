package history

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"sitewise-backend/events"
	"sitewise-backend/github"
	"sitewise-backend/src/middleware"
	"sitewise-backend/versions"
)

var errNoToken = errors.New("no GitHub token")

// StoreResolver picks the version store serving a request.
type StoreResolver func(r *http.Request) (versions.Store, error)

func LocalStore(store versions.Store) StoreResolver {
	return func(*http.Request) (versions.Store, error) {
		return store, nil
	}
}

// GithubStore commits versions to the configured site repository with the
// session token, falling back to the server token.
func GithubStore(client *github.Client, serverToken, owner, repo, branch string, now versions.Clock) StoreResolver {
	return func(r *http.Request) (versions.Store, error) {
		token := middleware.ResolveToken(r, "", serverToken)
		if len(token) == 0 {
			return nil, errNoToken
		}
		return versions.NewGithubStore(client.WithToken(token), owner, repo, branch, now), nil
	}
}

type HistoryHandler struct {
	Resolve StoreResolver
	Events  events.Publisher
}

type ListResponse struct {
	Slug     string             `json:"slug"`
	Versions []versions.Summary `json:"versions"`
}

type SaveRequest struct {
	Blocks json.RawMessage `json:"blocks" validate:"jsonvalue"`
}

type SaveResponse struct {
	Ok      bool  `json:"ok"`
	Version int64 `json:"version"`
}

// VersionID accepts the id as a JSON number or a numeric string.
type VersionID int64

func (v *VersionID) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*v = 0
		return nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return errors.New("versionId must be a number")
	}

	*v = VersionID(id)
	return nil
}

type RollbackRequest struct {
	VersionID VersionID `json:"versionId" validate:"required,gt=0"`
}

type RollbackResponse struct {
	Ok           bool  `json:"ok"`
	Version      int64 `json:"version"`
	RestoredFrom int64 `json:"restoredFrom"`
}
