package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivabalan-sv01/tds-project/internal/models"
)

// ghErr builds a GitHub API error with the given status, shaped the way
// go-github returns them.
func ghErr(status int) error {
	return &github.ErrorResponse{
		Response: &http.Response{
			StatusCode: status,
			Request:    &http.Request{Method: "PUT", URL: &url.URL{Path: "/"}},
		},
		Message: http.StatusText(status),
	}
}

type fakeFile struct {
	content []byte
	sha     string
}

// fakeAPI is an in-memory stand-in for the GitHub Contents API with
// scriptable failures.
type fakeAPI struct {
	mu     sync.Mutex
	repos  map[string]map[string]*fakeFile
	seq    int
	latest map[string]string // repo/path -> commit sha

	ensureErr  error
	readErr    error
	commitErrs []error // popped once per CommitFile call
	pagesErr   error
	pagesURL   string

	commitCalls int
	pagesCalls  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{repos: map[string]map[string]*fakeFile{}, latest: map[string]string{}}
}

func (f *fakeAPI) seed(repo, path, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.repos[repo] == nil {
		f.repos[repo] = map[string]*fakeFile{}
	}
	f.seq++
	f.repos[repo][path] = &fakeFile{content: []byte(content), sha: fmt.Sprintf("blob-%d", f.seq)}
	f.latest[repo+"/"+path] = fmt.Sprintf("commit-%d", f.seq)
}

func (f *fakeAPI) EnsureRepo(_ context.Context, repo, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ensureErr != nil {
		return f.ensureErr
	}
	if f.repos[repo] == nil {
		f.repos[repo] = map[string]*fakeFile{}
	}
	return nil
}

func (f *fakeAPI) ReadFile(_ context.Context, repo, path string) (*FileState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	file, ok := f.repos[repo][path]
	if !ok {
		return nil, nil
	}
	return &FileState{Content: append([]byte(nil), file.content...), SHA: file.sha}, nil
}

func (f *fakeAPI) CommitFile(_ context.Context, repo, path string, content []byte, _, sha string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitCalls++
	if len(f.commitErrs) > 0 {
		err := f.commitErrs[0]
		f.commitErrs = f.commitErrs[1:]
		if err != nil {
			return "", err
		}
	}
	existing := f.repos[repo][path]
	if existing != nil && sha != existing.sha {
		return "", ghErr(409)
	}
	if existing == nil && sha != "" {
		return "", ghErr(422)
	}
	f.seq++
	if f.repos[repo] == nil {
		f.repos[repo] = map[string]*fakeFile{}
	}
	f.repos[repo][path] = &fakeFile{content: append([]byte(nil), content...), sha: fmt.Sprintf("blob-%d", f.seq)}
	commit := fmt.Sprintf("commit-%d", f.seq)
	f.latest[repo+"/"+path] = commit
	return commit, nil
}

func (f *fakeAPI) LatestCommit(_ context.Context, repo, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	commit, ok := f.latest[repo+"/"+path]
	if !ok {
		return "", errors.New("no commits for path")
	}
	return commit, nil
}

func (f *fakeAPI) EnablePages(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pagesCalls++
	return f.pagesErr
}

func (f *fakeAPI) PagesURL(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pagesURL, nil
}

var testResult = models.GenerationResult{
	Artifact:  models.Artifact{HTML: "<html><body>app</body></html>", Readme: "# App"},
	ModelUsed: "primary",
}

func TestPublish_NewArtifact(t *testing.T) {
	api := newFakeAPI()
	p := New(api, Options{})

	rec, existed, err := p.Publish(context.Background(), "key-1", testResult, "demo-app")
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, "demo-app", rec.Repo)
	assert.Equal(t, IndexPath, rec.Path)
	assert.NotEmpty(t, rec.Commit)

	index, err := api.ReadFile(context.Background(), "demo-app", IndexPath)
	require.NoError(t, err)
	require.NotNil(t, index)
	first, _, _ := strings.Cut(string(index.Content), "\n")
	assert.Equal(t, keyMarkerPrefix+"key-1"+keyMarkerSuffix, first)
	assert.Contains(t, string(index.Content), "<body>app</body>")

	readme, err := api.ReadFile(context.Background(), "demo-app", ReadmePath)
	require.NoError(t, err)
	require.NotNil(t, readme)
	assert.Equal(t, "# App", string(readme.Content))
}

func TestPublish_ExistingArtifactIsNoOp(t *testing.T) {
	api := newFakeAPI()
	api.seed("demo-app", IndexPath, keyMarkerPrefix+"key-1"+keyMarkerSuffix+"\n<html></html>")
	wantCommit := api.latest["demo-app/"+IndexPath]

	p := New(api, Options{})

	rec, existed, err := p.Publish(context.Background(), "key-1", testResult, "demo-app")
	require.NoError(t, err)
	assert.True(t, existed, "equivalent artifact short-circuits to a no-op")
	assert.Equal(t, wantCommit, rec.Commit)
	assert.Equal(t, 0, api.commitCalls, "a lost ledger costs a check, never a duplicate commit")
}

func TestPublish_DifferentKeyOverwrites(t *testing.T) {
	api := newFakeAPI()
	api.seed("demo-app", IndexPath, keyMarkerPrefix+"round-1"+keyMarkerSuffix+"\n<html>v1</html>")
	api.seed("demo-app", ReadmePath, "# v1")

	p := New(api, Options{})

	rec, existed, err := p.Publish(context.Background(), "round-2", testResult, "demo-app")
	require.NoError(t, err)
	assert.False(t, existed)
	assert.NotEmpty(t, rec.Commit)

	index, _ := api.ReadFile(context.Background(), "demo-app", IndexPath)
	assert.Contains(t, string(index.Content), "round-2")
}

func TestPublish_RetriesConflicts(t *testing.T) {
	api := newFakeAPI()
	api.commitErrs = []error{ghErr(409)}

	p := New(api, Options{Attempts: 3})

	_, _, err := p.Publish(context.Background(), "k", testResult, "demo-app")
	require.NoError(t, err, "a transient conflict is retried, not surfaced")
	assert.GreaterOrEqual(t, api.commitCalls, 2)
}

func TestPublish_AuthFailureIsFatal(t *testing.T) {
	api := newFakeAPI()
	api.commitErrs = []error{ghErr(401), ghErr(401), ghErr(401)}

	p := New(api, Options{Attempts: 3})

	_, _, err := p.Publish(context.Background(), "k", testResult, "demo-app")
	require.Error(t, err)
	assert.Equal(t, 1, api.commitCalls, "auth failures are never retried")

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Retryable())
}

func TestPublish_PagesBestEffort(t *testing.T) {
	api := newFakeAPI()
	api.pagesErr = ghErr(500)

	p := New(api, Options{EnablePages: true, PagesWait: 50 * time.Millisecond})

	rec, _, err := p.Publish(context.Background(), "k", testResult, "demo-app")
	require.NoError(t, err, "a Pages failure never fails the publish")
	assert.Empty(t, rec.PagesURL)
	assert.Equal(t, 1, api.pagesCalls)
}

func TestPublish_PagesURLReturned(t *testing.T) {
	api := newFakeAPI()
	api.pagesURL = "https://octocat.github.io/demo-app/"

	p := New(api, Options{EnablePages: true, PagesWait: 50 * time.Millisecond})

	rec, _, err := p.Publish(context.Background(), "k", testResult, "demo-app")
	require.NoError(t, err)
	assert.Equal(t, "https://octocat.github.io/demo-app/", rec.PagesURL)
}

func TestPriorReadme(t *testing.T) {
	api := newFakeAPI()
	p := New(api, Options{})

	got, err := p.PriorReadme(context.Background(), "demo-app")
	require.NoError(t, err)
	assert.Empty(t, got)

	api.seed("demo-app", ReadmePath, "# Round 1 docs")
	got, err = p.PriorReadme(context.Background(), "demo-app")
	require.NoError(t, err)
	assert.Equal(t, "# Round 1 docs", got)
}

func TestExtractBuildKey(t *testing.T) {
	assert.Equal(t, "abc", extractBuildKey([]byte(keyMarkerPrefix+"abc"+keyMarkerSuffix+"\n<html></html>")))
	assert.Empty(t, extractBuildKey([]byte("<html>no marker</html>")))
	assert.Empty(t, extractBuildKey(nil))
}

func TestClassify(t *testing.T) {
	cases := map[string]struct {
		err       error
		transient bool
	}{
		"conflict":     {ghErr(409), true},
		"sha mismatch": {ghErr(422), true},
		"server error": {ghErr(502), true},
		"unauthorized": {ghErr(401), false},
		"forbidden":    {ghErr(403), false},
		"not found":    {ghErr(404), false},
		"network":      {errors.New("dial tcp: i/o timeout"), true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var pe *Error
			require.ErrorAs(t, classify("op", tc.err), &pe)
			assert.Equal(t, tc.transient, pe.Transient)
		})
	}
}
