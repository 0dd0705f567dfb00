package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-github/v75/github"
)

// FileState is the observed state of one repository path.
type FileState struct {
	Content []byte
	SHA     string
}

// API is the repository capability the publisher needs. Backed by the GitHub
// REST API in production and by fakes in tests.
type API interface {
	// EnsureRepo creates the repository if it does not exist yet.
	EnsureRepo(ctx context.Context, repo, description string) error
	// ReadFile returns the current state at path, or nil when absent.
	ReadFile(ctx context.Context, repo, path string) (*FileState, error)
	// CommitFile creates the file, or updates it when sha is non-empty, and
	// returns the resulting commit SHA. The sha argument makes the write
	// conditional: GitHub rejects it if the file changed underneath.
	CommitFile(ctx context.Context, repo, path string, content []byte, message, sha string) (string, error)
	// LatestCommit returns the most recent commit touching path.
	LatestCommit(ctx context.Context, repo, path string) (string, error)
	// EnablePages requests GitHub Pages for the repository.
	EnablePages(ctx context.Context, repo string) error
	// PagesURL returns the published Pages URL once the site is built,
	// or "" while it is still provisioning.
	PagesURL(ctx context.Context, repo string) (string, error)
}

// GitHub implements API against api.github.com for a single owner.
type GitHub struct {
	client *github.Client
	owner  string
}

// NewGitHub builds a GitHub-backed API using a personal access token.
func NewGitHub(token, owner string) *GitHub {
	return &GitHub{
		client: github.NewClient(nil).WithAuthToken(token),
		owner:  owner,
	}
}

func (g *GitHub) EnsureRepo(ctx context.Context, repo, description string) error {
	_, resp, err := g.client.Repositories.Get(ctx, g.owner, repo)
	if err == nil {
		return nil
	}
	if resp == nil || resp.StatusCode != 404 {
		return fmt.Errorf("check repo %s: %w", repo, err)
	}

	_, _, err = g.client.Repositories.Create(ctx, "", &github.Repository{
		Name:            github.Ptr(repo),
		Description:     github.Ptr(description),
		Private:         github.Ptr(false),
		AutoInit:        github.Ptr(true),
		LicenseTemplate: github.Ptr("mit"),
	})
	if err != nil {
		return fmt.Errorf("create repo %s: %w", repo, err)
	}
	return nil
}

func (g *GitHub) ReadFile(ctx context.Context, repo, path string) (*FileState, error) {
	file, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, repo, path, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s/%s: %w", repo, path, err)
	}
	if file == nil {
		return nil, fmt.Errorf("read %s/%s: path is a directory", repo, path)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", repo, path, err)
	}
	return &FileState{Content: []byte(content), SHA: file.GetSHA()}, nil
}

func (g *GitHub) CommitFile(ctx context.Context, repo, path string, content []byte, message, sha string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
	}

	var res *github.RepositoryContentResponse
	var err error
	if sha == "" {
		res, _, err = g.client.Repositories.CreateFile(ctx, g.owner, repo, path, opts)
	} else {
		opts.SHA = github.Ptr(sha)
		res, _, err = g.client.Repositories.UpdateFile(ctx, g.owner, repo, path, opts)
	}
	if err != nil {
		return "", fmt.Errorf("commit %s/%s: %w", repo, path, err)
	}
	return res.Commit.GetSHA(), nil
}

func (g *GitHub) LatestCommit(ctx context.Context, repo, path string) (string, error) {
	commits, _, err := g.client.Repositories.ListCommits(ctx, g.owner, repo, &github.CommitsListOptions{
		Path:        path,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("list commits %s/%s: %w", repo, path, err)
	}
	if len(commits) == 0 {
		return "", errors.New("no commits for path")
	}
	return commits[0].GetSHA(), nil
}

func (g *GitHub) EnablePages(ctx context.Context, repo string) error {
	_, resp, err := g.client.Repositories.EnablePages(ctx, g.owner, repo, &github.Pages{
		Source: &github.PagesSource{
			Branch: github.Ptr("main"),
			Path:   github.Ptr("/"),
		},
	})
	if err != nil {
		// 409 means Pages is already enabled for the repository.
		if resp != nil && resp.StatusCode == 409 {
			return nil
		}
		return fmt.Errorf("enable pages %s: %w", repo, err)
	}
	return nil
}

func (g *GitHub) PagesURL(ctx context.Context, repo string) (string, error) {
	info, resp, err := g.client.Repositories.GetPagesInfo(ctx, g.owner, repo)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return "", nil
		}
		return "", fmt.Errorf("pages info %s: %w", repo, err)
	}
	if info.GetStatus() == "building" {
		return "", nil
	}
	return info.GetHTMLURL(), nil
}
