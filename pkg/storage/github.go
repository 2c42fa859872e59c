package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/go-github/v60/github"

	"github.com/STS-Engineer/Skill-Matrix/pkg/config"
)

const defaultRawBaseURL = "https://raw.githubusercontent.com"

// GitHubStore keeps media as files in a GitHub repository and serves them
// through raw.githubusercontent.com.
type GitHubStore struct {
	client  *github.Client
	owner   string
	repo    string
	branch  string
	rawBase string
}

// NewGitHubStore builds a store for the configured repository. httpClient may
// be nil.
func NewGitHubStore(cfg config.GitHubConfig, httpClient *http.Client) (*GitHubStore, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github media store requires GITHUB_REPO as owner/repo")
	}
	client := github.NewClient(httpClient)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github api url: %w", err)
		}
		client.BaseURL = base
	}
	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}
	return &GitHubStore{
		client:  client,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		branch:  branch,
		rawBase: defaultRawBaseURL,
	}, nil
}

// Exists returns the blob SHA of the file at objectPath.
func (s *GitHubStore) Exists(ctx context.Context, objectPath string) (string, error) {
	p, err := CleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}
	file, _, resp, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, p, &github.RepositoryContentGetOptions{Ref: s.branch})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("lookup %s: %w", p, err)
	}
	if file == nil {
		return "", fmt.Errorf("lookup %s: path is a directory", p)
	}
	return file.GetSHA(), nil
}

// Put commits data to objectPath. A non-empty version must match the current
// blob SHA.
func (s *GitHubStore) Put(ctx context.Context, objectPath string, data []byte, version string) (string, error) {
	p, err := CleanObjectPath(objectPath)
	if err != nil {
		return "", err
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.String("Upload " + path.Base(p)),
		Content: data,
		Branch:  github.String(s.branch),
	}

	var resp *github.Response
	if version != "" {
		opts.SHA = github.String(version)
		_, resp, err = s.client.Repositories.UpdateFile(ctx, s.owner, s.repo, p, opts)
	} else {
		_, resp, err = s.client.Repositories.CreateFile(ctx, s.owner, s.repo, p, opts)
	}
	if err != nil {
		if isConflict(resp) {
			return "", fmt.Errorf("%w: %s", ErrVersionConflict, p)
		}
		return "", fmt.Errorf("upload %s: %w", p, err)
	}
	return s.URL(p), nil
}

// Delete removes the file if present.
func (s *GitHubStore) Delete(ctx context.Context, objectPath string) error {
	p, err := CleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	sha, err := s.Exists(ctx, p)
	if err != nil {
		return err
	}
	if sha == "" {
		return nil
	}
	_, resp, err := s.client.Repositories.DeleteFile(ctx, s.owner, s.repo, p, &github.RepositoryContentFileOptions{
		Message: github.String("Remove " + path.Base(p)),
		SHA:     github.String(sha),
		Branch:  github.String(s.branch),
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil
		}
		if isConflict(resp) {
			return fmt.Errorf("%w: %s", ErrVersionConflict, p)
		}
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

// URL returns the raw content URL for objectPath.
func (s *GitHubStore) URL(objectPath string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", s.rawBase, s.owner, s.repo, s.branch, strings.TrimPrefix(objectPath, "/"))
}

func isConflict(resp *github.Response) bool {
	if resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity
}

var _ ObjectStore = (*GitHubStore)(nil)
