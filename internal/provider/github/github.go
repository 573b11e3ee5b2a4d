// Package github implements the VCS provider interface over the GitHub
// REST API.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reviewflow/reviewflow/internal/provider"
)

const defaultBaseURL = "https://api.github.com"

// Client is a minimal GitHub REST client covering the calls the engine needs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// New creates a new GitHub client authenticated with a token.
func New(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
	}
}

// SetBaseURL overrides the API base URL. Intended for tests and GitHub
// Enterprise deployments.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// ListChangedFiles returns the paths changed by a pull request.
func (c *Client) ListChangedFiles(
	ctx context.Context,
	repoFullName string,
	number int,
) ([]string, error) {
	url := fmt.Sprintf("%s/repos/%s/pulls/%d/files?per_page=100", c.baseURL, repoFullName, number)

	var files []struct {
		Filename string `json:"filename"`
	}
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &files); err != nil {
		return nil, fmt.Errorf("list changed files for %s#%d: %w", repoFullName, number, err)
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Filename)
	}
	return paths, nil
}

// RequestReviewers asks GitHub to request reviews from the given usernames.
func (c *Client) RequestReviewers(
	ctx context.Context,
	repoFullName string,
	number int,
	usernames []string,
) error {
	if len(usernames) == 0 {
		return nil
	}

	url := fmt.Sprintf("%s/repos/%s/pulls/%d/requested_reviewers", c.baseURL, repoFullName, number)
	body := map[string][]string{"reviewers": usernames}

	if err := c.doJSON(ctx, http.MethodPost, url, body, nil); err != nil {
		return fmt.Errorf("request reviewers for %s#%d: %w", repoFullName, number, err)
	}
	return nil
}

// GetPullRequest fetches current pull request details.
func (c *Client) GetPullRequest(
	ctx context.Context,
	repoFullName string,
	number int,
) (*provider.PullRequest, error) {
	url := fmt.Sprintf("%s/repos/%s/pulls/%d", c.baseURL, repoFullName, number)

	var pr struct {
		Title  string `json:"title"`
		State  string `json:"state"`
		Merged bool   `json:"merged"`
		User   struct {
			Login string `json:"login"`
		} `json:"user"`
		Head struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
		Labels []struct {
			Name string `json:"name"`
		} `json:"labels"`
		CreatedAt time.Time `json:"created_at"`
	}
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &pr); err != nil {
		return nil, fmt.Errorf("get pull request %s#%d: %w", repoFullName, number, err)
	}

	labels := make([]string, 0, len(pr.Labels))
	for _, label := range pr.Labels {
		labels = append(labels, label.Name)
	}

	return &provider.PullRequest{
		RepoFullName: repoFullName,
		Number:       number,
		Title:        pr.Title,
		Author:       pr.User.Login,
		State:        pr.State,
		Merged:       pr.Merged,
		HeadBranch:   pr.Head.Ref,
		BaseBranch:   pr.Base.Ref,
		Labels:       labels,
		CreatedAt:    pr.CreatedAt,
	}, nil
}

// doJSON performs one authenticated JSON request. A non-nil out is decoded
// from the response body.
func (c *Client) doJSON(ctx context.Context, method, url string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("github api %s %s: status %d: %s", method, url, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
