// Package github implements the tracker client against the GitHub REST API.
//
// GitHub has no first-class issue identifier, so this client addresses issues
// as "owner/repo#number" throughout; the repository stands in for the owning
// team.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"openswe.dev/manager/internal/model"
	"openswe.dev/manager/internal/tracker"
)

// DefaultAPIURL is the GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

// Client is a GitHub REST API client implementing tracker.Client.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used in tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// NewClient builds a client authenticated with a GitHub token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParseIssueRef splits an "owner/repo#number" reference.
func ParseIssueRef(ref string) (owner, repo string, number int, err error) {
	repoPart, numPart, found := strings.Cut(ref, "#")
	if !found {
		return "", "", 0, fmt.Errorf("invalid github issue reference %q", ref)
	}
	owner, repo, found = strings.Cut(repoPart, "/")
	if !found || owner == "" || repo == "" {
		return "", "", 0, fmt.Errorf("invalid github issue reference %q", ref)
	}
	number, err = strconv.Atoi(numPart)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid github issue number in %q", ref)
	}
	return owner, repo, number, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("github %s %s: %w", method, path, tracker.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("github rejected credential (status %d): %w", resp.StatusCode, tracker.ErrAuth)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("github api status %d: %s", resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

type ghUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email,omitempty"`
}

type ghLabel struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type ghIssue struct {
	ID        int64     `json:"id"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	Labels    []ghLabel `json:"labels"`
	Assignee  *ghUser   `json:"assignee"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ghComment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	User      ghUser    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Client) GetIssue(ctx context.Context, idOrIdentifier string) (*model.Issue, error) {
	owner, repo, number, err := ParseIssueRef(idOrIdentifier)
	if err != nil {
		return nil, err
	}

	var gh ghIssue
	path := fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &gh); err != nil {
		return nil, err
	}

	fullName := owner + "/" + repo
	issue := &model.Issue{
		ID:          idOrIdentifier,
		Identifier:  fmt.Sprintf("%s#%d", fullName, gh.Number),
		Title:       gh.Title,
		Description: gh.Body,
		State:       model.IssueState{ID: gh.State, Name: gh.State, Type: gh.State},
		Team:        model.Team{ID: fullName, Name: fullName, Key: owner},
		URL:         gh.HTMLURL,
		CreatedAt:   gh.CreatedAt,
		UpdatedAt:   gh.UpdatedAt,
	}
	if gh.Assignee != nil {
		issue.Assignee = &model.User{
			ID:    strconv.FormatInt(gh.Assignee.ID, 10),
			Name:  gh.Assignee.Login,
			Email: gh.Assignee.Email,
		}
	}
	for _, l := range gh.Labels {
		issue.Labels = append(issue.Labels, model.Label{
			ID:    strconv.FormatInt(l.ID, 10),
			Name:  l.Name,
			Color: l.Color,
		})
	}
	return issue, nil
}

func (c *Client) GetWorkspace(ctx context.Context) (*model.Workspace, error) {
	var user struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return nil, fmt.Errorf("fetching github user: %w", err)
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}
	return &model.Workspace{
		ID:     strconv.FormatInt(user.ID, 10),
		Name:   name,
		URLKey: user.Login,
	}, nil
}

func (c *Client) GetTeam(ctx context.Context, idOrKey string) (*model.Team, error) {
	var repo struct {
		FullName string `json:"full_name"`
		Owner    ghUser `json:"owner"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/repos/"+idOrKey, nil, &repo); err != nil {
		return nil, fmt.Errorf("fetching github repo %s: %w", idOrKey, err)
	}
	return &model.Team{ID: repo.FullName, Name: repo.FullName, Key: repo.Owner.Login}, nil
}

func (c *Client) CreateComment(ctx context.Context, issueID, body string) (*model.Comment, error) {
	owner, repo, number, err := ParseIssueRef(issueID)
	if err != nil {
		return nil, err
	}

	var gh ghComment
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	if err := c.doRequest(ctx, http.MethodPost, path, map[string]string{"body": body}, &gh); err != nil {
		return nil, fmt.Errorf("creating github comment: %w", err)
	}

	return &model.Comment{
		ID:   strconv.FormatInt(gh.ID, 10),
		Body: gh.Body,
		User: model.User{
			ID:    strconv.FormatInt(gh.User.ID, 10),
			Name:  gh.User.Login,
			Email: gh.User.Email,
		},
		CreatedAt: gh.CreatedAt,
	}, nil
}

func (c *Client) GetComments(ctx context.Context, issueID string) ([]model.Comment, error) {
	owner, repo, number, err := ParseIssueRef(issueID)
	if err != nil {
		return nil, err
	}

	var ghComments []ghComment
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &ghComments); err != nil {
		return nil, fmt.Errorf("fetching github comments: %w", err)
	}

	comments := make([]model.Comment, 0, len(ghComments))
	for _, gh := range ghComments {
		comments = append(comments, model.Comment{
			ID:   strconv.FormatInt(gh.ID, 10),
			Body: gh.Body,
			User: model.User{
				ID:    strconv.FormatInt(gh.User.ID, 10),
				Name:  gh.User.Login,
				Email: gh.User.Email,
			},
			CreatedAt: gh.CreatedAt,
		})
	}
	return comments, nil
}

func (c *Client) UpdateIssueState(ctx context.Context, issueID, state string) error {
	owner, repo, number, err := ParseIssueRef(issueID)
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number)
	if err := c.doRequest(ctx, http.MethodPatch, path, map[string]string{"state": state}, nil); err != nil {
		return fmt.Errorf("updating github issue state: %w", err)
	}
	return nil
}
