// Package linear implements the tracker client against the Linear GraphQL
// API.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"openswe.dev/manager/internal/model"
	"openswe.dev/manager/internal/tracker"
)

// DefaultAPIURL is the Linear GraphQL endpoint.
const DefaultAPIURL = "https://api.linear.app/graphql"

// Client is a Linear GraphQL API client implementing tracker.Client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used in tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a client authenticated with a Linear API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
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

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// do executes one GraphQL request and unmarshals the data payload into out.
func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("linear rejected credential (status %d): %w", resp.StatusCode, tracker.ErrAuth)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("linear api status %d: %s", resp.StatusCode, respBody)
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", gqlResp.Errors[0].Message)
	}
	if out != nil {
		if err := json.Unmarshal(gqlResp.Data, out); err != nil {
			return fmt.Errorf("unmarshal data: %w", err)
		}
	}
	return nil
}

type issuePayload struct {
	ID          string  `json:"id"`
	Identifier  string  `json:"identifier"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	URL         string  `json:"url"`
	State       *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"state"`
	Team *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Key  string `json:"key"`
	} `json:"team"`
	Assignee *struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"assignee"`
	Labels struct {
		Nodes []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Color string `json:"color"`
		} `json:"nodes"`
	} `json:"labels"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *issuePayload) toModel() (*model.Issue, error) {
	// A null state or team makes the issue unusable downstream: comments and
	// writes are scoped by team.
	if p.State == nil {
		return nil, fmt.Errorf("linear issue %s has no state: %w", p.Identifier, tracker.ErrNotFound)
	}
	if p.Team == nil {
		return nil, fmt.Errorf("linear issue %s has no team: %w", p.Identifier, tracker.ErrNotFound)
	}

	issue := &model.Issue{
		ID:         p.ID,
		Identifier: p.Identifier,
		Title:      p.Title,
		URL:        p.URL,
		State:      model.IssueState{ID: p.State.ID, Name: p.State.Name, Type: p.State.Type},
		Team:       model.Team{ID: p.Team.ID, Name: p.Team.Name, Key: p.Team.Key},
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.Description != nil {
		issue.Description = *p.Description
	}
	if p.Assignee != nil {
		issue.Assignee = &model.User{ID: p.Assignee.ID, Name: p.Assignee.Name, Email: p.Assignee.Email}
	}
	for _, l := range p.Labels.Nodes {
		issue.Labels = append(issue.Labels, model.Label{ID: l.ID, Name: l.Name, Color: l.Color})
	}
	return issue, nil
}

// GetIssue fetches an issue by id, falling back to an identifier search when
// the direct lookup finds nothing (the API only resolves UUIDs and
// identifiers of the credential's default team directly).
func (c *Client) GetIssue(ctx context.Context, idOrIdentifier string) (*model.Issue, error) {
	var result struct {
		Issue *issuePayload `json:"issue"`
	}
	err := c.do(ctx, queryIssue, map[string]any{"id": idOrIdentifier}, &result)
	if err == nil && result.Issue != nil {
		return result.Issue.toModel()
	}

	var search struct {
		IssueSearch struct {
			Nodes []issuePayload `json:"nodes"`
		} `json:"issueSearch"`
	}
	if searchErr := c.do(ctx, queryIssueSearch, map[string]any{"query": idOrIdentifier}, &search); searchErr != nil {
		if err != nil {
			return nil, fmt.Errorf("fetching linear issue %s: %w", idOrIdentifier, err)
		}
		return nil, fmt.Errorf("searching linear issue %s: %w", idOrIdentifier, searchErr)
	}
	for i := range search.IssueSearch.Nodes {
		if search.IssueSearch.Nodes[i].Identifier == idOrIdentifier {
			return search.IssueSearch.Nodes[i].toModel()
		}
	}

	return nil, fmt.Errorf("linear issue %s: %w", idOrIdentifier, tracker.ErrNotFound)
}

func (c *Client) GetWorkspace(ctx context.Context) (*model.Workspace, error) {
	var result struct {
		Viewer struct {
			Organization *struct {
				ID     string `json:"id"`
				Name   string `json:"name"`
				URLKey string `json:"urlKey"`
			} `json:"organization"`
		} `json:"viewer"`
	}
	if err := c.do(ctx, queryWorkspace, nil, &result); err != nil {
		return nil, fmt.Errorf("fetching linear workspace: %w", err)
	}
	org := result.Viewer.Organization
	if org == nil {
		return nil, fmt.Errorf("linear workspace: %w", tracker.ErrNotFound)
	}
	return &model.Workspace{ID: org.ID, Name: org.Name, URLKey: org.URLKey}, nil
}

func (c *Client) GetTeam(ctx context.Context, idOrKey string) (*model.Team, error) {
	var result struct {
		Teams struct {
			Nodes []model.Team `json:"nodes"`
		} `json:"teams"`
	}
	if err := c.do(ctx, queryTeams, nil, &result); err != nil {
		return nil, fmt.Errorf("fetching linear teams: %w", err)
	}
	for _, t := range result.Teams.Nodes {
		if t.ID == idOrKey || t.Key == idOrKey {
			team := t
			return &team, nil
		}
	}
	return nil, fmt.Errorf("linear team %s: %w", idOrKey, tracker.ErrNotFound)
}

func (c *Client) CreateComment(ctx context.Context, issueID, body string) (*model.Comment, error) {
	var result struct {
		CommentCreate struct {
			Success bool `json:"success"`
			Comment *struct {
				ID        string    `json:"id"`
				Body      string    `json:"body"`
				CreatedAt time.Time `json:"createdAt"`
				User      *struct {
					ID    string `json:"id"`
					Name  string `json:"name"`
					Email string `json:"email"`
				} `json:"user"`
			} `json:"comment"`
		} `json:"commentCreate"`
	}
	if err := c.do(ctx, mutationCommentCreate, map[string]any{"issueId": issueID, "body": body}, &result); err != nil {
		return nil, fmt.Errorf("creating linear comment: %w", err)
	}
	if !result.CommentCreate.Success || result.CommentCreate.Comment == nil {
		return nil, fmt.Errorf("creating linear comment on %s: mutation unsuccessful", issueID)
	}

	c2 := result.CommentCreate.Comment
	comment := &model.Comment{ID: c2.ID, Body: c2.Body, CreatedAt: c2.CreatedAt}
	if c2.User != nil {
		comment.User = model.User{ID: c2.User.ID, Name: c2.User.Name, Email: c2.User.Email}
	}
	return comment, nil
}

func (c *Client) GetComments(ctx context.Context, issueID string) ([]model.Comment, error) {
	var result struct {
		Issue *struct {
			Comments struct {
				Nodes []struct {
					ID        string    `json:"id"`
					Body      string    `json:"body"`
					CreatedAt time.Time `json:"createdAt"`
					User      *struct {
						ID    string `json:"id"`
						Name  string `json:"name"`
						Email string `json:"email"`
					} `json:"user"`
				} `json:"nodes"`
			} `json:"comments"`
		} `json:"issue"`
	}
	if err := c.do(ctx, queryComments, map[string]any{"id": issueID}, &result); err != nil {
		return nil, fmt.Errorf("fetching linear comments: %w", err)
	}
	if result.Issue == nil {
		return nil, fmt.Errorf("linear issue %s: %w", issueID, tracker.ErrNotFound)
	}

	comments := make([]model.Comment, 0, len(result.Issue.Comments.Nodes))
	for _, n := range result.Issue.Comments.Nodes {
		comment := model.Comment{ID: n.ID, Body: n.Body, CreatedAt: n.CreatedAt}
		if n.User != nil {
			comment.User = model.User{ID: n.User.ID, Name: n.User.Name, Email: n.User.Email}
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

func (c *Client) UpdateIssueState(ctx context.Context, issueID, stateID string) error {
	var result struct {
		IssueUpdate struct {
			Success bool `json:"success"`
		} `json:"issueUpdate"`
	}
	if err := c.do(ctx, mutationIssueUpdate, map[string]any{"id": issueID, "stateId": stateID}, &result); err != nil {
		return fmt.Errorf("updating linear issue state: %w", err)
	}
	if !result.IssueUpdate.Success {
		return fmt.Errorf("updating linear issue %s state: mutation unsuccessful", issueID)
	}
	return nil
}
