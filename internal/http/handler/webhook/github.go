package webhook

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"openswe.dev/manager/internal/label"
	"openswe.dev/manager/internal/model"
	"openswe.dev/manager/internal/service"
)

type GitHubWebhookHandler struct {
	ingest service.IssueIngestService
	secret string
}

func NewGitHubWebhookHandler(ingest service.IssueIngestService, secret string) *GitHubWebhookHandler {
	return &GitHubWebhookHandler{
		ingest: ingest,
		secret: secret,
	}
}

func (h *GitHubWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if h.secret != "" {
		sig := strings.TrimPrefix(c.GetHeader("X-Hub-Signature-256"), "sha256=")
		if !validSignature(body, h.secret, sig) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	if event := c.GetHeader("X-GitHub-Event"); event != "issues" {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "event type not supported"})
		return
	}

	var payload githubWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if payload.Action != "labeled" || !label.IsTrigger(payload.Label.Name) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "no trigger label added"})
		return
	}

	owner, repo, ok := strings.Cut(payload.Repository.FullName, "/")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid repository name"})
		return
	}

	event := service.IssueLabeledEvent{
		Provider:         model.ProviderGitHub,
		Label:            payload.Label.Name,
		Issue:            payload.toIssue(),
		DeliveryID:       optional(c.GetHeader("X-GitHub-Delivery")),
		TraceID:          traceIDFromContext(c),
		TargetRepository: &model.Repository{Owner: owner, Repo: repo},
	}

	result, err := h.ingest.HandleIssueLabeled(ctx, event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to process github webhook",
			"error", err,
			"issue_id", event.Issue.ID,
			"label", event.Label)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	slog.InfoContext(ctx, "github webhook processed",
		"issue_id", event.Issue.ID,
		"label", event.Label,
		"skipped", result.Skipped,
		"created", result.Created)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type githubWebhookPayload struct {
	Action string `json:"action"`
	Label  struct {
		Name string `json:"name"`
	} `json:"label"`
	Issue struct {
		Number  int    `json:"number"`
		Title   string `json:"title"`
		Body    string `json:"body"`
		State   string `json:"state"`
		HTMLURL string `json:"html_url"`
		Labels  []struct {
			Name string `json:"name"`
		} `json:"labels"`
	} `json:"issue"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// toIssue normalizes the payload. The repository stands in for the team, and
// "owner/repo#number" is both the identifier and the tracker-native id, the
// same form the GitHub client resolves.
func (p *githubWebhookPayload) toIssue() model.Issue {
	ref := fmt.Sprintf("%s#%d", p.Repository.FullName, p.Issue.Number)
	owner, _, _ := strings.Cut(p.Repository.FullName, "/")

	issue := model.Issue{
		ID:          ref,
		Identifier:  ref,
		Title:       p.Issue.Title,
		Description: p.Issue.Body,
		URL:         p.Issue.HTMLURL,
		State:       model.IssueState{Name: p.Issue.State, Type: p.Issue.State},
		Team: model.Team{
			ID:   p.Repository.FullName,
			Name: p.Repository.FullName,
			Key:  owner,
		},
	}
	for _, l := range p.Issue.Labels {
		issue.Labels = append(issue.Labels, model.Label{Name: l.Name})
	}
	return issue
}
