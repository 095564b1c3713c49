package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"openswe.dev/manager/internal/label"
	"openswe.dev/manager/internal/model"
	"openswe.dev/manager/internal/service"
)

type LinearWebhookHandler struct {
	ingest service.IssueIngestService
	secret string
}

func NewLinearWebhookHandler(ingest service.IssueIngestService, secret string) *LinearWebhookHandler {
	return &LinearWebhookHandler{
		ingest: ingest,
		secret: secret,
	}
}

func (h *LinearWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if h.secret != "" {
		if !validSignature(body, h.secret, c.GetHeader("Linear-Signature")) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	var payload linearWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if payload.Type != "Issue" {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "event type not supported"})
		return
	}

	triggerLabel, ok := payload.addedTriggerLabel()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "no trigger label added"})
		return
	}

	if payload.Data.Issue.ID == "" {
		slog.WarnContext(ctx, "linear webhook carries no issue data, skipping",
			"label", triggerLabel)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "missing issue data"})
		return
	}

	event := service.IssueLabeledEvent{
		Provider:   model.ProviderLinear,
		Label:      triggerLabel,
		Issue:      payload.toIssue(),
		DeliveryID: optional(c.GetHeader("Linear-Delivery")),
		TraceID:    traceIDFromContext(c),
	}

	result, err := h.ingest.HandleIssueLabeled(ctx, event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to process linear webhook",
			"error", err,
			"issue_id", event.Issue.ID,
			"label", event.Label)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	slog.InfoContext(ctx, "linear webhook processed",
		"issue_id", event.Issue.ID,
		"label", event.Label,
		"skipped", result.Skipped,
		"created", result.Created)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type linearWebhookPayload struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		Label struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"label"`
		Issue linearIssuePayload `json:"issue"`
		Team  struct {
			ID string `json:"id"`
		} `json:"team"`
	} `json:"data"`
	UpdatedFrom struct {
		LabelIDs []string `json:"labelIds"`
	} `json:"updatedFrom"`
}

type linearIssuePayload struct {
	ID          string `json:"id"`
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Labels      []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"labels"`
	Team struct {
		ID   string `json:"id"`
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"team"`
	State struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"state"`
}

// addedTriggerLabel returns the trigger label this event added, if any. The
// payload names the added label directly under data.label; updatedFrom, when
// the event carries it, guards against re-triggering when an edit redelivers
// a label the issue already had.
func (p *linearWebhookPayload) addedTriggerLabel() (string, bool) {
	name := p.Data.Label.Name
	if name == "" || !label.IsTrigger(name) {
		return "", false
	}
	if p.Action == "update" && p.UpdatedFrom.LabelIDs != nil &&
		slices.Contains(p.UpdatedFrom.LabelIDs, p.Data.Label.ID) {
		return "", false
	}
	return name, true
}

func (p *linearWebhookPayload) toIssue() model.Issue {
	src := p.Data.Issue
	issue := model.Issue{
		ID:          src.ID,
		Identifier:  src.Identifier,
		Title:       src.Title,
		Description: src.Description,
		URL:         src.URL,
		State: model.IssueState{
			ID:   src.State.ID,
			Name: src.State.Name,
			Type: src.State.Type,
		},
		Team: model.Team{
			ID:   src.Team.ID,
			Key:  src.Team.Key,
			Name: src.Team.Name,
		},
	}
	if issue.Team.ID == "" {
		issue.Team.ID = p.Data.Team.ID
	}
	for _, l := range src.Labels {
		issue.Labels = append(issue.Labels, model.Label{ID: l.ID, Name: l.Name})
	}
	return issue
}

func traceIDFromContext(c *gin.Context) string {
	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
