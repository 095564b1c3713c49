package webhook_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"openswe.dev/manager/internal/http/handler/webhook"
	"openswe.dev/manager/internal/model"
)

const githubSecret = "gh-secret"

func postGitHub(handler *webhook.GitHubWebhookHandler, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	router := gin.New()
	router.POST("/webhooks/github", handler.HandleEvent)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var _ = Describe("GitHubWebhookHandler", func() {
	var (
		ingest  *fakeIngest
		handler *webhook.GitHubWebhookHandler
	)

	labeledPayload := []byte(`{
		"action": "labeled",
		"label": {"name": "open-swe-max"},
		"issue": {
			"number": 42,
			"title": "Crash on startup",
			"body": "Stack trace attached.",
			"state": "open",
			"html_url": "https://github.com/acme/web/issues/42",
			"labels": [{"name": "bug"}, {"name": "open-swe-max"}]
		},
		"repository": {"full_name": "acme/web"}
	}`)

	githubHeaders := func(body []byte) map[string]string {
		return map[string]string{
			"X-GitHub-Event":      "issues",
			"X-GitHub-Delivery":   "delivery-9",
			"X-Hub-Signature-256": "sha256=" + sign(githubSecret, body),
		}
	}

	BeforeEach(func() {
		ingest = &fakeIngest{}
		handler = webhook.NewGitHubWebhookHandler(ingest, githubSecret)
	})

	It("turns a labeled event into an ingest event", func() {
		rec := postGitHub(handler, labeledPayload, githubHeaders(labeledPayload))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(ingest.events).To(HaveLen(1))
		event := ingest.events[0]
		Expect(event.Provider).To(Equal(model.ProviderGitHub))
		Expect(event.Label).To(Equal("open-swe-max"))
		Expect(event.Issue.ID).To(Equal("acme/web#42"))
		Expect(event.Issue.Identifier).To(Equal("acme/web#42"))
		Expect(event.Issue.Team.ID).To(Equal("acme/web"))
		Expect(event.TargetRepository.Owner).To(Equal("acme"))
		Expect(event.TargetRepository.Repo).To(Equal("web"))
		Expect(*event.DeliveryID).To(Equal("delivery-9"))
	})

	It("rejects a bad signature", func() {
		headers := githubHeaders(labeledPayload)
		headers["X-Hub-Signature-256"] = "sha256=deadbeef"

		rec := postGitHub(handler, labeledPayload, headers)

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(ingest.events).To(BeEmpty())
	})

	It("ignores non-issues events", func() {
		headers := githubHeaders(labeledPayload)
		headers["X-GitHub-Event"] = "push"

		rec := postGitHub(handler, labeledPayload, headers)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(ingest.events).To(BeEmpty())
	})

	It("ignores labels that are not triggers", func() {
		body := []byte(`{
			"action": "labeled",
			"label": {"name": "bug"},
			"issue": {"number": 42, "title": "t"},
			"repository": {"full_name": "acme/web"}
		}`)

		rec := postGitHub(handler, body, githubHeaders(body))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(ingest.events).To(BeEmpty())
	})

	It("ignores unlabeled actions", func() {
		body := []byte(`{
			"action": "unlabeled",
			"label": {"name": "open-swe"},
			"issue": {"number": 42, "title": "t"},
			"repository": {"full_name": "acme/web"}
		}`)

		rec := postGitHub(handler, body, githubHeaders(body))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(ingest.events).To(BeEmpty())
	})

	It("rejects malformed JSON", func() {
		body := []byte(`{not json`)

		rec := postGitHub(handler, body, githubHeaders(body))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})
