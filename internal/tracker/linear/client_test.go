package linear_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"openswe.dev/manager/internal/tracker"
	"openswe.dev/manager/internal/tracker/linear"
)

const issueJSON = `{
	"id": "uuid-1",
	"identifier": "ENG-42",
	"title": "Fix flaky test",
	"description": "It fails on CI.",
	"url": "https://linear.app/acme/issue/ENG-42",
	"createdAt": "2025-01-02T03:04:05Z",
	"updatedAt": "2025-01-03T03:04:05Z",
	"state": {"id": "st-1", "name": "Todo", "type": "unstarted"},
	"team": {"id": "team-1", "name": "Engineering", "key": "ENG"},
	"assignee": null,
	"labels": {"nodes": [{"id": "lb-1", "name": "open-swe", "color": "#000"}]}
}`

// graphqlHandler routes by operation name found in the query document.
func graphqlHandler(responses map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
		Expect(r.Header.Get("Authorization")).To(Equal("lin_api_test"))

		for op, resp := range responses {
			if strings.Contains(req.Query, op) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(resp))
				return
			}
		}
		w.WriteHeader(http.StatusBadRequest)
	}
}

var _ = Describe("Client", func() {
	var (
		server *httptest.Server
		ctx    context.Context
	)

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("GetIssue", func() {
		It("maps a full issue payload", func() {
			server = httptest.NewServer(graphqlHandler(map[string]string{
				"query Issue(": `{"data": {"issue": ` + issueJSON + `}}`,
			}))
			client := linear.NewClient("lin_api_test", linear.WithBaseURL(server.URL))

			issue, err := client.GetIssue(ctx, "uuid-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(issue.Identifier).To(Equal("ENG-42"))
			Expect(issue.Description).To(Equal("It fails on CI."))
			Expect(issue.Team.Name).To(Equal("Engineering"))
			Expect(issue.State.Type).To(Equal("unstarted"))
			Expect(issue.Labels).To(HaveLen(1))
			Expect(issue.Labels[0].Name).To(Equal("open-swe"))
		})

		It("falls back to identifier search when the direct lookup is empty", func() {
			server = httptest.NewServer(graphqlHandler(map[string]string{
				"query Issue(":       `{"data": {"issue": null}}`,
				"query IssueSearch(": `{"data": {"issueSearch": {"nodes": [` + issueJSON + `]}}}`,
			}))
			client := linear.NewClient("lin_api_test", linear.WithBaseURL(server.URL))

			issue, err := client.GetIssue(ctx, "ENG-42")

			Expect(err).NotTo(HaveOccurred())
			Expect(issue.ID).To(Equal("uuid-1"))
		})

		It("returns ErrNotFound when neither lookup matches", func() {
			server = httptest.NewServer(graphqlHandler(map[string]string{
				"query Issue(":       `{"data": {"issue": null}}`,
				"query IssueSearch(": `{"data": {"issueSearch": {"nodes": []}}}`,
			}))
			client := linear.NewClient("lin_api_test", linear.WithBaseURL(server.URL))

			_, err := client.GetIssue(ctx, "ENG-404")

			Expect(err).To(MatchError(tracker.ErrNotFound))
		})

		It("fails when the issue has no team", func() {
			var teamless map[string]any
			Expect(json.Unmarshal([]byte(issueJSON), &teamless)).To(Succeed())
			teamless["team"] = nil
			raw, _ := json.Marshal(teamless)

			server = httptest.NewServer(graphqlHandler(map[string]string{
				"query Issue(": `{"data": {"issue": ` + string(raw) + `}}`,
			}))
			client := linear.NewClient("lin_api_test", linear.WithBaseURL(server.URL))

			_, err := client.GetIssue(ctx, "uuid-1")

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no team"))
		})
	})

	Describe("GetWorkspace", func() {
		It("returns the viewer's organization", func() {
			server = httptest.NewServer(graphqlHandler(map[string]string{
				"query Workspace": `{"data": {"viewer": {"organization": {"id": "org-1", "name": "Acme", "urlKey": "acme"}}}}`,
			}))
			client := linear.NewClient("lin_api_test", linear.WithBaseURL(server.URL))

			ws, err := client.GetWorkspace(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(ws.ID).To(Equal("org-1"))
			Expect(ws.URLKey).To(Equal("acme"))
		})

		It("maps a 401 to ErrAuth", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			client := linear.NewClient("lin_api_test", linear.WithBaseURL(server.URL))

			_, err := client.GetWorkspace(ctx)

			Expect(err).To(MatchError(tracker.ErrAuth))
		})
	})

	Describe("CreateComment", func() {
		It("returns the created comment", func() {
			server = httptest.NewServer(graphqlHandler(map[string]string{
				"mutation CommentCreate": `{"data": {"commentCreate": {"success": true, "comment": {"id": "cm-1", "body": "hello", "createdAt": "2025-01-02T03:04:05Z", "user": {"id": "u-1", "name": "bot", "email": ""}}}}}`,
			}))
			client := linear.NewClient("lin_api_test", linear.WithBaseURL(server.URL))

			comment, err := client.CreateComment(ctx, "uuid-1", "hello")

			Expect(err).NotTo(HaveOccurred())
			Expect(comment.ID).To(Equal("cm-1"))
			Expect(comment.User.Name).To(Equal("bot"))
		})

		It("fails when the mutation reports no success", func() {
			server = httptest.NewServer(graphqlHandler(map[string]string{
				"mutation CommentCreate": `{"data": {"commentCreate": {"success": false, "comment": null}}}`,
			}))
			client := linear.NewClient("lin_api_test", linear.WithBaseURL(server.URL))

			_, err := client.CreateComment(ctx, "uuid-1", "hello")

			Expect(err).To(HaveOccurred())
		})
	})
})
