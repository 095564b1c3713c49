package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"openswe.dev/manager/internal/tracker"
	"openswe.dev/manager/internal/tracker/github"
)

var _ = Describe("ParseIssueRef", func() {
	It("parses owner/repo#number", func() {
		owner, repo, number, err := github.ParseIssueRef("acme/web#42")
		Expect(err).NotTo(HaveOccurred())
		Expect(owner).To(Equal("acme"))
		Expect(repo).To(Equal("web"))
		Expect(number).To(Equal(42))
	})

	DescribeTable("rejects malformed references",
		func(ref string) {
			_, _, _, err := github.ParseIssueRef(ref)
			Expect(err).To(HaveOccurred())
		},
		Entry("missing number", "acme/web"),
		Entry("missing repo", "acme#42"),
		Entry("non-numeric", "acme/web#abc"),
		Entry("empty", ""),
	)
})

var _ = Describe("Client", func() {
	var (
		server *httptest.Server
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	Describe("GetIssue", func() {
		It("maps the REST payload into the normalized record", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/repos/acme/web/issues/42"))
				Expect(r.Header.Get("Authorization")).To(Equal("Bearer ghp_test"))
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{
					"id": 99, "number": 42, "title": "Crash on startup",
					"body": "Stack trace attached.", "state": "open",
					"labels": [{"id": 1, "name": "open-swe-auto", "color": "ededed"}],
					"assignee": {"id": 7, "login": "alice"},
					"html_url": "https://github.com/acme/web/issues/42",
					"created_at": "2025-01-02T03:04:05Z",
					"updated_at": "2025-01-03T03:04:05Z"
				}`))
			}))
			client := github.NewClient("ghp_test", github.WithBaseURL(server.URL))

			issue, err := client.GetIssue(ctx, "acme/web#42")

			Expect(err).NotTo(HaveOccurred())
			Expect(issue.Identifier).To(Equal("acme/web#42"))
			Expect(issue.Title).To(Equal("Crash on startup"))
			Expect(issue.Team.ID).To(Equal("acme/web"))
			Expect(issue.Team.Key).To(Equal("acme"))
			Expect(issue.Assignee.Name).To(Equal("alice"))
			Expect(issue.Labels[0].Name).To(Equal("open-swe-auto"))
		})

		It("maps a 404 to ErrNotFound", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			client := github.NewClient("ghp_test", github.WithBaseURL(server.URL))

			_, err := client.GetIssue(ctx, "acme/web#404")

			Expect(err).To(MatchError(tracker.ErrNotFound))
		})

		It("maps a 401 to ErrAuth", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			client := github.NewClient("bad", github.WithBaseURL(server.URL))

			_, err := client.GetIssue(ctx, "acme/web#42")

			Expect(err).To(MatchError(tracker.ErrAuth))
		})
	})

	Describe("CreateComment", func() {
		It("posts to the issue comments endpoint", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/repos/acme/web/issues/42/comments"))
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id": 5, "body": "ack", "user": {"id": 9, "login": "bot"}, "created_at": "2025-01-02T03:04:05Z"}`))
			}))
			client := github.NewClient("ghp_test", github.WithBaseURL(server.URL))

			comment, err := client.CreateComment(ctx, "acme/web#42", "ack")

			Expect(err).NotTo(HaveOccurred())
			Expect(comment.ID).To(Equal("5"))
			Expect(comment.User.Name).To(Equal("bot"))
		})
	})

	Describe("GetWorkspace", func() {
		It("uses the authenticated user as the workspace", func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/user"))
				_, _ = w.Write([]byte(`{"id": 31, "login": "acme-bot", "name": "Acme Bot"}`))
			}))
			client := github.NewClient("ghp_test", github.WithBaseURL(server.URL))

			ws, err := client.GetWorkspace(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(ws.ID).To(Equal("31"))
			Expect(ws.Name).To(Equal("Acme Bot"))
			Expect(ws.URLKey).To(Equal("acme-bot"))
		})
	})
})
