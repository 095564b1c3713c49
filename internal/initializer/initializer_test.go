package initializer_test

import (
	"context"
	"fmt"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"openswe.dev/manager/internal/content"
	"openswe.dev/manager/internal/graph"
	"openswe.dev/manager/internal/initializer"
	"openswe.dev/manager/internal/model"
	"openswe.dev/manager/internal/tracker"
)

type fakeTracker struct {
	issue *model.Issue
	err   error

	getIssueCalls int
	totalCalls    int
}

func (f *fakeTracker) GetIssue(ctx context.Context, idOrIdentifier string) (*model.Issue, error) {
	f.getIssueCalls++
	f.totalCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.issue, nil
}

func (f *fakeTracker) GetWorkspace(ctx context.Context) (*model.Workspace, error) {
	f.totalCalls++
	return nil, tracker.ErrNotFound
}

func (f *fakeTracker) GetTeam(ctx context.Context, idOrKey string) (*model.Team, error) {
	f.totalCalls++
	return nil, tracker.ErrNotFound
}

func (f *fakeTracker) CreateComment(ctx context.Context, issueID, body string) (*model.Comment, error) {
	f.totalCalls++
	return nil, tracker.ErrNotFound
}

func (f *fakeTracker) GetComments(ctx context.Context, issueID string) ([]model.Comment, error) {
	f.totalCalls++
	return nil, tracker.ErrNotFound
}

func (f *fakeTracker) UpdateIssueState(ctx context.Context, issueID, state string) error {
	f.totalCalls++
	return tracker.ErrNotFound
}

var _ = Describe("Service.Initialize", func() {
	var (
		ctx     context.Context
		fake    *fakeTracker
		service *initializer.Service
		cfg     graph.Config
	)

	planDescription := func() string {
		return "Do the thing.\n\n" + content.TaskPlanMarker + "\n```json\n" +
			`{"items": [{"index": 0, "plan": "add handler", "completed": false}], "active_item_index": 0}` +
			"\n```"
	}

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeTracker{
			issue: &model.Issue{
				ID:          "issue-uuid-1",
				Identifier:  "ENG-42",
				Title:       "Fix login flow",
				Description: "Users get logged out.",
				Team:        model.Team{ID: "team-uuid-1", Name: "Engineering", Key: "ENG"},
			},
		}
		factory := func(credential string) tracker.Client { return fake }
		service = initializer.NewService(
			slog.New(slog.DiscardHandler),
			initializer.WithLinearFactory(factory),
			initializer.WithGitHubFactory(factory),
		)
		cfg = graph.Config{
			Provider:     model.ProviderLinear,
			LinearAPIKey: "lin_api_test",
			GitHubToken:  "ghp_test",
		}
	})

	Describe("origination", func() {
		var state *model.SessionState

		BeforeEach(func() {
			state = &model.SessionState{
				Issue:            &model.IssueRef{Provider: model.ProviderLinear, ID: "issue-uuid-1"},
				TargetRepository: &model.Repository{Owner: "acme", Repo: "web"},
			}
		})

		It("synthesizes exactly one human message tagged as the original issue", func() {
			update, err := service.Initialize(ctx, state, cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(update.Messages).To(HaveLen(1))
			msg := update.Messages[0]
			Expect(msg.ID).NotTo(BeEmpty())
			Expect(msg.Role).To(Equal(model.RoleHuman))
			Expect(msg.Content).To(ContainSubstring("**Fix login flow**"))
			Expect(msg.Content).To(ContainSubstring("*Linear Issue: ENG-42 | Team: Engineering*"))
			Expect(msg.Kwargs.IsOriginalIssue).To(BeTrue())
			Expect(msg.Kwargs.IssueID).To(Equal("issue-uuid-1"))
			Expect(msg.Kwargs.RequestSource).To(Equal(model.SourceLinearIssueWebhook))
		})

		It("scopes the session to the issue's owning team", func() {
			update, err := service.Initialize(ctx, state, cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(update.Workspace).NotTo(BeNil())
			Expect(update.Workspace.WorkspaceID).To(Equal("team-uuid-1"))
			Expect(update.Workspace.TeamID).To(Equal("team-uuid-1"))
		})

		It("recovers a task plan embedded in the issue description", func() {
			fake.issue.Description = planDescription()

			update, err := service.Initialize(ctx, state, cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(update.TaskPlan).NotTo(BeNil())
			Expect(update.TaskPlan.Items).To(HaveLen(1))
			Expect(update.TaskPlan.Items[0].Plan).To(Equal("add handler"))
		})

		It("fails before any tracker call when the issue reference is missing", func() {
			state.Issue = nil

			_, err := service.Initialize(ctx, state, cfg)

			Expect(err).To(MatchError(initializer.ErrMissingIssueRef))
			Expect(err).To(MatchError(initializer.ErrConfiguration))
			Expect(fake.totalCalls).To(BeZero())
		})

		It("fails before any tracker call when the target repository is missing", func() {
			state.TargetRepository = nil

			_, err := service.Initialize(ctx, state, cfg)

			Expect(err).To(MatchError(initializer.ErrMissingTargetRepository))
			Expect(fake.totalCalls).To(BeZero())
		})

		It("treats a missing issue as fatal", func() {
			fake.err = tracker.ErrNotFound

			_, err := service.Initialize(ctx, state, cfg)

			Expect(err).To(MatchError(tracker.ErrNotFound))
		})
	})

	Describe("continuation", func() {
		var state *model.SessionState

		BeforeEach(func() {
			state = &model.SessionState{
				Messages: []model.ChatMessage{{ID: "m1", Role: model.RoleHuman, Content: "please fix"}},
				Issue:    &model.IssueRef{Provider: model.ProviderLinear, ID: "issue-uuid-1"},
				TaskPlan: &model.TaskPlan{Items: []model.PlanItem{{Plan: "stale step"}}},
			}
		})

		It("never adds a message", func() {
			fake.issue.Description = planDescription()

			update, err := service.Initialize(ctx, state, cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(update.Messages).To(BeEmpty())
			Expect(update.Workspace).To(BeNil())
		})

		It("replaces the session plan with the one recovered from the tracker", func() {
			fake.issue.Description = planDescription()

			update, err := service.Initialize(ctx, state, cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(update.TaskPlan).NotTo(BeNil())
			Expect(update.TaskPlan.Items[0].Plan).To(Equal("add handler"))
		})

		It("changes nothing when the description carries no plan", func() {
			update, err := service.Initialize(ctx, state, cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(update.IsEmpty()).To(BeTrue())
			Expect(fake.getIssueCalls).To(Equal(1))
		})

		It("skips the tracker entirely without an issue reference", func() {
			state.Issue = nil

			update, err := service.Initialize(ctx, state, cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(update.IsEmpty()).To(BeTrue())
			Expect(fake.totalCalls).To(BeZero())
		})

		It("treats a missing issue as fatal", func() {
			fake.err = fmt.Errorf("refresh: %w", tracker.ErrNotFound)

			_, err := service.Initialize(ctx, state, cfg)

			Expect(err).To(MatchError(tracker.ErrNotFound))
		})
	})

	Describe("local mode", func() {
		It("returns an empty update and touches nothing", func() {
			cfg.LocalMode = true
			cfg.LinearAPIKey = ""
			state := &model.SessionState{}

			update, err := service.Initialize(ctx, state, cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(update.IsEmpty()).To(BeTrue())
			Expect(fake.totalCalls).To(BeZero())
		})
	})

	Describe("credentials", func() {
		It("fails a Linear run without an API key", func() {
			cfg.LinearAPIKey = ""
			state := &model.SessionState{
				Issue:            &model.IssueRef{Provider: model.ProviderLinear, ID: "issue-uuid-1"},
				TargetRepository: &model.Repository{Owner: "acme", Repo: "web"},
			}

			_, err := service.Initialize(ctx, state, cfg)

			Expect(err).To(MatchError(initializer.ErrMissingCredential))
			Expect(fake.totalCalls).To(BeZero())
		})

		It("fails a GitHub run without a token", func() {
			cfg.Provider = model.ProviderGitHub
			cfg.GitHubToken = ""
			state := &model.SessionState{
				Issue:            &model.IssueRef{Provider: model.ProviderGitHub, ID: "acme/web#42"},
				TargetRepository: &model.Repository{Owner: "acme", Repo: "web"},
			}

			_, err := service.Initialize(ctx, state, cfg)

			Expect(err).To(MatchError(initializer.ErrMissingCredential))
		})
	})

	Describe("routing", func() {
		It("defaults unrecognized providers to GitHub", func() {
			cfg.Provider = model.Provider("gitlab")
			cfg.GitHubToken = ""

			_, err := service.Initialize(ctx, &model.SessionState{}, cfg)

			Expect(err).To(MatchError(initializer.ErrMissingCredential))
			Expect(err.Error()).To(ContainSubstring("github"))
		})

		It("tags GitHub originations with the GitHub request source", func() {
			cfg.Provider = model.ProviderGitHub
			fake.issue.Identifier = "acme/web#42"
			fake.issue.Team = model.Team{ID: "acme/web", Name: "acme/web", Key: "acme"}
			state := &model.SessionState{
				Issue:            &model.IssueRef{Provider: model.ProviderGitHub, ID: "acme/web#42"},
				TargetRepository: &model.Repository{Owner: "acme", Repo: "web"},
			}

			update, err := service.Initialize(ctx, state, cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(update.Messages).To(HaveLen(1))
			Expect(update.Messages[0].Kwargs.RequestSource).To(Equal(model.SourceGitHubIssueWebhook))
			Expect(update.Messages[0].Content).To(ContainSubstring("*GitHub Issue: acme/web#42 | Repo: acme/web*"))
		})
	})
})
