package service_test

import (
	"context"

	"openswe.dev/manager/internal/model"
	"openswe.dev/manager/internal/queue"
	"openswe.dev/manager/internal/service"
	"openswe.dev/manager/internal/store"
	"openswe.dev/manager/internal/tracker"
)

// fakeRunStore implements store.RunStore in memory, keyed by dedupe key.
type fakeRunStore struct {
	byDedupe map[string]*model.Run
	err      error
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{byDedupe: make(map[string]*model.Run)}
}

func (f *fakeRunStore) CreateOrGet(ctx context.Context, run *model.Run) (*model.Run, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if existing, ok := f.byDedupe[run.DedupeKey]; ok {
		return existing, false, nil
	}
	f.byDedupe[run.DedupeKey] = run
	return run, true, nil
}

func (f *fakeRunStore) GetByRunID(ctx context.Context, runID string) (*model.Run, error) {
	for _, r := range f.byDedupe {
		if r.RunID == runID {
			return r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeRunStore) UpdateStatus(ctx context.Context, runID string, status model.RunStatus) error {
	r, err := f.GetByRunID(ctx, runID)
	if err != nil {
		return err
	}
	r.Status = status
	return nil
}

func (f *fakeRunStore) ListByIssue(ctx context.Context, provider model.Provider, issueID string, limit int32) ([]model.Run, error) {
	var runs []model.Run
	for _, r := range f.byDedupe {
		if r.Provider == provider && r.IssueID == issueID {
			runs = append(runs, *r)
		}
	}
	return runs, nil
}

// fakeProducer records enqueued messages.
type fakeProducer struct {
	messages []queue.RunMessage
	err      error
}

func (f *fakeProducer) Enqueue(ctx context.Context, msg queue.RunMessage) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeProducer) Close() error { return nil }

// fakeRunService records CreateRun calls and returns a canned result.
type fakeRunService struct {
	params []service.CreateRunParams
	result *service.CreateRunResult
	err    error
}

func (f *fakeRunService) CreateRun(ctx context.Context, params service.CreateRunParams) (*service.CreateRunResult, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeTrackerClient records comments and workspace lookups and fails on
// demand.
type fakeTrackerClient struct {
	workspace         *model.Workspace
	workspaceErr      error
	getWorkspaceCalls int

	comments   []string
	commentErr error
}

func (f *fakeTrackerClient) GetIssue(ctx context.Context, idOrIdentifier string) (*model.Issue, error) {
	return nil, tracker.ErrNotFound
}

func (f *fakeTrackerClient) GetWorkspace(ctx context.Context) (*model.Workspace, error) {
	f.getWorkspaceCalls++
	if f.workspaceErr != nil {
		return nil, f.workspaceErr
	}
	if f.workspace != nil {
		return f.workspace, nil
	}
	return &model.Workspace{ID: "ws-1", Name: "Acme"}, nil
}

func (f *fakeTrackerClient) GetTeam(ctx context.Context, idOrKey string) (*model.Team, error) {
	return nil, tracker.ErrNotFound
}

func (f *fakeTrackerClient) CreateComment(ctx context.Context, issueID, body string) (*model.Comment, error) {
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	f.comments = append(f.comments, body)
	return &model.Comment{ID: "comment-1", Body: body}, nil
}

func (f *fakeTrackerClient) GetComments(ctx context.Context, issueID string) ([]model.Comment, error) {
	return nil, nil
}

func (f *fakeTrackerClient) UpdateIssueState(ctx context.Context, issueID, state string) error {
	return nil
}
