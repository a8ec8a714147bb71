package tasklist

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/neontodo/internal/api"
	"github.com/idilsaglam/neontodo/internal/apitest"
	"github.com/idilsaglam/neontodo/internal/model"
	"github.com/idilsaglam/neontodo/internal/session"
)

type note struct {
	kind string
	text string
}

type recorder struct {
	mu   sync.Mutex
	seen []note
}

func (r *recorder) Success(text string) { r.add("success", text) }
func (r *recorder) Error(text string)   { r.add("error", text) }

func (r *recorder) add(kind, text string) {
	r.mu.Lock()
	r.seen = append(r.seen, note{kind, text})
	r.mu.Unlock()
}

func (r *recorder) last() note {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return note{}
	}
	return r.seen[len(r.seen)-1]
}

type fixture struct {
	srv   *apitest.Server
	sess  *session.Context
	notes *recorder
	ctrl  *Controller
}

const owner = "ada@example.com"

func setup(t *testing.T, seed ...model.Task) *fixture {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)
	srv.Seed(owner, seed...)

	sess := session.New(session.NewMemoryStorage(), session.WithGetenv(func(string) string { return "" }))
	require.NoError(t, sess.Begin(model.Session{Token: srv.Token(owner), User: model.User{Email: owner, ID: owner}}))

	client, err := api.New(srv.URL, api.WithTokenSource(sess))
	require.NoError(t, err)

	notes := &recorder{}
	ctrl := New(client, sess, notes)
	require.NoError(t, ctrl.Refresh(context.Background()))
	return &fixture{srv: srv, sess: sess, notes: notes, ctrl: ctrl}
}

func TestRefreshLoadsNewestFirst(t *testing.T) {
	f := setup(t, model.Task{Title: "older"}, model.Task{Title: "newer"})
	tasks := f.ctrl.Tasks()
	require.Len(t, tasks, 2)
	require.Equal(t, "newer", tasks[0].Title)
	require.True(t, f.ctrl.Loaded())
}

func TestCreatePrependsServerRecord(t *testing.T) {
	f := setup(t, model.Task{Title: "existing"})

	got, err := f.ctrl.Create(context.Background(), "  Buy milk  ", "2 litres")
	require.NoError(t, err)
	require.Equal(t, "Buy milk", got.Title)
	require.NotEmpty(t, got.ID)

	active := f.ctrl.List(model.FilterAll)
	require.Len(t, active, 2)
	require.Equal(t, got.ID, active[0].ID)
	require.Equal(t, note{"success", "Task added successfully!"}, f.notes.last())

	stored, ok := f.srv.Task(got.ID)
	require.True(t, ok)
	require.Empty(t, cmp.Diff(stored, active[0]))
}

// completedOnCreate is a backend that answers every create with a
// completed record.
type completedOnCreate struct{ API }

func (c completedOnCreate) CreateTodo(ctx context.Context, d model.Draft) (model.Task, error) {
	t, err := c.API.CreateTodo(ctx, d)
	t.Completed = true
	return t, err
}

func TestCreateFollowsServerCompletion(t *testing.T) {
	f := setup(t)
	client, err := api.New(f.srv.URL, api.WithTokenSource(f.sess))
	require.NoError(t, err)
	ctrl := New(completedOnCreate{client}, f.sess, f.notes)
	require.NoError(t, ctrl.Refresh(context.Background()))

	got, err := ctrl.Create(context.Background(), "Already done", "")
	require.NoError(t, err)
	require.True(t, got.Completed)
	require.Empty(t, ctrl.List(model.FilterAll))
	done := ctrl.List(model.FilterCompleted)
	require.Len(t, done, 1)
	require.Equal(t, got.ID, done[0].ID)
}

func TestCreateRejectsBlankTitleWithoutRequest(t *testing.T) {
	f := setup(t)
	before := f.srv.TotalCalls()

	_, err := f.ctrl.Create(context.Background(), "   ", "ignored")
	require.ErrorIs(t, err, ErrEmptyTitle)
	require.Equal(t, before, f.srv.TotalCalls())
	require.Empty(t, f.ctrl.Tasks())
}

func TestCreateFailureShowsServerDetail(t *testing.T) {
	f := setup(t)
	f.srv.FailNext(http.MethodPost, "/todos", http.StatusBadRequest, "Title too long")

	_, err := f.ctrl.Create(context.Background(), "x", "")
	require.Error(t, err)
	require.Equal(t, note{"error", "Title too long"}, f.notes.last())
	require.Empty(t, f.ctrl.Tasks())
}

func TestToggleFailureRestoresExactSnapshot(t *testing.T) {
	f := setup(t, model.Task{Title: "write report", Description: "q3"})
	before := f.ctrl.Tasks()
	id := before[0].ID
	f.srv.FailNext(http.MethodPut, "/todos/"+id, http.StatusInternalServerError, "boom")

	err := f.ctrl.Toggle(context.Background(), id)
	require.Error(t, err)
	require.Empty(t, cmp.Diff(before, f.ctrl.Tasks()))
	require.Equal(t, note{"error", "Failed to update task status"}, f.notes.last())
}

func TestToggleIsVisibleBeforeSettle(t *testing.T) {
	f := setup(t, model.Task{Title: "a"})
	id := f.ctrl.Tasks()[0].ID

	op, err := f.ctrl.BeginToggle(id)
	require.NoError(t, err)
	require.Len(t, f.ctrl.List(model.FilterCompleted), 1)
	require.Empty(t, f.ctrl.List(model.FilterAll))

	require.NoError(t, op.Settle(context.Background()))
	require.Equal(t, note{"success", "Task moved to Completed folder!"}, f.notes.last())
	stored, _ := f.srv.Task(id)
	require.True(t, stored.Completed)

	require.ErrorIs(t, op.Settle(context.Background()), ErrSettled)

	require.NoError(t, f.ctrl.Toggle(context.Background(), id))
	require.Equal(t, note{"success", "Task moved back to Active tasks"}, f.notes.last())
}

func TestConcurrentTogglesRevertIndependently(t *testing.T) {
	f := setup(t, model.Task{Title: "a"}, model.Task{Title: "b"})
	tasks := f.ctrl.Tasks()
	b, a := tasks[0], tasks[1]

	opA, err := f.ctrl.BeginToggle(a.ID)
	require.NoError(t, err)
	opB, err := f.ctrl.BeginToggle(b.ID)
	require.NoError(t, err)

	f.srv.FailNext(http.MethodPut, "/todos/"+a.ID, http.StatusInternalServerError, "")
	require.NoError(t, opB.Settle(context.Background()))
	require.Error(t, opA.Settle(context.Background()))

	gotA, _ := f.ctrl.Get(a.ID)
	gotB, _ := f.ctrl.Get(b.ID)
	require.Empty(t, cmp.Diff(a, gotA))
	require.True(t, gotB.Completed)
}

func TestRemoveKeepsSoftDeletedRow(t *testing.T) {
	f := setup(t, model.Task{Title: "junk"})
	id := f.ctrl.Tasks()[0].ID

	require.NoError(t, f.ctrl.Remove(context.Background(), id))
	got, ok := f.ctrl.Get(id)
	require.True(t, ok)
	require.True(t, got.IsDeleted)
	require.Empty(t, f.ctrl.List(model.FilterAll))
	require.Empty(t, f.ctrl.List(model.FilterCompleted))
	require.Len(t, f.ctrl.List(model.FilterToday), 1)
	require.Equal(t, note{"success", "Task moved to Trash!"}, f.notes.last())
}

func TestRemoveNetworkFailureReverts(t *testing.T) {
	f := setup(t, model.Task{Title: "keep me"})
	before := f.ctrl.Tasks()
	f.srv.Close()

	err := f.ctrl.Remove(context.Background(), before[0].ID)
	require.Error(t, err)
	require.True(t, api.IsTransport(err))
	require.Empty(t, cmp.Diff(before, f.ctrl.Tasks()))
	require.Equal(t, note{"error", "Network error: Could not delete task"}, f.notes.last())
}

func TestUnauthorizedTearsDownSession(t *testing.T) {
	f := setup(t, model.Task{Title: "a"})
	id := f.ctrl.Tasks()[0].ID
	torn := false
	f.sess.OnTeardown(func() { torn = true })
	f.srv.Revoke()

	err := f.ctrl.Toggle(context.Background(), id)
	require.True(t, errors.Is(err, api.ErrUnauthorized))
	require.True(t, torn)
	require.False(t, f.sess.Authenticated())
	require.False(t, f.ctrl.Authenticated())
	require.False(t, f.ctrl.Loaded())
	require.Empty(t, f.ctrl.Tasks())

	calls := f.srv.TotalCalls()
	_, err = f.ctrl.BeginToggle(id)
	require.ErrorIs(t, err, ErrSignedOut)
	require.Equal(t, calls, f.srv.TotalCalls())
}

func TestEditReplacesWithServerRecord(t *testing.T) {
	f := setup(t, model.Task{Title: "draft", Description: "old"})
	id := f.ctrl.Tasks()[0].ID

	got, err := f.ctrl.Edit(context.Background(), id, "final", "")
	require.NoError(t, err)
	require.Equal(t, "final", got.Title)
	require.Empty(t, got.Description)
	cached, _ := f.ctrl.Get(id)
	require.Empty(t, cmp.Diff(got, cached))

	_, err = f.ctrl.Edit(context.Background(), id, " ", "x")
	require.ErrorIs(t, err, ErrEmptyTitle)
	_, err = f.ctrl.Edit(context.Background(), "missing", "t", "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEditFailureLeavesCacheAlone(t *testing.T) {
	f := setup(t, model.Task{Title: "draft"})
	before := f.ctrl.Tasks()
	f.srv.FailNext(http.MethodPut, "/todos/", http.StatusInternalServerError, "")

	_, err := f.ctrl.Edit(context.Background(), before[0].ID, "final", "")
	require.Error(t, err)
	require.Empty(t, cmp.Diff(before, f.ctrl.Tasks()))
	require.Equal(t, note{"error", "Failed to save changes"}, f.notes.last())
}

func TestApplyRemote(t *testing.T) {
	f := setup(t, model.Task{Title: "a"})
	a := f.ctrl.Tasks()[0]
	now := time.Now()

	created := model.Task{ID: "chat-1", Title: "from chat", CreatedAt: &now}
	require.True(t, f.ctrl.ApplyRemote(model.IntentCreate, created))
	require.Equal(t, "chat-1", f.ctrl.Tasks()[0].ID)

	a.Completed = true
	require.True(t, f.ctrl.ApplyRemote(model.IntentUpdate, a))
	got, _ := f.ctrl.Get(a.ID)
	require.True(t, got.Completed)

	require.False(t, f.ctrl.ApplyRemote(model.IntentUpdate, model.Task{ID: "unknown"}))

	require.True(t, f.ctrl.ApplyRemote(model.IntentDelete, created))
	got, _ = f.ctrl.Get("chat-1")
	require.True(t, got.IsDeleted)

	require.False(t, f.ctrl.ApplyRemote(model.Intent("QUERY"), a))
	require.False(t, f.ctrl.ApplyRemote(model.IntentCreate, model.Task{}))
}

func TestTodayFilterUsesClock(t *testing.T) {
	yesterday := time.Date(2024, 3, 9, 12, 0, 0, 0, time.Local)
	today := time.Date(2024, 3, 10, 8, 0, 0, 0, time.Local)
	f := setup(t, model.Task{Title: "old", CreatedAt: &yesterday}, model.Task{Title: "new", CreatedAt: &today})

	got := f.ctrl.ListAt(model.FilterToday, today.Add(2*time.Hour))
	require.Len(t, got, 1)
	require.Equal(t, "new", got[0].Title)
}
