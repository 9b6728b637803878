package job

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type snapshotCall struct {
	userID   uint64
	username string
	avatar   string
}

type stubSnapshotRepo struct {
	mu      sync.Mutex
	calls   []snapshotCall
	failFor map[uint64]error
}

func (s *stubSnapshotRepo) Create(ctx context.Context, content *model.Content) error { return nil }

func (s *stubSnapshotRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Content, error) {
	return nil, nil
}

func (s *stubSnapshotRepo) ListRecent(ctx context.Context, since time.Time, cap int64) ([]model.Content, error) {
	return nil, nil
}

func (s *stubSnapshotRepo) ListCandidates(ctx context.Context, since time.Time, authorIDs []uint64, tags []string, cap int64) ([]model.Content, error) {
	return nil, nil
}

func (s *stubSnapshotRepo) IncrementCounters(ctx context.Context, id primitive.ObjectID, likes, comments, views int64) (*model.Content, error) {
	return nil, nil
}

func (s *stubSnapshotRepo) UpdateAuthorSnapshot(ctx context.Context, authorID uint64, username, avatar string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[authorID]; ok {
		return 0, err
	}
	s.calls = append(s.calls, snapshotCall{userID: authorID, username: username, avatar: avatar})
	return 1, nil
}

func (s *stubSnapshotRepo) snapshot() []snapshotCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]snapshotCall(nil), s.calls...)
}

func profileChanged(userID uint64, username, avatar string) eventbus.Event {
	return eventbus.Event{
		Type:    consts.EventProfileChanged,
		Payload: dto.ProfileChangedDTO{UserID: userID, Username: username, Avatar: avatar},
	}
}

func TestProfileSyncCoalescesSameUser(t *testing.T) {
	setupJobTest(t)
	repo := &stubSnapshotRepo{}
	worker := NewProfileSyncWorker(repo)

	require.NoError(t, worker.Enqueue(context.Background(), profileChanged(1, "alice", "a1.png")))
	require.NoError(t, worker.Enqueue(context.Background(), profileChanged(1, "alice2", "a2.png")))
	require.NoError(t, worker.Enqueue(context.Background(), profileChanged(2, "bob", "b.png")))
	worker.flush()

	calls := repo.snapshot()
	require.Len(t, calls, 2)
	byUser := map[uint64]snapshotCall{}
	for _, c := range calls {
		byUser[c.userID] = c
	}
	assert.Equal(t, snapshotCall{userID: 1, username: "alice2", avatar: "a2.png"}, byUser[1])
	assert.Equal(t, snapshotCall{userID: 2, username: "bob", avatar: "b.png"}, byUser[2])
}

func TestProfileSyncEmptyFlushIsNoop(t *testing.T) {
	setupJobTest(t)
	repo := &stubSnapshotRepo{}
	worker := NewProfileSyncWorker(repo)

	worker.flush()

	assert.Empty(t, repo.snapshot())
}

func TestProfileSyncRequeuesFailedUser(t *testing.T) {
	setupJobTest(t)
	repo := &stubSnapshotRepo{failFor: map[uint64]error{1: fmt.Errorf("write conflict")}}
	worker := NewProfileSyncWorker(repo)

	require.NoError(t, worker.Enqueue(context.Background(), profileChanged(1, "alice", "a.png")))
	require.NoError(t, worker.Enqueue(context.Background(), profileChanged(2, "bob", "b.png")))
	worker.flush()

	calls := repo.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, uint64(2), calls[0].userID)

	repo.mu.Lock()
	delete(repo.failFor, 1)
	repo.mu.Unlock()
	worker.flush()

	calls = repo.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, snapshotCall{userID: 1, username: "alice", avatar: "a.png"}, calls[1])
}

func TestProfileSyncRequeueKeepsNewerSnapshot(t *testing.T) {
	setupJobTest(t)
	repo := &stubSnapshotRepo{failFor: map[uint64]error{1: fmt.Errorf("write conflict")}}
	worker := NewProfileSyncWorker(repo)

	require.NoError(t, worker.Enqueue(context.Background(), profileChanged(1, "alice", "a.png")))
	worker.flush()
	require.NoError(t, worker.Enqueue(context.Background(), profileChanged(1, "alice2", "a2.png")))

	repo.mu.Lock()
	delete(repo.failFor, 1)
	repo.mu.Unlock()
	worker.flush()

	calls := repo.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "alice2", calls[0].username)
}

func TestProfileSyncStopFlushesBacklog(t *testing.T) {
	setupJobTest(t)
	repo := &stubSnapshotRepo{}
	worker := NewProfileSyncWorker(repo)
	worker.Start(context.Background())

	require.NoError(t, worker.Enqueue(context.Background(), profileChanged(1, "alice", "a.png")))
	worker.Stop()

	calls := repo.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, uint64(1), calls[0].userID)
}

func TestProfileSyncEnqueueRejectsForeignPayload(t *testing.T) {
	setupJobTest(t)
	worker := NewProfileSyncWorker(&stubSnapshotRepo{})

	err := worker.Enqueue(context.Background(), eventbus.Event{
		Type:    consts.EventProfileChanged,
		Payload: "not a dto",
	})
	require.Error(t, err)
}
