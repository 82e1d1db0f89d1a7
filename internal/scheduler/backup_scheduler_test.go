package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omenezes/aula-planner-api/internal/models"
	"github.com/omenezes/aula-planner-api/pkg/config"
)

type userListStub struct {
	mu      sync.Mutex
	users   []models.User
	calls   int
	release chan struct{}
}

func (s *userListStub) ListAll(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.release != nil {
		<-s.release
	}
	return s.users, nil
}

func (s *userListStub) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type pushAutoStub struct {
	mu    sync.Mutex
	users []string
	done  chan struct{}
}

func (s *pushAutoStub) PushAuto(ctx context.Context, user *models.User) (string, error) {
	s.mu.Lock()
	s.users = append(s.users, user.ID)
	s.mu.Unlock()
	if s.done != nil {
		s.done <- struct{}{}
	}
	return "backup_AUTO_test.json", nil
}

func testBackupConfig() config.BackupConfig {
	return config.BackupConfig{
		SweepInterval: time.Hour,
		Workers:       2,
		MaxRetries:    1,
		RetryDelay:    time.Millisecond,
	}
}

func TestSweepEnqueuesOneJobPerUser(t *testing.T) {
	users := &userListStub{users: []models.User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}}}
	pusher := &pushAutoStub{done: make(chan struct{}, 3)}
	sched := NewBackupScheduler(users, pusher, nil, testBackupConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	sched.Sweep(ctx)

	for i := 0; i < 3; i++ {
		select {
		case <-pusher.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for backup jobs")
		}
	}
	sched.Stop()

	pusher.mu.Lock()
	defer pusher.mu.Unlock()
	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, pusher.users)
}

func TestSweepSkipsWhenPreviousStillRunning(t *testing.T) {
	users := &userListStub{release: make(chan struct{})}
	sched := NewBackupScheduler(users, &pushAutoStub{}, nil, testBackupConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	started := make(chan struct{})
	go func() {
		close(started)
		sched.Sweep(ctx)
	}()
	<-started
	require.Eventually(t, func() bool { return users.callCount() == 1 }, time.Second, 5*time.Millisecond)

	// Second sweep must bail out immediately instead of piling up.
	sched.Sweep(ctx)
	assert.Equal(t, 1, users.callCount())

	close(users.release)
	sched.Stop()
}
