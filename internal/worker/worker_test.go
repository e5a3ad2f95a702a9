package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/adapters/logger"
	"github.com/FerDeNetlab/auramarket/internal/adapters/messaging"
	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/FerDeNetlab/auramarket/internal/domain/services"
	"github.com/FerDeNetlab/auramarket/internal/metrics"
	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	pkgmodels "github.com/FerDeNetlab/auramarket/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	mu      sync.Mutex
	calls   []string
	syncErr error
	refresh error
}

func (f *fakeExecutor) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeExecutor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeExecutor) SyncProvider(_ context.Context, id string) error {
	f.record("sync:" + id)
	return f.syncErr
}

func (f *fakeExecutor) UploadToHub(_ context.Context, id string) error {
	f.record("upload:" + id)
	return nil
}

func (f *fakeExecutor) SyncAll(context.Context) services.BulkResult {
	f.record("sync_all")
	return services.BulkResult{Action: models.ActionDownload}
}

func (f *fakeExecutor) PublishAll(context.Context) services.BulkResult {
	f.record("publish_all")
	return services.BulkResult{Action: models.ActionUpload}
}

func (f *fakeExecutor) Refresh(context.Context) error {
	f.record("refresh")
	return f.refresh
}

func commandMessage(t *testing.T, cmd pkgmodels.HubCommand) *interfaces.Message {
	t.Helper()
	raw, err := json.Marshal(cmd)
	require.NoError(t, err)
	return &interfaces.Message{ID: "m1", Topic: messaging.DefaultCommandTopic, Value: raw}
}

func TestDispatcher_Handle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cmd        pkgmodels.HubCommand
		syncErr    error
		refreshErr error
		wantCall   string
		wantErr    bool
		wantStatus string
	}{
		{
			name:       "sync provider",
			cmd:        pkgmodels.HubCommand{Type: pkgmodels.CommandSyncProvider, ProviderID: "cva"},
			wantCall:   "sync:cva",
			wantStatus: statusSuccess,
		},
		{
			name:       "upload provider",
			cmd:        pkgmodels.HubCommand{Type: pkgmodels.CommandUploadProvider, ProviderID: "fulfil"},
			wantCall:   "upload:fulfil",
			wantStatus: statusSuccess,
		},
		{
			name:       "sync all",
			cmd:        pkgmodels.HubCommand{Type: pkgmodels.CommandSyncAll},
			wantCall:   "sync_all",
			wantStatus: statusSuccess,
		},
		{
			name:       "publish all",
			cmd:        pkgmodels.HubCommand{Type: pkgmodels.CommandPublishAll},
			wantCall:   "publish_all",
			wantStatus: statusSuccess,
		},
		{
			name:       "rejected is not an error",
			cmd:        pkgmodels.HubCommand{Type: pkgmodels.CommandSyncProvider, ProviderID: "cva"},
			syncErr:    &models.PreconditionError{Kind: models.AlreadyInFlight, EntityID: "cva"},
			wantCall:   "sync:cva",
			wantStatus: statusRejected,
		},
		{
			name:       "refresh failure",
			cmd:        pkgmodels.HubCommand{Type: pkgmodels.CommandRefresh},
			refreshErr: errors.New("store down"),
			wantCall:   "refresh",
			wantErr:    true,
			wantStatus: statusError,
		},
		{
			name:       "missing provider id",
			cmd:        pkgmodels.HubCommand{Type: pkgmodels.CommandSyncProvider},
			wantStatus: statusInvalid,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exec := &fakeExecutor{syncErr: tt.syncErr, refresh: tt.refreshErr}
			m := metrics.NewWorkerMetrics(prometheus.NewRegistry())
			d := NewDispatcher(messaging.NewMemoryBus(), messaging.DefaultCommandTopic, exec, logger.NewNop(), m)

			err := d.Handle(context.Background(), commandMessage(t, tt.cmd))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			if tt.wantCall == "" {
				assert.Empty(t, exec.Calls())
			} else {
				assert.Equal(t, []string{tt.wantCall}, exec.Calls())
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Processed.WithLabelValues(messaging.DefaultCommandTopic, tt.wantStatus)))
			assert.Equal(t, 0.0, testutil.ToFloat64(m.Active))
		})
	}
}

func TestDispatcher_GarbagePayload(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{}
	d := NewDispatcher(messaging.NewMemoryBus(), messaging.DefaultCommandTopic, exec, logger.NewNop(), nil)

	err := d.Handle(context.Background(), &interfaces.Message{Value: []byte("{not json")})
	assert.NoError(t, err)
	assert.Empty(t, exec.Calls())
}

func TestScheduler_IssueValidates(t *testing.T) {
	t.Parallel()

	bus := messaging.NewMemoryBus()
	s := NewScheduler(bus, SchedulerOptions{}, logger.NewNop())

	_, err := s.Issue(context.Background(), pkgmodels.CommandSyncProvider, "")
	assert.Error(t, err)
	assert.Empty(t, bus.Published(messaging.DefaultCommandTopic))

	cmd, err := s.Issue(context.Background(), pkgmodels.CommandSyncProvider, "cva")
	require.NoError(t, err)
	assert.Equal(t, "scheduler", cmd.RequestedBy)

	msgs := bus.Published(messaging.DefaultCommandTopic)
	require.Len(t, msgs, 1)
	assert.Equal(t, "cva", msgs[0].Key)
	assert.Equal(t, messaging.HubCommandIssuedEvent, msgs[0].Headers[messaging.HeaderEventType])
}

func TestScheduler_DrivesDispatcher(t *testing.T) {
	t.Parallel()

	bus := messaging.NewMemoryBus()
	exec := &fakeExecutor{}
	d := NewDispatcher(bus, messaging.DefaultCommandTopic, exec, logger.NewNop(), nil)
	s := NewScheduler(bus, SchedulerOptions{SyncInterval: 10 * time.Millisecond}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, d.Run(ctx))
	}()

	// дожидаемся подписки, иначе первые команды уйдут в пустоту
	require.Eventually(t, func() bool {
		_, err := s.Issue(ctx, pkgmodels.CommandRefresh, "")
		return err == nil && len(exec.Calls()) > 0
	}, time.Second, 5*time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Run(ctx))
	}()

	require.Eventually(t, func() bool {
		for _, c := range exec.Calls() {
			if c == "sync_all" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()

	for _, c := range exec.Calls() {
		assert.NotEqual(t, "publish_all", c)
	}
}
