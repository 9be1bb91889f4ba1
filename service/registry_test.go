package service

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usorama/tutorkit/config"
	"github.com/usorama/tutorkit/errors"
	"github.com/usorama/tutorkit/health"
	"github.com/usorama/tutorkit/lifecycle"
)

func newTestService(name string, hooks Hooks) *Supervisor {
	if hooks == nil {
		hooks = &recordingHooks{}
	}
	return New(name, hooks)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("a", newTestService("a", nil)))
	assert.Equal(t, 1, r.Count())

	svc, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", svc.Name())
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register("", newTestService("x", nil)))
	assert.Error(t, r.Register("x", nil))
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", newTestService("a", nil)))

	err := r.Register("a", newTestService("a", nil))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindDuplicateRegistration))
}

func TestRegistry_DependencyMissing(t *testing.T) {
	r := NewRegistry()

	err := r.Register("b", newTestService("b", nil), "a")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindDependencyMissing))
	assert.Contains(t, err.Error(), `"a"`)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_InitializationOrder(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("store", newTestService("store", nil)))
	require.NoError(t, r.Register("users", newTestService("users", nil), "store"))
	require.NoError(t, r.Register("engine", newTestService("engine", nil), "store", "users"))

	order := r.InitializationOrder()
	require.Equal(t, []string{"store", "users", "engine"}, order)

	// a returned copy cannot corrupt the registry
	order[0] = "mutated"
	assert.Equal(t, []string{"store", "users", "engine"}, r.InitializationOrder())
}

func TestRegistry_OrderInsertsAfterLatestDependency(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("a", newTestService("a", nil)))
	require.NoError(t, r.Register("b", newTestService("b", nil), "a"))
	require.NoError(t, r.Register("c", newTestService("c", nil), "b"))

	// depends only on "a": lands after "a", before independents added later
	require.NoError(t, r.Register("d", newTestService("d", nil), "a"))

	order := r.InitializationOrder()
	posA := indexOf(order, "a")
	posB := indexOf(order, "b")
	posC := indexOf(order, "c")
	posD := indexOf(order, "d")

	assert.Less(t, posA, posB)
	assert.Less(t, posB, posC)
	assert.Less(t, posA, posD)
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("ghost")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindServiceNotFound))
}

func TestRegistry_Dependencies(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", newTestService("a", nil)))
	require.NoError(t, r.Register("b", newTestService("b", nil), "a"))

	assert.Equal(t, []string{"a"}, r.Dependencies("b"))
	assert.Empty(t, r.Dependencies("a"))
	assert.Empty(t, r.Dependencies("ghost"))
}

func TestRegistry_InitializeAllInOrder(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	var initOrder []string
	makeHooks := func(name string) Hooks {
		return &HooksFuncs{
			InitFunc: func(_ context.Context) error {
				initOrder = append(initOrder, name)
				return nil
			},
		}
	}

	require.NoError(t, r.Register("store", New("store", makeHooks("store"))))
	require.NoError(t, r.Register("users", New("users", makeHooks("users")), "store"))
	require.NoError(t, r.Register("engine", New("engine", makeHooks("engine")), "users"))

	require.NoError(t, r.InitializeAll(ctx))
	assert.Equal(t, []string{"store", "users", "engine"}, initOrder)

	for _, name := range r.InitializationOrder() {
		svc, err := r.Get(name)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StateReady, svc.State())
	}
}

func TestRegistry_InitializeAllFailFast(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	okHooks := &recordingHooks{}
	badHooks := &recordingHooks{initErr: stderrors.New("no database")}
	neverHooks := &recordingHooks{}

	require.NoError(t, r.Register("a", New("a", okHooks)))
	require.NoError(t, r.Register("b", New("b", badHooks), "a"))
	require.NoError(t, r.Register("c", New("c", neverHooks), "b"))

	err := r.InitializeAll(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInitializationFailed))
	assert.Equal(t, errors.SeverityCritical, errors.SeverityOf(err))

	// services after the failure were never touched
	assert.Equal(t, int64(0), neverHooks.initCalls.Load())

	a, _ := r.Get("a")
	b, _ := r.Get("b")
	c, _ := r.Get("c")
	assert.Equal(t, lifecycle.StateReady, a.State())
	assert.Equal(t, lifecycle.StateErrored, b.State())
	assert.Equal(t, lifecycle.StateUninitialized, c.State())
}

func TestRegistry_InitializeAllSkipsDisabled(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	hooks := &recordingHooks{}
	disabled := config.ServiceConfig{Enabled: false}
	svc := New("off", hooks, WithConfig(disabled))

	require.NoError(t, r.Register("off", svc))
	require.NoError(t, r.InitializeAll(ctx))

	assert.Equal(t, int64(0), hooks.initCalls.Load())
	assert.Equal(t, lifecycle.StateUninitialized, svc.State())
}

func TestRegistry_StartAllBestEffort(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	okHooks := &recordingHooks{}
	badHooks := &recordingHooks{startErr: stderrors.New("bind failed")}
	laterHooks := &recordingHooks{}

	require.NoError(t, r.Register("a", New("a", okHooks)))
	require.NoError(t, r.Register("b", New("b", badHooks)))
	require.NoError(t, r.Register("c", New("c", laterHooks)))

	require.NoError(t, r.InitializeAll(ctx))

	err := r.StartAll(ctx)
	require.Error(t, err)

	// the failure did not stop independent services from starting
	assert.Equal(t, int64(1), okHooks.startCalls.Load())
	assert.Equal(t, int64(1), laterHooks.startCalls.Load())

	a, _ := r.Get("a")
	b, _ := r.Get("b")
	c, _ := r.Get("c")
	assert.Equal(t, lifecycle.StateActive, a.State())
	assert.Equal(t, lifecycle.StateErrored, b.State())
	assert.Equal(t, lifecycle.StateActive, c.State())
}

func TestRegistry_StopAllReverseOrder(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	var stopOrder []string
	makeHooks := func(name string) Hooks {
		return &HooksFuncs{
			StopFunc: func(_ context.Context) error {
				stopOrder = append(stopOrder, name)
				return nil
			},
		}
	}

	require.NoError(t, r.Register("store", New("store", makeHooks("store"))))
	require.NoError(t, r.Register("users", New("users", makeHooks("users")), "store"))
	require.NoError(t, r.Register("engine", New("engine", makeHooks("engine")), "users"))

	require.NoError(t, r.InitializeAll(ctx))
	require.NoError(t, r.StartAll(ctx))
	require.NoError(t, r.StopAll(ctx))

	assert.Equal(t, []string{"engine", "users", "store"}, stopOrder)
}

func TestRegistry_StopAllContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	badHooks := &recordingHooks{stopErr: stderrors.New("flush failed")}
	okHooks := &recordingHooks{}

	require.NoError(t, r.Register("a", New("a", okHooks)))
	require.NoError(t, r.Register("b", New("b", badHooks), "a"))

	require.NoError(t, r.InitializeAll(ctx))
	require.NoError(t, r.StartAll(ctx))

	// b stops first (reverse order) and fails; a is still stopped
	err := r.StopAll(ctx)
	require.Error(t, err)
	assert.Equal(t, int64(1), okHooks.stopCalls.Load())

	a, _ := r.Get("a")
	assert.Equal(t, lifecycle.StateStopped, a.State())
}

func TestRegistry_Unregister(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	hooks := &recordingHooks{}
	require.NoError(t, r.Register("a", New("a", hooks)))
	require.NoError(t, r.InitializeAll(ctx))
	require.NoError(t, r.StartAll(ctx))

	r.Unregister(ctx, "a")
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, int64(1), hooks.stopCalls.Load())
	assert.Empty(t, r.InitializationOrder())

	// unknown names are a no-op
	r.Unregister(ctx, "ghost")
}

func TestRegistry_Health(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	healthy := New("up", &recordingHooks{})
	unhealthy := New("down", &recordingHooks{
		healthFn: func(_ context.Context) health.Status {
			return health.NewUnhealthy("", "backend gone")
		},
	})

	require.NoError(t, r.Register("up", healthy))
	require.NoError(t, r.Register("down", unhealthy))
	require.NoError(t, r.InitializeAll(ctx))
	require.NoError(t, r.StartAll(ctx))

	statuses := r.Health(ctx)
	require.Len(t, statuses, 2)
	assert.True(t, statuses["up"].IsHealthy())
	assert.True(t, statuses["down"].IsUnhealthy())

	// last results are cached in the monitor
	cached, ok := r.Monitor().Get("down")
	require.True(t, ok)
	assert.True(t, cached.IsUnhealthy())
}

func TestRegistry_AggregatedHealth(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	require.NoError(t, r.Register("a", New("a", &recordingHooks{})))
	require.NoError(t, r.InitializeAll(ctx))
	require.NoError(t, r.StartAll(ctx))

	agg := r.AggregatedHealth(ctx)
	assert.True(t, agg.IsHealthy())
	assert.Equal(t, 1, agg.Total)

	// empty registry aggregates healthy
	empty := NewRegistry()
	assert.True(t, empty.AggregatedHealth(ctx).IsHealthy())
}

func TestRegistry_Clear(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	hooks := &recordingHooks{}
	require.NoError(t, r.Register("a", New("a", hooks)))
	require.NoError(t, r.InitializeAll(ctx))
	require.NoError(t, r.StartAll(ctx))

	r.Clear(ctx)
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, int64(1), hooks.stopCalls.Load())
	assert.Equal(t, 0, r.Monitor().Count())
}
