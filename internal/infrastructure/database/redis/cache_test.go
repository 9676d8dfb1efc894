package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/FormulaInfer/internal/config"
	"github.com/turtacn/FormulaInfer/internal/testutil"
	pkgerrors "github.com/turtacn/FormulaInfer/pkg/errors"
)

type cachedResult struct {
	Mode     string   `json:"mode"`
	Formulas []string `json:"formulas"`
}

// ─────────────────────────────────────────────────────────────────────────────
// redismock: command shapes and error paths
// ─────────────────────────────────────────────────────────────────────────────

type CacheMockSuite struct {
	suite.Suite
	mock   redismock.ClientMock
	logger *testutil.MockLogger
	cache  Cache
}

func (s *CacheMockSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.logger = testutil.NewMockLogger()
	s.cache = NewRedisCache(NewClientFromUniversal(db, s.logger), s.logger, WithPrefix("test:"))
}

func (s *CacheMockSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CacheMockSuite) TestGet_Hit() {
	val := cachedResult{Mode: "general", Formulas: []string{"C O2"}}
	data, _ := json.Marshal(val)
	s.mock.ExpectGet("test:key1").SetVal(string(data))

	var dest cachedResult
	s.Require().NoError(s.cache.Get(context.Background(), "key1", &dest))
	s.Equal(val, dest)
}

func (s *CacheMockSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:key1").RedisNil()

	var dest cachedResult
	err := s.cache.Get(context.Background(), "key1", &dest)
	s.Equal(ErrCacheMiss, err)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeNotFound))
}

func (s *CacheMockSuite) TestGet_BackendError() {
	s.mock.ExpectGet("test:key1").SetErr(stderrors.New("connection reset"))

	var dest cachedResult
	err := s.cache.Get(context.Background(), "key1", &dest)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheMockSuite) TestGet_CorruptValue() {
	s.mock.ExpectGet("test:key1").SetVal("{not json")

	var dest cachedResult
	err := s.cache.Get(context.Background(), "key1", &dest)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func (s *CacheMockSuite) TestDelete() {
	s.mock.ExpectDel("test:k1", "test:k2").SetVal(2)
	s.NoError(s.cache.Delete(context.Background(), "k1", "k2"))
	s.NoError(s.cache.Delete(context.Background()))
}

func (s *CacheMockSuite) TestClaim() {
	s.mock.ExpectSetNX("test:job:1", 1, time.Minute).SetVal(true)
	s.mock.ExpectSetNX("test:job:1", 1, time.Minute).SetVal(false)

	ok, err := s.cache.Claim(context.Background(), "job:1", time.Minute)
	s.NoError(err)
	s.True(ok)
	ok, err = s.cache.Claim(context.Background(), "job:1", time.Minute)
	s.NoError(err)
	s.False(ok)
}

func (s *CacheMockSuite) TestGetOrLoad_LoaderErrorIsReturnedUnchanged() {
	s.mock.ExpectGet("test:key1").RedisNil()
	want := pkgerrors.InputError("bad input")

	var dest cachedResult
	hit, err := s.cache.GetOrLoad(context.Background(), "key1", &dest, time.Minute,
		func(context.Context) (interface{}, error) { return nil, want })
	s.False(hit)
	s.Same(want, err)
}

func (s *CacheMockSuite) TestGetOrLoad_BrokenCacheStillLoads() {
	s.mock.ExpectGet("test:key1").SetErr(stderrors.New("timeout"))
	s.mock.Regexp().ExpectSet("test:key1", `.*`, time.Minute).SetErr(stderrors.New("timeout"))

	var dest cachedResult
	hit, err := s.cache.GetOrLoad(context.Background(), "key1", &dest, time.Minute,
		func(context.Context) (interface{}, error) { return cachedResult{Mode: "general"}, nil })
	s.NoError(err)
	s.False(hit)
	s.Equal("general", dest.Mode)
	s.True(s.logger.HasMessage("warn", "cache read failed, loading directly"))
	s.True(s.logger.HasMessage("warn", "failed to populate cache"))
}

func TestCacheMockSuite(t *testing.T) {
	suite.Run(t, new(CacheMockSuite))
}

// ─────────────────────────────────────────────────────────────────────────────
// miniredis: end-to-end behaviour
// ─────────────────────────────────────────────────────────────────────────────

func newMiniCache(t *testing.T, opts ...CacheOption) (*miniredis.Miniredis, Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisCache(client, nil, opts...)
}

func TestCache_SetGetWithTTL(t *testing.T) {
	mr, cache := newMiniCache(t, WithPrefix("f:"))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", cachedResult{Mode: "general"}, 10*time.Minute))
	assert.Equal(t, 10*time.Minute, mr.TTL("f:a"))

	var got cachedResult
	require.NoError(t, cache.Get(ctx, "a", &got))
	assert.Equal(t, "general", got.Mode)

	mr.FastForward(11 * time.Minute)
	assert.Equal(t, ErrCacheMiss, cache.Get(ctx, "a", &got))
}

func TestCache_DefaultTTLAndJitter(t *testing.T) {
	mr, cache := newMiniCache(t, WithDefaultTTL(time.Hour), WithTTLJitter(0.1))
	require.NoError(t, cache.Set(context.Background(), "j", 1, 0))

	ttl := mr.TTL("formula:j")
	assert.GreaterOrEqual(t, ttl, 54*time.Minute)
	assert.LessOrEqual(t, ttl, 66*time.Minute)
}

func TestCache_GetOrLoad(t *testing.T) {
	_, cache := newMiniCache(t)
	ctx := context.Background()
	var calls int32
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return cachedResult{Mode: "unknown_element", Formulas: []string{"?2 O"}}, nil
	}

	var first cachedResult
	hit, err := cache.GetOrLoad(ctx, "k", &first, time.Minute, loader)
	require.NoError(t, err)
	assert.False(t, hit)

	var second cachedResult
	hit, err = cache.GetOrLoad(ctx, "k", &second, time.Minute, loader)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCache_GetOrLoad_SingleFlight(t *testing.T) {
	_, cache := newMiniCache(t)
	var calls int32
	release := make(chan struct{})
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return cachedResult{Mode: "general"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var dest cachedResult
			_, err := cache.GetOrLoad(context.Background(), "sf", &dest, time.Minute, loader)
			assert.NoError(t, err)
			assert.Equal(t, "general", dest.Mode)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestCache_GetOrLoad_CancelledCallerDoesNotFailOthers(t *testing.T) {
	mr, cache := newMiniCache(t, WithLoadTimeout(time.Minute))
	started := make(chan struct{})
	release := make(chan struct{})
	var loadCtxErr atomic.Value
	loader := func(ctx context.Context) (interface{}, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			loadCtxErr.Store(err)
			return nil, err
		}
		return cachedResult{Mode: "unknown_element"}, nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		var dest cachedResult
		_, err := cache.GetOrLoad(ctxA, "shared", &dest, time.Minute, loader)
		errA <- err
	}()
	<-started

	type outcome struct {
		dest cachedResult
		err  error
	}
	resB := make(chan outcome, 1)
	go func() {
		var dest cachedResult
		_, err := cache.GetOrLoad(context.Background(), "shared", &dest, time.Minute, loader)
		resB <- outcome{dest, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting for the shared load")
	}

	close(release)
	select {
	case got := <-resB:
		require.NoError(t, got.err)
		assert.Equal(t, "unknown_element", got.dest.Mode)
	case <-time.After(time.Second):
		t.Fatal("second caller never received the shared result")
	}
	assert.Nil(t, loadCtxErr.Load())
	assert.True(t, mr.Exists("formula:shared"))
}

func TestCache_DeleteByPrefix(t *testing.T) {
	mr, cache := newMiniCache(t, WithPrefix("p:"))
	ctx := context.Background()
	for _, k := range []string{"inference:1", "inference:2", "other:1"} {
		require.NoError(t, cache.Set(ctx, k, k, time.Minute))
	}

	n, err := cache.DeleteByPrefix(ctx, "inference:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, mr.Exists("p:other:1"))
	assert.False(t, mr.Exists("p:inference:1"))
}

func TestCache_ClaimExpires(t *testing.T) {
	mr, cache := newMiniCache(t)
	ctx := context.Background()

	ok, err := cache.Claim(ctx, "job", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = cache.Claim(ctx, "job", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Second)
	ok, err = cache.Claim(ctx, "job", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
