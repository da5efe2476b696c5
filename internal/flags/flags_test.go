package flags

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/feedlens/internal/model"
)

func TestValue_Variant(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  model.Variant
		ok    bool
	}{
		{"absent", Absent, "", false},
		{"empty string", String(""), "", false},
		{"treatment", String("treatment"), model.VariantTreatment, true},
		{"bogus", String("bogus"), "", false},
		{"bool true", Bool(true), "", false},
		{"bool false", Bool(false), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.Variant()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "true", Bool(true).Raw())
	assert.True(t, Bool(false).Present())
}

func TestStaticSource(t *testing.T) {
	v, err := NewStaticSource("comparison").GetVariantFlag(context.Background(), model.FeatureFlagKey)
	require.NoError(t, err)
	assert.Equal(t, "comparison", v.Raw())

	v, err = NewStaticSource("").GetVariantFlag(context.Background(), model.FeatureFlagKey)
	require.NoError(t, err)
	assert.False(t, v.Present())
}

type slowSource struct {
	delay time.Duration
	value Value
	err   error
}

func (s slowSource) GetVariantFlag(ctx context.Context, key string) (Value, error) {
	select {
	case <-time.After(s.delay):
		return s.value, s.err
	case <-ctx.Done():
		return Absent, ctx.Err()
	}
}

func TestLoader_Await(t *testing.T) {
	l := Load(context.Background(), slowSource{delay: 5 * time.Millisecond, value: String("treatment")}, model.FeatureFlagKey, zerolog.Nop())

	v := l.Await(context.Background(), time.Second)
	assert.Equal(t, "treatment", v.Raw())
	assert.True(t, l.Ready())
	assert.NoError(t, l.Err())
}

func TestLoader_TimeoutFallsBackToAbsent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := Load(ctx, slowSource{delay: time.Second, value: String("treatment")}, model.FeatureFlagKey, zerolog.Nop())

	start := time.Now()
	v := l.Await(context.Background(), 20*time.Millisecond)
	assert.False(t, v.Present())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.False(t, l.Ready())
}

func TestLoader_ErrorIsAbsent(t *testing.T) {
	l := Load(context.Background(), slowSource{err: ErrUnavailable}, model.FeatureFlagKey, zerolog.Nop())

	v := l.Await(context.Background(), time.Second)
	assert.False(t, v.Present())
	assert.ErrorIs(t, l.Err(), ErrUnavailable)
}

func TestResolved(t *testing.T) {
	l := Resolved(model.FeatureFlagKey, String("control"))
	assert.True(t, l.Ready())
	assert.Equal(t, "control", l.Await(context.Background(), time.Millisecond).Raw())
}

func TestPostHogSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/decide/", r.URL.Path)

		var req decideRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "phc_test", req.APIKey)
		assert.Equal(t, "viewer-1", req.DistinctID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"featureFlags":{"post_detail_variant_test":"comparison","bool_flag":true,"numeric":3}}`))
	}))
	defer server.Close()

	src := NewPostHogSource(server.URL+"/", "phc_test", "viewer-1", time.Second)
	ctx := context.Background()

	v, err := src.GetVariantFlag(ctx, model.FeatureFlagKey)
	require.NoError(t, err)
	assert.Equal(t, "comparison", v.Raw())

	v, err = src.GetVariantFlag(ctx, "bool_flag")
	require.NoError(t, err)
	assert.Equal(t, "true", v.Raw())

	v, err = src.GetVariantFlag(ctx, "numeric")
	require.NoError(t, err)
	assert.False(t, v.Present())

	v, err = src.GetVariantFlag(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, v.Present())
}

func TestPostHogSource_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewPostHogSource(server.URL, "k", "d", time.Second).GetVariantFlag(context.Background(), model.FeatureFlagKey)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRedisSource(t *testing.T) {
	db, mock := redismock.NewClientMock()
	src := NewRedisSourceFromClient(db, "feature_flags:")
	ctx := context.Background()

	mock.ExpectGet("feature_flags:" + model.FeatureFlagKey).SetVal("treatment")
	v, err := src.GetVariantFlag(ctx, model.FeatureFlagKey)
	require.NoError(t, err)
	assert.Equal(t, "treatment", v.Raw())

	mock.ExpectGet("feature_flags:" + model.FeatureFlagKey).RedisNil()
	v, err = src.GetVariantFlag(ctx, model.FeatureFlagKey)
	require.NoError(t, err)
	assert.False(t, v.Present())

	mock.ExpectGet("feature_flags:" + model.FeatureFlagKey).SetErr(errors.New("connection refused"))
	_, err = src.GetVariantFlag(ctx, model.FeatureFlagKey)
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, src.Close())
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(model.FlagsConfig{Provider: "static", StaticValue: "treatment"}, "viewer")
	require.NoError(t, err)
	assert.IsType(t, &StaticSource{}, src)

	src, err = NewSource(model.FlagsConfig{Provider: "posthog", PostHogHost: "http://ph", PostHogAPIKey: "k", InitTimeout: time.Second}, "viewer")
	require.NoError(t, err)
	assert.Equal(t, "viewer", src.(*PostHogSource).distinctID)

	_, err = NewSource(model.FlagsConfig{Provider: "launchdarkly"}, "viewer")
	assert.Error(t, err)
}
