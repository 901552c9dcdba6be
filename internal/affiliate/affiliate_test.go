package affiliate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/RecoveryAshes/nicheharvest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	name     string
	programs map[string][]string
	err      error
}

func (p staticProvider) Name() string { return p.name }

func (p staticProvider) SupplyPrograms(context.Context) (map[string][]string, error) {
	return p.programs, p.err
}

func TestRegistryMergeOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(staticProvider{name: "a", programs: map[string][]string{
		"Gaming":  {"Razer"},
		"Fitness": {"Gymshark"},
	}})
	reg.Register(staticProvider{name: "b", programs: map[string][]string{
		"Gaming": {"Logitech", "SteelSeries"},
	}})

	programs := reg.Programs(context.Background())
	assert.Equal(t, []string{"Logitech", "SteelSeries"}, programs["Gaming"], "后注册的数据源应覆盖同名领域")
	assert.Equal(t, []string{"Gymshark"}, programs["Fitness"])
	assert.Equal(t, []string{"a", "b"}, reg.Providers())
}

func TestRegistrySkipsFailingProvider(t *testing.T) {
	reg := NewRegistry()
	reg.Register(staticProvider{name: "ok", programs: map[string][]string{"Cooking": {"HelloFresh"}}})
	reg.Register(staticProvider{name: "broken", err: errors.New("连接被拒绝")})

	programs := reg.Programs(context.Background())
	require.Len(t, programs, 1)
	assert.Equal(t, []string{"HelloFresh"}, programs["Cooking"])
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewBuiltinProvider())

	name, list, ok := reg.Lookup(context.Background(), "smart fitness")
	require.True(t, ok)
	assert.Equal(t, "Smart Fitness", name)
	assert.Contains(t, list, "Peloton")

	_, _, ok = reg.Lookup(context.Background(), "Underwater Basket Weaving")
	assert.False(t, ok)
}

func TestBuiltinProviderReturnsCopy(t *testing.T) {
	p := NewBuiltinProvider()
	first, err := p.SupplyPrograms(context.Background())
	require.NoError(t, err)
	first["Gaming"][0] = "changed"

	second, err := p.SupplyPrograms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Razer", second["Gaming"][0])
	assert.Len(t, second, len(builtinPrograms))
}

func TestRemoteProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Gaming": ["Razer", "G2A"], "Plant Care": ["The Sill"]}`))
	}))
	defer srv.Close()

	p := NewRemoteProvider(models.RemoteProviderConfig{Name: "feed", URL: srv.URL, Timeout: 2 * time.Second})
	assert.Equal(t, "feed", p.Name())

	programs, err := p.SupplyPrograms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"Gaming":     {"Razer", "G2A"},
		"Plant Care": {"The Sill"},
	}, programs)
}

func TestRemoteProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "服务端错误",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "无效JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{not json`))
			},
		},
		{
			name: "空响应",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`null`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewRemoteProvider(models.RemoteProviderConfig{URL: srv.URL, Timeout: 2 * time.Second})
			_, err := p.SupplyPrograms(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestRegistryDegradesWithRemoteFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	reg := NewRegistryFromConfig(models.AffiliateConfig{
		Builtin: true,
		RemoteProviders: []models.RemoteProviderConfig{
			{Name: "down", URL: srv.URL, Timeout: time.Second},
			{Name: "no-url"},
		},
	})
	assert.Equal(t, []string{"builtin", "down"}, reg.Providers())

	programs := reg.Programs(context.Background())
	assert.Len(t, programs, len(builtinPrograms))
	assert.GreaterOrEqual(t, hits.Load(), int32(1))
}

func TestSortedNiches(t *testing.T) {
	got := SortedNiches(map[string][]string{"b": nil, "a": nil, "c": nil})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
