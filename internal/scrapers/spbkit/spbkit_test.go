package spbkit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/db"

	"github.com/stretchr/testify/require"
)

const endpointPath = "/replacements/api/fetch-rep"

type memoryCache map[db.CacheKey]string

func (m memoryCache) Get(_ context.Context, key db.CacheKey) (string, bool, error) {
	value, ok := m[key]
	return value, ok, nil
}

type site struct {
	server *httptest.Server
	index  string
	page   string
	status int
}

func newSite(t *testing.T) *site {
	s := &site{status: http.StatusOK, page: "<table></table>"}
	mux := http.NewServeMux()
	mux.HandleFunc("/index.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("option") != "com_content" || r.URL.Query().Get("Itemid") != "65" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, s.index)
	})
	mux.HandleFunc(endpointPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(s.status)
		fmt.Fprint(w, s.page)
	})
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)
	return s
}

func (s *site) client(t *testing.T, rec *telemetry.Recorder) Client {
	client, err := NewClient(Config{
		IndexUrl:     s.server.URL + "/index.php",
		AnchorLabel:  "Замены в расписании",
		AnchorClass:  "sublevel",
		EndpointPath: endpointPath,
	}, rec)
	require.NoError(t, err)
	return client
}

func TestResolveEndpoint(t *testing.T) {
	s := newSite(t)
	s.index = fmt.Sprintf(`<html><body>
		<a class="mainlevel" href="%[1]s/other">Замены в расписании</a>
		<a class="sublevel" href="%[1]s/news">Новости</a>
		<a class="sublevel" href="%[1]s/some/deep/page?x=1">
			Замены  в расписании
		</a>
	</body></html>`, s.server.URL)

	endpoint, err := s.client(t, telemetry.NewRecorder()).ResolveEndpoint(context.Background())
	require.NoError(t, err)
	require.Equal(t, s.server.URL+endpointPath, endpoint)
}

func TestNewClientDefaults(t *testing.T) {
	s := newSite(t)
	s.index = fmt.Sprintf(`<a class="sublevel" href="%[1]s/news"></a>
		<a class="sublevel" href="%[1]s/page">Замены в расписании</a>`, s.server.URL)

	client, err := NewClient(Config{IndexUrl: s.server.URL + "/index.php"}, telemetry.NewRecorder())
	require.NoError(t, err)

	endpoint, err := client.ResolveEndpoint(context.Background())
	require.NoError(t, err)
	require.Equal(t, s.server.URL+endpointPath, endpoint)
}

func TestResolveEndpointFailures(t *testing.T) {
	table := []struct {
		name  string
		index string
	}{
		{name: "no anchor", index: `<a class="sublevel" href="http://example.com">Новости</a>`},
		{name: "wrong class", index: `<a class="mainlevel" href="http://example.com">Замены в расписании</a>`},
		{name: "relative href", index: `<a class="sublevel" href="/page">Замены в расписании</a>`},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			s := newSite(t)
			s.index = row.index
			_, err := s.client(t, telemetry.NewRecorder()).ResolveEndpoint(context.Background())
			require.ErrorIs(t, err, ErrResolution)
		})
	}
}

func TestResolveEndpointCached(t *testing.T) {
	s := newSite(t)
	s.index = "<html></html>"

	t.Run("fallback", func(t *testing.T) {
		rec := telemetry.NewRecorder()
		cache := memoryCache{db.CACHE_REPLACES_URL: "http://cached/replacements/api/fetch-rep"}
		endpoint, err := s.client(t, rec).ResolveEndpointCached(context.Background(), cache, db.CACHE_REPLACES_URL, false)
		require.NoError(t, err)
		require.Equal(t, "http://cached/replacements/api/fetch-rep", endpoint)
		require.True(t, rec.Has(telemetry.KindWarning, "fallback"))
	})

	t.Run("no cached endpoint", func(t *testing.T) {
		rec := telemetry.NewRecorder()
		_, err := s.client(t, rec).ResolveEndpointCached(context.Background(), memoryCache{}, db.CACHE_REPLACES_URL, false)
		require.ErrorIs(t, err, ErrResolution)
		require.True(t, rec.Has(telemetry.KindBroken, report_resolve_endpoint))
	})

	t.Run("fresh endpoint wins", func(t *testing.T) {
		s.index = fmt.Sprintf(`<a class="sublevel" href="%s/x">Замены в расписании</a>`, s.server.URL)
		cache := memoryCache{db.CACHE_REPLACES_URL: "http://cached/replacements/api/fetch-rep"}
		endpoint, err := s.client(t, telemetry.NewRecorder()).ResolveEndpointCached(context.Background(), cache, db.CACHE_REPLACES_URL, false)
		require.NoError(t, err)
		require.Equal(t, s.server.URL+endpointPath, endpoint)
	})

	t.Run("forced", func(t *testing.T) {
		cache := memoryCache{db.CACHE_REPLACES_URL: "http://cached/replacements/api/fetch-rep"}
		endpoint, err := s.client(t, telemetry.NewRecorder()).ResolveEndpointCached(context.Background(), cache, db.CACHE_REPLACES_URL, true)
		require.NoError(t, err)
		require.Equal(t, "http://cached/replacements/api/fetch-rep", endpoint)
	})
}

func TestFetchPage(t *testing.T) {
	s := newSite(t)
	client := s.client(t, telemetry.NewRecorder())

	page, err := client.FetchPage(context.Background(), s.server.URL+endpointPath)
	require.NoError(t, err)
	require.Equal(t, "<table></table>", string(page))

	s.status = http.StatusInternalServerError
	_, err = client.FetchPage(context.Background(), s.server.URL+endpointPath)
	require.ErrorIs(t, err, ErrFetch)

	_, err = client.FetchPage(context.Background(), "http://127.0.0.1:1/unreachable")
	require.ErrorIs(t, err, ErrFetch)
}
