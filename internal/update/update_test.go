package update

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flarebyte/codepen-export/internal/prefs"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Unix(1760000000, 0)

func versionServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("User-Agent") == "" {
			http.Error(w, "missing user agent", http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newChecker(url string, store prefs.Store) *Checker {
	return &Checker{
		Store:          store,
		Client:         &http.Client{Timeout: 2 * time.Second},
		Now:            func() time.Time { return fixedNow },
		VersionInfoURL: url,
		DownloadURL:    "https://example.test/download/",
		UserAgent:      "codepen-export-test",
		Interval:       24 * time.Hour,
		Current:        1,
	}
}

func TestCheck_NewerVersionThenRateLimited(t *testing.T) {
	srv, hits := versionServer(t, http.StatusOK, "2\n")
	store := prefs.NewMemoryStore()
	c := newChecker(srv.URL, store)

	n, err := c.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, &Notice{URL: "https://example.test/download/", FromVersion: "1", ToVersion: "2"}, n)

	ts, ok, err := store.Get(TimestampKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, strconv.FormatInt(fixedNow.Unix(), 10), ts)

	n, err = c.Check(context.Background())
	require.NoError(t, err)
	require.Nil(t, n)
	require.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestCheck_SameVersionIsQuiet(t *testing.T) {
	srv, _ := versionServer(t, http.StatusOK, "1")
	n, err := newChecker(srv.URL, prefs.NewMemoryStore()).Check(context.Background())
	require.NoError(t, err)
	require.Nil(t, n)
}

func TestCheck_PersistsTimestampEvenWhenFetchFails(t *testing.T) {
	srv, _ := versionServer(t, http.StatusOK, "not a number")
	store := prefs.NewMemoryStore()
	_, err := newChecker(srv.URL, store).Check(context.Background())
	require.Error(t, err)
	_, ok, _ := store.Get(TimestampKey)
	require.True(t, ok)
}

func TestCheck_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv, _ := versionServer(t, http.StatusNotFound, "2")
		_, err := newChecker(srv.URL, prefs.NewMemoryStore()).Check(context.Background())
		require.Error(t, err)
	})
	t.Run("network", func(t *testing.T) {
		srv, _ := versionServer(t, http.StatusOK, "2")
		srv.Close()
		_, err := newChecker(srv.URL, prefs.NewMemoryStore()).Check(context.Background())
		require.Error(t, err)
	})
	t.Run("store", func(t *testing.T) {
		_, err := newChecker("http://127.0.0.1:1", failingStore{}).Check(context.Background())
		require.Error(t, err)
	})
}

func TestCheck_ElapsedThreshold(t *testing.T) {
	srv, hits := versionServer(t, http.StatusOK, "3")
	store := prefs.NewMemoryStore()
	c := newChecker(srv.URL, store)

	require.NoError(t, store.Set(TimestampKey, strconv.FormatInt(fixedNow.Unix()-86400, 10)))
	n, err := c.Check(context.Background())
	require.NoError(t, err)
	require.Nil(t, n, "exactly one interval elapsed is not enough")
	require.EqualValues(t, 0, atomic.LoadInt32(hits))

	require.NoError(t, store.Set(TimestampKey, strconv.FormatInt(fixedNow.Unix()-86401, 10)))
	n, err = c.Check(context.Background())
	require.NoError(t, err)
	require.NotNil(t, n)
	require.Equal(t, "3", n.ToVersion)
}

func TestDue(t *testing.T) {
	require.True(t, Due("", false, fixedNow, time.Hour))
	require.True(t, Due("garbage", true, fixedNow, time.Hour))
	require.False(t, Due(strconv.FormatInt(fixedNow.Unix(), 10), true, fixedNow, time.Hour))
	require.True(t, Due(strconv.FormatInt(fixedNow.Unix()-3601, 10), true, fixedNow, time.Hour))
}

type failingStore struct{}

func (failingStore) Get(string) (string, bool, error) { return "", false, errors.New("store down") }
func (failingStore) Set(string, string) error         { return errors.New("store down") }
