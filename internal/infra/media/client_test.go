package media

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryProvidersFallsBackInOrder(t *testing.T) {
	var hits []string

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, "down")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, "up")
		json.NewEncoder(w).Encode(VideoMetadata{ExternalID: "yt-1", Title: "ok"})
	}))
	defer up.Close()

	c := NewClient([]string{down.URL, up.URL}, time.Second)
	result, err := c.GetVideo(context.Background(), "yt-1")
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Title)
	assert.Equal(t, []string{"down", "up"}, hits, "must try providers strictly in configured order")
}

func TestTryProvidersAllFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	c := NewClient([]string{down.URL}, time.Second)
	_, err := c.GetVideo(context.Background(), "yt-1")
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestTryProvidersAllNotFoundReportsErrNotFound(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFound.Close()

	c := NewClient([]string{notFound.URL, notFound.URL}, time.Second)
	_, err := c.GetVideo(context.Background(), "yt-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAllProvidersFailed)
}

func TestTryProvidersNotFoundThenServerErrorReportsAllProvidersFailed(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFound.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	c := NewClient([]string{notFound.URL, down.URL}, time.Second)
	_, err := c.GetVideo(context.Background(), "yt-1")
	assert.ErrorIs(t, err, ErrAllProvidersFailed, "a non-404 failure means the resource's existence is unknown")
}

func TestTryProvidersNoProvidersConfigured(t *testing.T) {
	c := NewClient(nil, time.Second)
	_, err := c.Search(context.Background(), "query")
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestGetPlaylistStopsOnEmptyNextPageToken(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		resp := struct {
			Items         []VideoMetadata `json:"items"`
			NextPageToken string          `json:"nextPageToken"`
		}{
			Items: []VideoMetadata{{ExternalID: fmt.Sprintf("yt-%d", n)}},
		}
		if n < 3 {
			resp.NextPageToken = fmt.Sprintf("token-%d", n)
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient([]string{srv.URL}, time.Second)
	result, err := c.GetPlaylist(context.Background(), "pl-1")
	require.NoError(t, err)
	assert.Len(t, result.Videos, 3)
	assert.Equal(t, 3, result.VideoCount)
	assert.Equal(t, "pl-1", result.PlaylistID)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestGetPlaylistCapsAtMaxPages(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		resp := struct {
			Items         []VideoMetadata `json:"items"`
			NextPageToken string          `json:"nextPageToken"`
		}{
			Items:         []VideoMetadata{{ExternalID: fmt.Sprintf("yt-%d", n)}},
			NextPageToken: fmt.Sprintf("token-%d", n), // never terminates on its own
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient([]string{srv.URL}, time.Second)
	result, err := c.GetPlaylist(context.Background(), "pl-1")
	require.NoError(t, err)
	assert.Len(t, result.Videos, 10, "must stop at the 10-page cap even if the provider keeps paginating")
	assert.EqualValues(t, 10, atomic.LoadInt32(&calls))
}
