// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/listsearch/pkg/types"
)

func TestClientFetch_OK(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("hello"))
	}))
	defer ts.Close()

	c := NewClient(types.HTTPConfig{UserAgent: "listsearch/test"}, nil)
	body, err := c.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "listsearch/test", gotUA)
	assert.Equal(t, defaultTimeout, c.HTTP.Timeout)
}

func TestClientFetch_HTTPErrorsAreNotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		c := NewClient(types.HTTPConfig{}, nil)
		_, err := c.Fetch(context.Background(), ts.URL)
		ts.Close()

		require.Error(t, err)
		assert.True(t, IsNotFound(err), "status %d", status)
		assert.False(t, errors.Is(err, ErrUnreachable))

		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, status, fe.Status)
	}
}

func TestClientFetch_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := ts.URL
	ts.Close()

	c := NewClient(types.HTTPConfig{Timeout: time.Second}, nil)
	_, err := c.Fetch(context.Background(), url)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.False(t, IsNotFound(err))
}

func TestClientFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	c := NewClient(types.HTTPConfig{Timeout: 50 * time.Millisecond}, nil)
	_, err := c.Fetch(context.Background(), ts.URL)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestGunzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("From a@b Mon Jun  1 00:00:00 2020\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	out, err := Gunzip(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "From a@b Mon Jun  1 00:00:00 2020\n", string(out))
}

func TestGunzip_PlainPassesThrough(t *testing.T) {
	out, err := Gunzip([]byte("plain mbox"))
	require.NoError(t, err)
	assert.Equal(t, "plain mbox", string(out))
}

func TestGunzip_Truncated(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write(bytes.Repeat([]byte("x"), 4096))
	zw.Close()

	_, err := Gunzip(buf.Bytes()[:20])
	assert.Error(t, err)
}
