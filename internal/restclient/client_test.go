package restclient

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "http://backend.test"

func newMocked(t *testing.T, tokens TokenSource) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	return New(baseURL+"/", tokens, WithHTTPClient(&http.Client{Transport: mt})), mt
}

type countingTokens struct {
	calls atomic.Int32
	token string
}

func (c *countingTokens) Token() (string, error) {
	c.calls.Add(1)
	return c.token, nil
}

func TestListArrayAttachesBearerEveryCall(t *testing.T) {
	tokens := &countingTokens{token: "abc"}
	c, mt := newMocked(t, tokens)

	mt.RegisterResponder(http.MethodGet, baseURL+"/api/roles", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
		assert.Equal(t, "namespace=all", req.URL.RawQuery)
		return httpmock.NewStringResponse(http.StatusOK, `[
			{"metadata":{"name":"a","namespace":"default","uid":"1"}},
			{"metadata":{"name":"b","namespace":"dev","uid":"2"}}
		]`), nil
	})

	for i := 0; i < 2; i++ {
		items, err := c.List(context.Background(), RoleList())
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "a", items[0].GetName())
		assert.Equal(t, "dev", items[1].GetNamespace())
	}
	assert.EqualValues(t, 2, tokens.calls.Load())
	assert.Equal(t, 2, mt.GetTotalCallCount())
}

func TestListKubernetesListObject(t *testing.T) {
	c, mt := newMocked(t, StaticToken(""))
	mt.RegisterResponder(http.MethodGet, baseURL+"/api/namespaces", func(req *http.Request) (*http.Response, error) {
		assert.Empty(t, req.Header.Get("Authorization"))
		return httpmock.NewStringResponse(http.StatusOK, `{"kind":"NamespaceList","items":[{"metadata":{"name":"default"}}]}`), nil
	})

	items, err := c.List(context.Background(), NamespaceList())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "default", items[0].GetName())
}

func TestListEmptyBody(t *testing.T) {
	c, mt := newMocked(t, nil)
	mt.RegisterResponder(http.MethodGet, baseURL+"/api/users", httpmock.NewStringResponder(http.StatusOK, "null"))

	items, err := c.List(context.Background(), UserList())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNon2xxReturnsStatusError(t *testing.T) {
	c, mt := newMocked(t, StaticToken("x"))
	mt.RegisterResponder(http.MethodPost, baseURL+"/api/roles", httpmock.NewStringResponder(http.StatusConflict, `{"error":"role already exists"}`))

	err := c.Do(context.Background(), RoleCreate("default"), map[string]any{"kind": "Role"}, nil)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.Code)
	assert.Equal(t, "Conflict", se.Status)
	assert.Equal(t, "Conflict: role already exists", se.Error())
	assert.True(t, IsStatus(err, http.StatusConflict))
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

func TestNetworkFailurePropagates(t *testing.T) {
	c, mt := newMocked(t, nil)
	boom := errors.New("connection refused")
	mt.RegisterResponder(http.MethodGet, baseURL+"/api/clusterroles", httpmock.NewErrorResponder(boom))

	_, err := c.List(context.Background(), ClusterRoleList())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestDoSendsJSONBody(t *testing.T) {
	c, mt := newMocked(t, nil)
	mt.RegisterResponder(http.MethodPut, baseURL+"/api/roles", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.Equal(t, "namespace=default&name=reader", req.URL.RawQuery)
		return httpmock.NewStringResponse(http.StatusOK, `{"metadata":{"name":"reader"}}`), nil
	})

	var out map[string]any
	err := c.Do(context.Background(), RoleUpdate("default", "reader"), map[string]any{"rules": []any{}}, &out)
	require.NoError(t, err)
	assert.Contains(t, out, "metadata")
}

func TestTokenErrorStopsRequest(t *testing.T) {
	c, mt := newMocked(t, failingTokens{})
	mt.RegisterResponder(http.MethodGet, baseURL+"/api/roles", httpmock.NewStringResponder(http.StatusOK, "[]"))

	_, err := c.List(context.Background(), RoleList())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read token")
	assert.Zero(t, mt.GetTotalCallCount())
}

type failingTokens struct{}

func (failingTokens) Token() (string, error) { return "", errors.New("store closed") }

func TestCanI(t *testing.T) {
	c, mt := newMocked(t, nil)
	mt.RegisterResponder(http.MethodPost, baseURL+"/api/auth/can-i",
		httpmock.NewStringResponder(http.StatusOK, `{"allowed":true,"reason":"rbac"}`))

	res, err := c.CanI(context.Background(), AccessReviewRequest{Verb: "list", Resource: "roles"})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, "rbac", res.Reason)
}
