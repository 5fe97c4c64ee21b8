package cluster

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes/fake"
)

const kubeconfig = `apiVersion: v1
kind: Config
current-context: dev
clusters:
- name: dev-cluster
  cluster:
    server: https://dev.example:6443
- name: prod-cluster
  cluster:
    server: https://prod.example:6443
users:
- name: alice
  user:
    token: abc
contexts:
- name: prod
  context:
    cluster: prod-cluster
    user: alice
- name: dev
  context:
    cluster: dev-cluster
    user: alice
    namespace: team-a
`

func TestNewManagerContexts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(kubeconfig), 0o600))

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, "dev", m.ActiveContext())

	ctxs := m.ListContexts()
	require.Len(t, ctxs, 2)
	assert.Equal(t, ContextInfo{Name: "dev", Cluster: "dev-cluster", AuthInfo: "alice", Namespace: "team-a"}, ctxs[0])
	assert.Equal(t, "prod", ctxs[1].Name)

	require.NoError(t, m.SetActiveContext("prod"))
	assert.Equal(t, "prod", m.ActiveContext())
	assert.Error(t, m.SetActiveContext("staging"))

	c, active, err := m.GetClients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "prod", active)
	assert.Equal(t, "https://prod.example:6443", c.RestConfig.Host)

	again, _, err := m.GetClients(context.Background())
	require.NoError(t, err)
	assert.Same(t, c, again)
}

func TestStaticManager(t *testing.T) {
	cs := fake.NewSimpleClientset()
	m := NewStaticManager("fake", &Clients{Clientset: cs})

	c, active, err := m.GetClients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fake", active)
	assert.NotNil(t, c.Discovery)
	assert.Len(t, m.ListContexts(), 1)
}
