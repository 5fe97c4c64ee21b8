package cluster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/clientcmd/api"
)

type ContextInfo struct {
	Name      string `json:"name"`
	Cluster   string `json:"cluster"`
	AuthInfo  string `json:"authInfo"`
	Namespace string `json:"namespace,omitempty"`
}

// Manager tracks the kubeconfig contexts and caches one client set per
// context.
type Manager struct {
	mu sync.RWMutex

	kubeconfigPath string
	rawConfig      api.Config

	activeContext string

	clients map[string]*Clients
}

type Clients struct {
	RestConfig *rest.Config
	Clientset  kubernetes.Interface
	Discovery  discovery.DiscoveryInterface
}

func DefaultKubeconfigPath() string {
	if v := os.Getenv("KUBECONFIG"); v != "" {
		// Only the first entry of a ':' separated list is used.
		if list := filepath.SplitList(v); len(list) > 0 {
			return list[0]
		}
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".kube", "config")
}

// NewManager loads the kubeconfig at path, or the default location when path
// is empty.
func NewManager(path string) (*Manager, error) {
	if path == "" {
		path = DefaultKubeconfigPath()
	}

	loadingRules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: path}
	cfg, err := loadingRules.Load()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}

	log.WithFields(log.Fields{"kubeconfig": path, "context": cfg.CurrentContext}).Info("loaded kubeconfig")
	return &Manager{
		kubeconfigPath: path,
		rawConfig:      *cfg,
		activeContext:  cfg.CurrentContext,
		clients:        map[string]*Clients{},
	}, nil
}

// NewStaticManager serves a single prebuilt client set under the given context
// name. Used with fake clients and in-cluster setups.
func NewStaticManager(name string, c *Clients) *Manager {
	if c.Discovery == nil && c.Clientset != nil {
		c.Discovery = c.Clientset.Discovery()
	}
	raw := api.NewConfig()
	raw.Contexts[name] = &api.Context{Cluster: name}
	raw.CurrentContext = name
	return &Manager{
		rawConfig:     *raw,
		activeContext: name,
		clients:       map[string]*Clients{name: c},
	}
}

func (m *Manager) ListContexts() []ContextInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ContextInfo, 0, len(m.rawConfig.Contexts))
	for name, ctx := range m.rawConfig.Contexts {
		out = append(out, ContextInfo{
			Name:      name,
			Cluster:   ctx.Cluster,
			AuthInfo:  ctx.AuthInfo,
			Namespace: ctx.Namespace,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Manager) ActiveContext() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeContext
}

func (m *Manager) SetActiveContext(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rawConfig.Contexts[name]; !ok {
		return fmt.Errorf("unknown context: %s", name)
	}
	m.activeContext = name
	return nil
}

func (m *Manager) GetClients(ctx context.Context) (*Clients, string, error) {
	m.mu.RLock()
	active := m.activeContext
	if c, ok := m.clients[active]; ok {
		m.mu.RUnlock()
		return c, active, nil
	}
	m.mu.RUnlock()

	// Exec plugins in the kubeconfig are honoured, so OIDC logins work.
	overrides := &clientcmd.ConfigOverrides{CurrentContext: active}
	loadingRules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: m.kubeconfigPath}
	cc := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides)

	restCfg, err := cc.ClientConfig()
	if err != nil {
		return nil, active, fmt.Errorf("build rest config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, active, fmt.Errorf("new clientset: %w", err)
	}

	disc, err := discovery.NewDiscoveryClientForConfig(restCfg)
	if err != nil {
		return nil, active, fmt.Errorf("new discovery: %w", err)
	}

	clients := &Clients{
		RestConfig: restCfg,
		Clientset:  clientset,
		Discovery:  disc,
	}

	m.mu.Lock()
	m.clients[active] = clients
	m.mu.Unlock()

	log.WithField("context", active).Debug("built cluster clients")
	return clients, active, nil
}
