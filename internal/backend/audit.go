package backend

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	"rbacview/internal/store"
)

const (
	DefaultAuditLimit = 1000

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuditEntry is one mutation attempt, shaped like a Kubernetes object so the
// dashboard lists it like any other record.
type AuditEntry struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata"`

	Action          string `json:"action"`
	Resource        string `json:"resource"`
	TargetNamespace string `json:"targetNamespace,omitempty"`
	TargetName      string `json:"targetName"`
	Outcome         string `json:"outcome"`
	Code            int    `json:"code"`
	Error           string `json:"error,omitempty"`
	RemoteAddr      string `json:"remoteAddr,omitempty"`
}

// AuditLog keeps the most recent entries in a bbolt bucket, oldest first by
// key.
type AuditLog struct {
	mu     sync.Mutex
	bucket *store.Bucket
	limit  int
	now    func() time.Time
}

func NewAuditLog(st *store.Store, limit int) *AuditLog {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	return &AuditLog{bucket: st.Bucket("audit"), limit: limit, now: time.Now}
}

func (a *AuditLog) Record(e AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := uuid.NewString()
	e.TypeMeta = metav1.TypeMeta{Kind: "AuditEntry", APIVersion: "rbacview/v1"}
	e.ObjectMeta = metav1.ObjectMeta{
		Name:              id,
		UID:               types.UID(id),
		CreationTimestamp: metav1.NewTime(a.now()),
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	seq, err := a.bucket.NextSequence()
	if err != nil {
		return err
	}
	if err := a.bucket.Save(fmt.Sprintf("%020d", seq), b); err != nil {
		return err
	}
	return a.trim()
}

func (a *AuditLog) trim() error {
	var keys []string
	if err := a.bucket.Each(func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	}); err != nil {
		return err
	}
	for i := 0; i < len(keys)-a.limit; i++ {
		if err := a.bucket.Delete(keys[i]); err != nil {
			return err
		}
	}
	return nil
}

// List returns the entries newest first.
func (a *AuditLog) List() ([]AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := []AuditEntry{}
	err := a.bucket.Each(func(key string, value []byte) error {
		var e AuditEntry
		if err := json.Unmarshal(value, &e); err != nil {
			return fmt.Errorf("decode audit entry %s: %w", key, err)
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
