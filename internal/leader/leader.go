// Package leader provides Kubernetes Lease-based leader election so that
// exactly one replica owns the auction session and writes its snapshots.
package leader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/jensholdgaard/cricket-auctionbot/internal/config"
)

// podNameEnv names the replica in the lease when set.
const podNameEnv = "POD_NAME"

// Identity is the name this replica holds the lease under: the pod name,
// else the hostname.
func Identity() string {
	if name := os.Getenv(podNameEnv); name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// InCluster returns a clientset for the cluster the process runs in.
func InCluster() (kubernetes.Interface, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("building in-cluster config: %w", err)
	}
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return client, nil
}

// Elector campaigns for the session lease on behalf of one replica.
type Elector struct {
	cfg    config.LeaderElectionConfig
	client kubernetes.Interface
	id     string
	logger *slog.Logger

	leading atomic.Bool
	mu      sync.RWMutex
	holder  string
}

// New creates an Elector that campaigns as id.
func New(cfg config.LeaderElectionConfig, client kubernetes.Interface, id string, logger *slog.Logger) *Elector {
	return &Elector{cfg: cfg, client: client, id: id, logger: logger}
}

// ID returns the identity the elector campaigns under.
func (e *Elector) ID() string { return e.id }

// Leading reports whether this replica currently holds the lease.
func (e *Elector) Leading() bool { return e.leading.Load() }

// Holder returns the last observed lease holder, or "" before the first
// observation.
func (e *Elector) Holder() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.holder
}

// Run campaigns until ctx is done. lead is called with a context that is
// cancelled when the lease is lost and must return once it is. stopped
// runs after leadership ends. An invalid lease config is returned before
// campaigning starts.
func (e *Elector) Run(ctx context.Context, lead func(ctx context.Context), stopped func()) error {
	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      e.cfg.LeaseName,
			Namespace: e.cfg.LeaseNamespace,
		},
		Client:     e.client.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{Identity: e.id},
	}

	elector, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
		Lock:            lock,
		LeaseDuration:   e.cfg.LeaseDuration,
		RenewDeadline:   e.cfg.RenewDeadline,
		RetryPeriod:     e.cfg.RetryPeriod,
		ReleaseOnCancel: true,
		Name:            e.cfg.LeaseName,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(ctx context.Context) {
				e.leading.Store(true)
				e.logger.Info("acquired session lease", slog.String("identity", e.id))
				lead(ctx)
			},
			OnStoppedLeading: func() {
				e.leading.Store(false)
				e.logger.Info("released session lease", slog.String("identity", e.id))
				stopped()
			},
			OnNewLeader: e.observe,
		},
	})
	if err != nil {
		return fmt.Errorf("configuring leader election: %w", err)
	}

	e.logger.Info("campaigning for session lease",
		slog.String("identity", e.id),
		slog.String("lease", e.cfg.LeaseName),
		slog.String("namespace", e.cfg.LeaseNamespace),
	)
	elector.Run(ctx)
	return nil
}

func (e *Elector) observe(holder string) {
	e.mu.Lock()
	e.holder = holder
	e.mu.Unlock()
	if holder != e.id {
		e.logger.Info("session owned by another replica", slog.String("leader", holder))
	}
}
