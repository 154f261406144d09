package cooldown

import "context"

// NoopStore never remembers anything, so the gate is always armed and every
// signal dispatches. Only for deployments that accept repeated alerts.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) Get(_ context.Context, _ string) (float64, error)  { return 0, nil }
func (n *NoopStore) Set(_ context.Context, _ string, _ float64) error { return nil }
func (n *NoopStore) Close() error                                     { return nil }
