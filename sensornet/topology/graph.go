// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package topology maintains the sensor network's connectivity graphs and
// answers metric and routing queries over them. Two undirected graphs share
// the node set: the communication graph (latency/bandwidth edges) and the
// paired-correlation graph (fidelity edges). An edge belongs to exactly one
// graph; a node may appear in both.
package topology

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/log"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/wallclock"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/errors"
)

type (
	// Kind selects one of the two managed graphs.
	Kind int

	// CommunicationEdge carries link quality between two sensors.
	CommunicationEdge struct {
		Latency   float64 `json:"latency"`
		Bandwidth float64 `json:"bandwidth"`
	}

	// CorrelationEdge carries a paired-correlation link.
	CorrelationEdge struct {
		Fidelity      float64   `json:"fidelity"`
		EstablishedAt time.Time `json:"establishedAt"`
	}

	// Manager owns both graphs. All operations are safe for concurrent use.
	Manager struct {
		mu     sync.RWMutex
		nodes  map[string]struct{}
		comm   map[string]map[string]CommunicationEdge
		corr   map[string]map[string]CorrelationEdge
		logger log.Logger
	}
)

const (
	Communication Kind = iota
	Correlation
)

// String returns the graph name.
func (k Kind) String() string {
	if k == Correlation {
		return "correlation"
	}
	return "communication"
}

// NewManager creates an empty topology manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		nodes:  map[string]struct{}{},
		comm:   map[string]map[string]CommunicationEdge{},
		corr:   map[string]map[string]CorrelationEdge{},
		logger: log.Wrap(logger),
	}
}

// AddNode registers a sensor ID in both graphs. Adding an existing node is a
// no-op.
func (m *Manager) AddNode(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[id]; ok {
		return
	}
	m.nodes[id] = struct{}{}
	m.comm[id] = map[string]CommunicationEdge{}
	m.corr[id] = map[string]CorrelationEdge{}
}

// Nodes returns all registered sensor IDs.
func (m *Manager) Nodes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.nodes))
	for id := range m.nodes {
		out = append(out, id)
	}
	return out
}

// NodeCount returns the number of registered sensors.
func (m *Manager) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// AddCommunicationEdge links two sensors in the communication graph. Both
// endpoints must already be nodes.
func (m *Manager) AddCommunicationEdge(
	a, b string,
	latency, bandwidth float64,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkNodes(Communication, a, b); err != nil {
		return err
	}

	edge := CommunicationEdge{Latency: latency, Bandwidth: bandwidth}
	m.comm[a][b] = edge
	m.comm[b][a] = edge
	return nil
}

// AddCorrelationEdge links two sensors in the paired-correlation graph. Both
// endpoints must already be nodes.
func (m *Manager) AddCorrelationEdge(a, b string, fidelity float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkNodes(Correlation, a, b); err != nil {
		return err
	}

	edge := CorrelationEdge{
		Fidelity:      fidelity,
		EstablishedAt: wallclock.Instance.Now(),
	}
	m.corr[a][b] = edge
	m.corr[b][a] = edge
	return nil
}

// HasCommunicationEdge reports whether two sensors are directly linked.
func (m *Manager) HasCommunicationEdge(a, b string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.comm[a][b]
	return ok
}

func (m *Manager) checkNodes(kind Kind, ids ...string) error {
	for _, id := range ids {
		if _, ok := m.nodes[id]; !ok {
			return &errors.Error{
				Message:   "unknown topology node",
				Kind:      errors.UnknownNode,
				GraphName: kind.String(),
				NodeID:    id,
			}
		}
	}
	return nil
}

// adjacency returns the requested graph's adjacency as unweighted neighbor
// sets. Callers must hold at least a read lock.
func (m *Manager) adjacency(kind Kind) map[string][]string {
	adj := make(map[string][]string, len(m.nodes))
	switch kind {
	case Correlation:
		for id, edges := range m.corr {
			for peer := range edges {
				adj[id] = append(adj[id], peer)
			}
		}
	default:
		for id, edges := range m.comm {
			for peer := range edges {
				adj[id] = append(adj[id], peer)
			}
		}
	}
	for id := range m.nodes {
		if _, ok := adj[id]; !ok {
			adj[id] = nil
		}
	}
	return adj
}
