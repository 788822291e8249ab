// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package topology

import (
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/internal/container"
	"github.com/ScrappinR/MWRASP-Quantum-Defense-sub003/sensornet/errors"
)

// ShortestPath finds the lowest-latency route between two sensors on the
// communication graph using Dijkstra's algorithm. It returns the node path
// (inclusive of both endpoints) and the total latency. Ties are broken by
// traversal order.
func (m *Manager) ShortestPath(a, b string) ([]string, float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkNodes(Communication, a, b); err != nil {
		return nil, 0, err
	}

	dist := map[string]float64{a: 0}
	prev := map[string]string{}
	done := map[string]struct{}{}

	frontier := container.NewPriorityQueue[string, float64]()
	frontier.Push(a, 0)

	for {
		cur, d, ok := frontier.Pop()
		if !ok {
			break
		}
		if _, ok := done[cur]; ok {
			continue
		}
		done[cur] = struct{}{}

		if cur == b {
			break
		}

		for peer, edge := range m.comm[cur] {
			if _, ok := done[peer]; ok {
				continue
			}
			alt := d + edge.Latency
			if best, ok := dist[peer]; !ok || alt < best {
				dist[peer] = alt
				prev[peer] = cur
				frontier.Push(peer, alt)
			}
		}
	}

	if _, ok := done[b]; !ok {
		return nil, 0, &errors.Error{
			Message:   "no route between nodes",
			Kind:      errors.PathNotFound,
			GraphName: Communication.String(),
			NodeID:    b,
		}
	}

	path := []string{b}
	for cur := b; cur != a; {
		cur = prev[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, dist[b], nil
}
