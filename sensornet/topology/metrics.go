// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package topology

import (
	"encoding/json"
	"math"
)

// Metrics summarizes one graph's connectivity.
type Metrics struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`

	Density       float64 `json:"density"`
	AvgClustering float64 `json:"avgClustering"`

	// AvgPathLength and Diameter are +Inf when the graph is disconnected.
	AvgPathLength float64 `json:"avgPathLength"`
	Diameter      float64 `json:"diameter"`

	// Resilience is the fraction of single-node removals that leave the
	// remaining graph connected. Zero when the graph has fewer than three
	// nodes.
	Resilience float64 `json:"resilience"`
}

// MarshalJSON encodes infinite path lengths as null, since JSON has no
// representation for infinity.
func (m Metrics) MarshalJSON() ([]byte, error) {
	type alias Metrics
	wire := struct {
		alias
		AvgPathLength *float64 `json:"avgPathLength"`
		Diameter      *float64 `json:"diameter"`
	}{alias: alias(m)}
	if !math.IsInf(m.AvgPathLength, 0) {
		wire.AvgPathLength = &m.AvgPathLength
	}
	if !math.IsInf(m.Diameter, 0) {
		wire.Diameter = &m.Diameter
	}
	return json.Marshal(wire)
}

// Metrics computes connectivity metrics for the selected graph.
func (m *Manager) Metrics(kind Kind) Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	adj := m.adjacency(kind)
	n := len(adj)

	var edges int
	for _, peers := range adj {
		edges += len(peers)
	}
	edges /= 2

	out := Metrics{Nodes: n, Edges: edges}

	if n >= 2 {
		out.Density = 2 * float64(edges) / float64(n*(n-1))
	}
	out.AvgClustering = avgClustering(adj)
	out.AvgPathLength, out.Diameter = pathStats(adj)
	out.Resilience = resilience(adj)
	return out
}

// avgClustering is the mean local clustering coefficient over all nodes.
// Nodes with fewer than two neighbors contribute zero.
func avgClustering(adj map[string][]string) float64 {
	if len(adj) == 0 {
		return 0
	}

	var total float64
	for _, peers := range adj {
		k := len(peers)
		if k < 2 {
			continue
		}

		links := 0
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				if hasEdge(adj, peers[i], peers[j]) {
					links++
				}
			}
		}
		total += 2 * float64(links) / float64(k*(k-1))
	}
	return total / float64(len(adj))
}

// pathStats computes the mean shortest-path length (in hops) and the diameter
// over all node pairs. Both are +Inf for a disconnected graph and zero for
// graphs with fewer than two nodes.
func pathStats(adj map[string][]string) (avg, diameter float64) {
	n := len(adj)
	if n < 2 {
		return 0, 0
	}

	var sum float64
	var pairs int
	for id := range adj {
		dist := bfs(adj, id)
		if len(dist) != n {
			return math.Inf(1), math.Inf(1)
		}
		for peer, d := range dist {
			if peer == id {
				continue
			}
			sum += float64(d)
			pairs++
			if float64(d) > diameter {
				diameter = float64(d)
			}
		}
	}
	return sum / float64(pairs), diameter
}

// resilience is the fraction of nodes whose removal leaves the remaining
// graph connected. Removing the hub of a star disconnects it; no removal
// disconnects a complete graph.
func resilience(adj map[string][]string) float64 {
	n := len(adj)
	if n < 3 {
		return 0
	}

	survivable := 0
	for removed := range adj {
		if connectedWithout(adj, removed) {
			survivable++
		}
	}
	return float64(survivable) / float64(n)
}

// connectedWithout reports whether the graph minus one node is connected.
func connectedWithout(adj map[string][]string, removed string) bool {
	var start string
	found := false
	for id := range adj {
		if id != removed {
			start = id
			found = true
			break
		}
	}
	if !found {
		return true
	}

	visited := map[string]struct{}{start: {}}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, peer := range adj[cur] {
			if peer == removed {
				continue
			}
			if _, ok := visited[peer]; !ok {
				visited[peer] = struct{}{}
				queue = append(queue, peer)
			}
		}
	}
	return len(visited) == len(adj)-1
}

// bfs returns hop distances from the start node to every reachable node.
func bfs(adj map[string][]string, start string) map[string]int {
	dist := map[string]int{start: 0}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, peer := range adj[cur] {
			if _, ok := dist[peer]; !ok {
				dist[peer] = dist[cur] + 1
				queue = append(queue, peer)
			}
		}
	}
	return dist
}

func hasEdge(adj map[string][]string, a, b string) bool {
	for _, peer := range adj[a] {
		if peer == b {
			return true
		}
	}
	return false
}
