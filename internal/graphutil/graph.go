// Copyright the solguard authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package graphutil implements generic directed-graph algorithms used by the
// call-graph and pass-scheduling layers: strongly connected components,
// elementary cycle enumeration and adapters for existing graph libraries.
package graphutil

import (
	"sort"

	"gonum.org/v1/gonum/graph"
)

// IntGraph is a directed graph over int64 node ids. It implements the methods to satisfy
// the yourbasic graph.Iterator interface and Gonum's graph.Directed, so existing graph
// algorithms can run on it without conversion.
type IntGraph struct {
	// The order of the graph
	order int

	// Labels maps node ids to a printable name (may be nil)
	Labels map[int64]string

	// Keys are all the node IDs, sorted in increasing order
	Keys []int64

	// Edges is an adjacency map: Edges[x][y] means there is a directed edge from x to y
	Edges map[int64]map[int64]bool
}

// NewIntGraph builds an IntGraph from an adjacency list. Nodes that appear only as edge
// targets are added to the node set.
func NewIntGraph(adjacency map[int64][]int64, labels map[int64]string) IntGraph {
	nodes := map[int64]bool{}
	edges := map[int64]map[int64]bool{}
	for from, tos := range adjacency {
		nodes[from] = true
		if edges[from] == nil {
			edges[from] = map[int64]bool{}
		}
		for _, to := range tos {
			nodes[to] = true
			edges[from][to] = true
		}
	}
	keys := make([]int64, 0, len(nodes))
	for n := range nodes {
		keys = append(keys, n)
		if edges[n] == nil {
			edges[n] = map[int64]bool{}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return IntGraph{
		order:  len(keys),
		Labels: labels,
		Keys:   keys,
		Edges:  edges,
	}
}

// Subgraph returns a new graph that is the original graph with only the nodes in include.
// Only the edges that have both the origin and destination nodes in the include nodes are
// kept in the resulting graph. The subgraph's order and Labels are the same as in the
// original, so node indices stay consistent across subgraphs.
func Subgraph(original IntGraph, include []int64) IntGraph {
	inSet := make(map[int64]bool, len(include))
	edges := make(map[int64]map[int64]bool, len(include))
	keys := make([]int64, len(include))

	for j, i := range include {
		keys[j] = i
		inSet[i] = true
	}

	for _, i := range include {
		edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if inSet[e] {
				edges[i][e] = true
			}
		}
	}

	return IntGraph{
		order:  original.Order(),
		Labels: original.Labels,
		Keys:   keys,
		Edges:  edges,
	}
}

// Order implements the order of the graph.Iterator interface for the IntGraph
func (c IntGraph) Order() int {
	return c.order
}

// Visit implements the graph.Iterator interface for the IntGraph
func (c IntGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if _, ok := c.Edges[int64(v)]; !ok {
		return false
	}
	for w := range c.Edges[int64(v)] {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** Gonum Graph interface implementation **********************

// Node implements the Graph interface
func (c IntGraph) Node(v int64) graph.Node {
	if _, ok := c.Edges[v]; !ok {
		return nil
	}
	return IntNode{id: v, label: c.Labels[v]}
}

// Nodes returns the set of nodes in the graph
func (c IntGraph) Nodes() graph.Nodes {
	return &NodeSet{graph: c, ids: c.Keys, cur: -1}
}

// From returns the set of nodes reachable from the id
func (c IntGraph) From(id int64) graph.Nodes {
	var keys []int64
	for out := range c.Edges[id] {
		keys = append(keys, out)
	}
	return &NodeSet{graph: c, ids: keys, cur: -1}
}

// To returns the set of nodes with an edge into the id
func (c IntGraph) To(id int64) graph.Nodes {
	var keys []int64
	for from := range c.Edges {
		if c.Edges[from][id] {
			keys = append(keys, from)
		}
	}
	return &NodeSet{graph: c, ids: keys, cur: -1}
}

// HasEdgeFromTo returns whether a directed edge exists from uid to vid
func (c IntGraph) HasEdgeFromTo(uid, vid int64) bool {
	return c.Edges[uid][vid]
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (c IntGraph) HasEdgeBetween(xid, yid int64) bool {
	return c.Edges[xid][yid] || c.Edges[yid][xid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (c IntGraph) Edge(uid, vid int64) graph.Edge {
	if c.Edges[uid][vid] {
		return IntEdge{from: c.Node(uid).(IntNode), to: c.Node(vid).(IntNode)}
	}
	return nil
}

// *************** Nodes implementation **********************

// IntNode wraps an int64 id to implement the graph.Node interface
type IntNode struct {
	id    int64
	label string
}

// ID returns the id of the node
func (n IntNode) ID() int64 {
	return n.id
}

func (n IntNode) String() string {
	return n.label
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	graph IntGraph

	// ids is the set of node ids in the iterator
	ids []int64

	// cur is the current index of the iterator; -1 before the first Next
	// invariant: -1 <= cur < len(ids)
	cur int
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the length of the node set
func (ns *NodeSet) Len() int {
	return len(ns.ids)
}

// Reset rewinds the iterator to before the first node
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node returns the current node in the set
func (ns *NodeSet) Node() graph.Node {
	return ns.graph.Node(ns.ids[ns.cur])
}

// *************** Edge implementation **********************

// IntEdge implements the graph.Edge interface
type IntEdge struct {
	from IntNode
	to   IntNode
}

// From returns the origin of the edge
func (e IntEdge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e IntEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e IntEdge) ReversedEdge() graph.Edge {
	return IntEdge{from: e.to, to: e.from}
}
