package materialize

import "github.com/willibrandon/materializer/internal/dataflow"

// pendingReplay is one replay that must run to reconstruct part of a
// node's state: the domain and local address of the node supplying the
// state, the domain the replay targets, and the tag correlating the
// eventual StartReplay with its QueryReplayDone.
type pendingReplay struct {
	sourceDomain dataflow.DomainIndex
	sourceNode   dataflow.LocalNodeIndex
	targetDomain dataflow.DomainIndex
	tag          Tag
}

// setup computes the replay-path tree that reconstructs every index in
// indexOn for node n, assigning each path a tag (reusing one already
// recorded for the same (index, node-chain) pair against n, minting a
// fresh one otherwise) and returning the set of replays that must run to
// populate it.
func (s *State) setup(g *dataflow.Graph, n dataflow.NodeIndex, indexOn Indices) ([]pendingReplay, error) {
	var pending []pendingReplay
	for _, idx := range indexOn {
		paths, err := dataflow.ReplayPathsForNonstop(g, dataflow.ColumnRef{Node: n, Columns: idx.Columns}, idx.Type)
		if err != nil {
			return nil, err
		}

		for _, path := range paths {
			nodes := make([]dataflow.NodeIndex, len(path.Segments))
			for i, seg := range path.Segments {
				nodes[i] = seg.Node
			}
			tag := s.tagForPath(n, idx, nodes)

			source := path.Target().Node
			pending = append(pending, pendingReplay{
				sourceDomain: g.Node(source).Domain(),
				sourceNode:   g.Node(source).LocalAddr(),
				targetDomain: g.Node(n).Domain(),
				tag:          tag,
			})
		}
	}
	return pending, nil
}
