package block

// Partition splits a tangle target's block sequence into the blocks that
// precede and the blocks that follow the one being edited, both in document
// order.
type Partition struct {
	Before []Block
	After  []Block
}

// Empty reports whether the partition carries no context at all, in which
// case splicing is a no-op.
func (p Partition) Empty() bool {
	return len(p.Before) == 0 && len(p.After) == 0
}

// Resolve scans blocks in order and partitions them around the first block
// whose ID equals current. The matched block itself belongs to neither side.
//
// When no block matches, the partition is {nil, blocks} and found is false;
// callers must treat that as "no usable context" and skip splicing rather
// than inject a context that does not contain the edited block. When several
// blocks match (impossible for extractor-assigned IDs, but the resolver does
// not assume that) the first match wins.
func Resolve(blocks []Block, current ID) (Partition, bool) {
	for i, b := range blocks {
		if b.ID == current {
			return Partition{
				Before: blocks[:i:i],
				After:  blocks[i+1:],
			}, true
		}
	}
	return Partition{After: blocks}, false
}

// CountID returns how many blocks carry the given ID. Anything above one is
// an identity ambiguity worth flagging to the caller's log.
func CountID(blocks []Block, id ID) int {
	n := 0
	for _, b := range blocks {
		if b.ID == id {
			n++
		}
	}
	return n
}
