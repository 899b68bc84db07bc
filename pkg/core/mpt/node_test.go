package mpt

import (
	"testing"

	"github.com/r3e-network/neo-core/internal/random"
	"github.com/r3e-network/neo-core/internal/testserdes"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/stretchr/testify/require"
)

func getTestFuncEncode(ok bool, expected, actual Node) func(t *testing.T) {
	return func(t *testing.T) {
		t.Run("IO", func(t *testing.T) {
			bs, err := testserdes.EncodeBinary(expected)
			require.NoError(t, err)
			err = testserdes.DecodeBinary(bs, actual)
			if !ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, expected.Type(), actual.Type())
			require.Equal(t, expected.Hash(), actual.Hash())
		})
	}
}

func TestNode_Serializable(t *testing.T) {
	t.Run("Leaf", func(t *testing.T) {
		t.Run("Good", getTestFuncEncode(true, NewLeafNode(random.Bytes(123)), new(LeafNode)))
		t.Run("BigValue", getTestFuncEncode(false,
			NewLeafNode(random.Bytes(MaxValueLength+1)), new(LeafNode)))
	})

	t.Run("Extension", func(t *testing.T) {
		t.Run("Good", getTestFuncEncode(true,
			NewExtensionNode(random.Bytes(42), NewLeafNode(random.Bytes(10))), new(ExtensionNode)))
		t.Run("BigKey", getTestFuncEncode(false,
			NewExtensionNode(random.Bytes(maxPathLength+1), NewLeafNode(random.Bytes(10))), new(ExtensionNode)))
	})

	t.Run("Branch", func(t *testing.T) {
		b := NewBranchNode()
		b.Children[0] = NewLeafNode(random.Bytes(10))
		b.Children[lastChild] = NewLeafNode(random.Bytes(10))
		t.Run("Good", getTestFuncEncode(true, b, new(BranchNode)))
	})

	t.Run("Hash", func(t *testing.T) {
		t.Run("Good", getTestFuncEncode(true, NewHashNode(random.Uint256()), new(HashNode)))
	})

	t.Run("WithType", func(t *testing.T) {
		nodes := []Node{
			NewLeafNode(random.Bytes(7)),
			NewExtensionNode([]byte{0x01, 0x02}, NewLeafNode(random.Bytes(3))),
			NewHashNode(random.Uint256()),
			EmptyNode{},
		}
		for _, n := range nodes {
			expected := &NodeObject{Node: n}
			actual := new(NodeObject)
			bs, err := testserdes.EncodeBinary(expected)
			require.NoError(t, err)
			require.NoError(t, testserdes.DecodeBinary(bs, actual))
			require.Equal(t, n.Type(), actual.Node.Type())
			if n.Type() != EmptyT {
				require.Equal(t, n.Hash(), actual.Node.Hash())
			}
		}
	})

	t.Run("InvalidType", func(t *testing.T) {
		r := io.NewBinReaderFromBuf([]byte{0xFF})
		n := DecodeNodeWithType(r)
		require.Error(t, r.Err)
		require.Nil(t, n)
	})
}

func TestBranchNode_ChildrenEncoding(t *testing.T) {
	b := NewBranchNode()
	l := NewLeafNode([]byte{0x42})
	b.Children[3] = l

	bs, err := testserdes.EncodeBinary(&NodeObject{Node: b})
	require.NoError(t, err)

	actual := new(NodeObject)
	require.NoError(t, testserdes.DecodeBinary(bs, actual))
	res, ok := actual.Node.(*BranchNode)
	require.True(t, ok)

	// children are stored by reference
	h, ok := res.Children[3].(*HashNode)
	require.True(t, ok)
	require.Equal(t, l.Hash(), h.Hash())
	for i := range res.Children {
		if i == 3 {
			continue
		}
		require.True(t, isEmpty(res.Children[i]))
	}
}
