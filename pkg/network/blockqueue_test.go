package network

import (
	"sync"
	"testing"
	"time"

	"github.com/r3e-network/neo-core/pkg/core/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeChain struct {
	lock   sync.RWMutex
	height uint32
}

func (c *fakeChain) AddBlock(b *block.Block) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if b.Index == c.height+1 {
		c.height = b.Index
	}
	return nil
}

func (c *fakeChain) BlockHeight() uint32 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.height
}

func TestBlockQueue(t *testing.T) {
	chain := &fakeChain{}
	// notice, it's not yet running
	bq := newBlockQueue(chain, zaptest.NewLogger(t), nil)
	blocks := make([]*block.Block, 11)
	for i := 1; i < 11; i++ {
		blocks[i] = &block.Block{Header: block.Header{Index: uint32(i)}}
	}
	// not the ones expected currently
	for i := 3; i < 5; i++ {
		assert.NoError(t, bq.putBlock(blocks[i]))
	}
	last, capLeft := bq.lastQueued()
	assert.Equal(t, uint32(0), last)
	assert.Equal(t, blockCacheSize-2, capLeft)
	// nothing should be put into the blockchain
	assert.Equal(t, uint32(0), chain.BlockHeight())
	assert.Equal(t, 2, bq.length())
	// now added the expected ones (with duplicates)
	for i := 1; i < 5; i++ {
		assert.NoError(t, bq.putBlock(blocks[i]))
	}
	// but they're still not put into the blockchain, because bq isn't running
	last, capLeft = bq.lastQueued()
	assert.Equal(t, uint32(4), last)
	assert.Equal(t, blockCacheSize-4, capLeft)
	assert.Equal(t, uint32(0), chain.BlockHeight())
	assert.Equal(t, 4, bq.length())
	go bq.run()
	// run() is asynchronous, so we need some kind of timeout anyway and this is the simplest way to do it
	assert.Eventually(t, func() bool { return chain.BlockHeight() == 4 }, 4*time.Second, 100*time.Millisecond)
	last, capLeft = bq.lastQueued()
	assert.Equal(t, uint32(4), last)
	assert.Equal(t, blockCacheSize, capLeft)
	assert.Equal(t, 0, bq.length())
	assert.Equal(t, uint32(4), chain.BlockHeight())
	// put some more blocks, but skip 5
	for i := 6; i < 11; i++ {
		assert.NoError(t, bq.putBlock(blocks[i]))
	}
	assert.Equal(t, uint32(4), chain.BlockHeight())
	// put 5, expect to sync to 10
	assert.NoError(t, bq.putBlock(blocks[5]))
	assert.Eventually(t, func() bool { return chain.BlockHeight() == 10 }, 4*time.Second, 100*time.Millisecond)
	last, capLeft = bq.lastQueued()
	assert.Equal(t, uint32(10), last)
	assert.Equal(t, blockCacheSize, capLeft)
	assert.Equal(t, 0, bq.length())
	assert.Equal(t, uint32(10), chain.BlockHeight())
	// an already processed block is a no-op
	require.NoError(t, bq.putBlock(blocks[5]))
	assert.Equal(t, uint32(10), chain.BlockHeight())
	bq.discard()
}
