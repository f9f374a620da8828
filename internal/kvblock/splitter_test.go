package kvblock

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitWriteWithinSingleBlock(t *testing.T) {
	s := SplitWrite(10, []byte("hello"), 4096)
	assert.Equal(t, uint64(0), s.FirstBlockIndex)
	assert.Equal(t, uint64(10), s.FirstDataStart)
	assert.Equal(t, []byte("hello"), s.FirstData)
	assert.Equal(t, uint64(0), s.MidCount)
	assert.Empty(t, s.LastData)
}

func TestSplitWriteSpanningHeadMidTail(t *testing.T) {
	blockSize := uint64(4096)
	data := make([]byte, blockSize*2+100) // head remainder + 2 full mids + tail
	for i := range data {
		data[i] = byte(i)
	}
	start := uint64(4000) // 96 bytes into block 0's tail space

	s := SplitWrite(start, data, blockSize)
	assert.Equal(t, uint64(0), s.FirstBlockIndex)
	assert.Equal(t, uint64(96), uint64(len(s.FirstData)))
	assert.Equal(t, uint64(1), s.MidBlockIndex)
	assert.Equal(t, uint64(2), s.MidCount)
	assert.Equal(t, blockSize*2, uint64(len(s.MidData)))
	assert.Equal(t, uint64(3), s.LastBlockIndex)
	assert.NotEmpty(t, s.LastData)

	reassembled := append(append(append([]byte{}, s.FirstData...), s.MidData...), s.LastData...)
	assert.True(t, bytes.Equal(data, reassembled))
}

func TestSplitWriteEmptyData(t *testing.T) {
	s := SplitWrite(0, nil, 4096)
	assert.Empty(t, s.FirstData)
	assert.Empty(t, s.MidData)
	assert.Empty(t, s.LastData)
}

func TestSplitWriteExactlyOneBlock(t *testing.T) {
	blockSize := uint64(4096)
	data := make([]byte, blockSize)
	s := SplitWrite(0, data, blockSize)
	assert.Equal(t, data, s.FirstData, "a write that fits in one block is classified as head-only, even when block-aligned")
	assert.Equal(t, uint64(0), s.MidCount)
	assert.Empty(t, s.LastData)
}

func TestTouchedBlockRangeCoversEveryWrittenBlock(t *testing.T) {
	blockSize := uint64(4096)
	s := SplitWrite(4000, make([]byte, blockSize*2+100), blockSize)
	lo, hi := s.TouchedBlockRange()
	assert.Equal(t, uint64(0), lo)
	assert.Equal(t, uint64(4), hi)
}

func TestSplitReadWithinSingleBlock(t *testing.T) {
	r := SplitRead(10, 20, 4096)
	assert.Equal(t, uint64(0), r.FirstBlockIndex)
	assert.Equal(t, uint64(1), r.EndBlockIndex)
	assert.Equal(t, uint64(10), r.FirstBlockReadOffset)
	assert.Equal(t, uint64(20), r.BytesToReadFirstBlock)
	assert.Equal(t, uint64(1), r.TotalBlocks)
}

func TestSplitReadSpanningBlocks(t *testing.T) {
	blockSize := uint64(4096)
	r := SplitRead(4000, 200, blockSize)
	assert.Equal(t, uint64(0), r.FirstBlockIndex)
	assert.Equal(t, uint64(2), r.EndBlockIndex)
	assert.Equal(t, blockSize-4000, r.BytesToReadFirstBlock)
	assert.Equal(t, uint64(2), r.TotalBlocks)
}

func TestSplitReadZeroSize(t *testing.T) {
	r := SplitRead(4096, 0, 4096)
	assert.Equal(t, r.FirstBlockIndex, r.EndBlockIndex)
	assert.Equal(t, uint64(0), r.TotalBlocks)
}
