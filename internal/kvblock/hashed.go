package kvblock

import (
	"context"

	"lukechampine.com/blake3"

	"github.com/kvfuse-project/kvfuse/internal/keys"
	"github.com/kvfuse-project/kvfuse/internal/kv"
)

// DigestSize is the digest length of the configured hash algorithm. BLAKE3
// gives a 256-bit (32-byte) digest.
const DigestSize = 32

// HashAlgorithm is the name persisted in MetaStatic.HashAlgorithm so mounts
// on a mismatched configuration fail early instead of corrupting content.
const HashAlgorithm = "blake3-256"

// Digest returns the BLAKE3-256 digest of block, which must be exactly
// blockSize bytes (padded with zeros by the caller if necessary) so that
// identical logical content always produces the same digest.
func Digest(block []byte) []byte {
	sum := blake3.Sum256(block)
	return sum[:]
}

// ReadHashed reads size bytes starting at start from ino's hashed-block
// storage. Missing BlockHash mappings (sparse blocks) are treated as zeros.
func ReadHashed(ctx context.Context, txn kv.Txn, kb keys.Builder, ino, start, size, blockSize uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	rs := SplitRead(start, size, blockSize)

	lo, hi := kb.BlockHashRange(ino, rs.FirstBlockIndex, rs.EndBlockIndex)
	hashKvs, err := txn.Scan(ctx, lo, hi, int(rs.TotalBlocks))
	if err != nil {
		return nil, err
	}

	digestByIndex := make(map[uint64][]byte, len(hashKvs))
	var digestKeys [][]byte
	seen := make(map[string]bool)
	for _, e := range hashKvs {
		_, idx, ok := keys.ParseBlockKey(kb.PrefixLen(), e.Key)
		if !ok {
			continue
		}
		digestByIndex[idx] = e.Value
		if !seen[string(e.Value)] {
			seen[string(e.Value)] = true
			digestKeys = append(digestKeys, kb.HashedBlock(e.Value))
		}
	}

	payloads, err := txn.BatchGet(ctx, digestKeys)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, size)
	for i := rs.FirstBlockIndex; i < rs.EndBlockIndex; i++ {
		var block []byte
		if digest, ok := digestByIndex[i]; ok {
			block = payloads[string(kb.HashedBlock(digest))]
		}
		if block == nil {
			block = make([]byte, blockSize)
		}

		begin := uint64(0)
		if i == rs.FirstBlockIndex {
			begin = rs.FirstBlockReadOffset
		}
		out = append(out, block[begin:blockSize]...)
		if uint64(len(out)) >= size {
			break
		}
	}

	if uint64(len(out)) > size {
		out = out[:size]
	}
	return out, nil
}

// WriteHashed performs the content-addressed write pipeline described in
// spec.md §4.6: reconstruct irregular head/tail blocks against their prior
// content, hash every touched block, dedup uploads against
// HashedBlockExists markers, and skip mapping writes whose digest didn't
// change.
func WriteHashed(ctx context.Context, txn kv.Txn, kb keys.Builder, ino, start uint64, data []byte, blockSize uint64) error {
	split := SplitWrite(start, data, blockSize)
	lo, hi := split.TouchedBlockRange()

	// Step 2: fetch existing digests for every touched block.
	hLo, hHi := kb.BlockHashRange(ino, lo, hi)
	existingKvs, err := txn.Scan(ctx, hLo, hHi, int(hi-lo))
	if err != nil {
		return err
	}
	priorDigest := make(map[uint64][]byte, len(existingKvs))
	for _, e := range existingKvs {
		_, idx, ok := keys.ParseBlockKey(kb.PrefixLen(), e.Key)
		if !ok {
			continue
		}
		priorDigest[idx] = e.Value
	}

	// Step 3: fetch pre-images for irregular head/tail blocks only.
	var preimageKeys [][]byte
	needPreimage := func(idx uint64) bool {
		_, ok := priorDigest[idx]
		return ok
	}
	if len(split.FirstData) > 0 && needPreimage(split.FirstBlockIndex) {
		preimageKeys = append(preimageKeys, kb.HashedBlock(priorDigest[split.FirstBlockIndex]))
	}
	if len(split.LastData) > 0 && split.LastBlockIndex != split.FirstBlockIndex && needPreimage(split.LastBlockIndex) {
		preimageKeys = append(preimageKeys, kb.HashedBlock(priorDigest[split.LastBlockIndex]))
	}
	preimages, err := txn.BatchGet(ctx, preimageKeys)
	if err != nil {
		return err
	}

	candidates := make(map[uint64][]byte) // block index -> full block bytes

	buildIrregular := func(idx, offset uint64, patch []byte) []byte {
		block := make([]byte, blockSize)
		if digest, ok := priorDigest[idx]; ok {
			if pre, ok := preimages[string(kb.HashedBlock(digest))]; ok {
				copy(block, pre)
			}
		}
		copy(block[offset:], patch)
		return block
	}

	if len(split.FirstData) > 0 {
		candidates[split.FirstBlockIndex] = buildIrregular(split.FirstBlockIndex, split.FirstDataStart, split.FirstData)
	}
	for i := uint64(0); i < split.MidCount; i++ {
		idx := split.MidBlockIndex + i
		candidates[idx] = split.MidData[i*blockSize : (i+1)*blockSize]
	}
	if len(split.LastData) > 0 {
		if existing, ok := candidates[split.LastBlockIndex]; ok {
			copy(existing, split.LastData)
		} else {
			candidates[split.LastBlockIndex] = buildIrregular(split.LastBlockIndex, 0, split.LastData)
		}
	}

	// Step 6: hash every candidate.
	digestOf := make(map[uint64][]byte, len(candidates))
	newBlocks := make(map[string][]byte) // digest -> bytes
	for idx, block := range candidates {
		d := Digest(block)
		digestOf[idx] = d
		newBlocks[string(d)] = block
	}

	// Step 7: dedup against HashedBlockExists markers.
	var existsKeys [][]byte
	for d := range newBlocks {
		existsKeys = append(existsKeys, kb.HashedBlockExists([]byte(d)))
	}
	existsResult, err := txn.BatchGet(ctx, existsKeys)
	if err != nil {
		return err
	}
	for d := range newBlocks {
		if _, found := existsResult[string(kb.HashedBlockExists([]byte(d)))]; found {
			delete(newBlocks, d)
		}
	}

	// Step 8: filter no-op mapping updates.
	puts := make(map[string][]byte)
	for idx, d := range digestOf {
		if prior, ok := priorDigest[idx]; ok && string(prior) == string(d) {
			continue
		}
		puts[string(kb.BlockHash(ino, idx))] = d
	}
	for d, bytes := range newBlocks {
		puts[string(kb.HashedBlock([]byte(d)))] = bytes
		puts[string(kb.HashedBlockExists([]byte(d)))] = []byte{}
	}

	if len(puts) == 0 {
		return nil
	}
	return txn.BatchMutate(ctx, puts, nil)
}

// DeleteBlockHashRange removes every BlockHash mapping for ino in [lo, hi).
// HashedBlock payloads are not eagerly reclaimed (spec.md §3, §9): garbage
// collection of orphaned content-addressed blocks is a deferred task.
func DeleteBlockHashRange(ctx context.Context, txn kv.Txn, kb keys.Builder, ino, lo, hi uint64) error {
	start, end := kb.BlockHashRange(ino, lo, hi)
	kvs, err := txn.Scan(ctx, start, end, 0)
	if err != nil {
		return err
	}
	for _, e := range kvs {
		if err := txn.Delete(ctx, e.Key); err != nil {
			return err
		}
	}
	return nil
}
