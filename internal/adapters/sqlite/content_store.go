package sqlite

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/fr0stylo/txcommit/internal/db/queries"
)

// Put stores data under its CIDv1 (raw codec, sha2-256) and returns the id.
// Storing the same bytes twice yields the same id.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	id, err := ContentID(data)
	if err != nil {
		return "", err
	}
	err = s.database.PutBlob(ctx, queries.PutBlobParams{
		ContentID:   id,
		Data:        data,
		Size:        int64(len(data)),
		CreatedAtMs: s.nowMs(),
	})
	if err != nil {
		return "", fmt.Errorf("store blob %s: %w", id, err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, contentID string) ([]byte, error) {
	blob, err := s.database.GetBlob(ctx, contentID)
	if err != nil {
		return nil, notFound(err, "blob "+contentID)
	}
	return blob.Data, nil
}

// ContentID derives the content address of data.
func ContentID(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}
