package pipeline

import (
	"fmt"

	"github.com/bioetl-io/bioetl/internal/canonical"
	"github.com/bioetl-io/bioetl/internal/schema"
)

// HashRowColumn and HashBusinessKeyColumn name the two content-hash columns
// every schema targeted by this pipeline declares (spec §3: "after load
// additionally carries two 256-bit content hashes").
const (
	HashRowColumn         = "hash_row"
	HashBusinessKeyColumn = "hash_business_key"
)

// StampHashes computes hash_row and hash_business_key for every record in
// ds and sets them in place. It must run after merge and sort — the row
// hash covers the canonicalized value of every other schema column — and
// before the dataset is rendered, since the hash columns are themselves
// part of the schema's declared column set.
func StampHashes(s *schema.Schema, ds *schema.Dataset) error {
	for i, rec := range ds.Records {
		rowHash, businessKeyHash, _, err := canonical.HashRecord(s, rec)
		if err != nil {
			return fmt.Errorf("pipeline: hash record %d: %w", i, err)
		}

		rec.Set(HashRowColumn, schema.StringValue(rowHash))
		rec.Set(HashBusinessKeyColumn, schema.StringValue(businessKeyHash))
	}

	return nil
}
