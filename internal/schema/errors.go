package schema

import "errors"

// Sentinel errors for the semantic error group of spec §7.
var (
	ErrColumnOrderMismatch    = errors.New("schema: column order mismatch")
	ErrDuplicatePrimaryKey    = errors.New("schema: duplicate primary key")
	ErrReferentialIntegrityGap = errors.New("schema: referential integrity gap")
)
