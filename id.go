package clearing

import "github.com/xraph/clearing/id"

// ID is the identifier type for runs, audit entries and partitions.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
