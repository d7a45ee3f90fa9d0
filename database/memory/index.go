// Package memory provides an in-memory database implementation.
package memory

import "github.com/hashicorp/go-memdb"

const (
	tblBubbles = "bubbles"
	tblCalls   = "calls"
)

const (
	idxBubbleUserID = "id"
	idxCallID       = "id"
	idxCallContext  = "context"
)

// schema is the schema of the memory database.
var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblBubbles: {
			Name: tblBubbles,
			Indexes: map[string]*memdb.IndexSchema{
				idxBubbleUserID: {
					Name:    idxBubbleUserID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "UserID"},
				},
			},
		},
		tblCalls: {
			Name: tblCalls,
			Indexes: map[string]*memdb.IndexSchema{
				idxCallID: {
					Name:    idxCallID,
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				idxCallContext: {
					Name:   idxCallContext,
					Unique: false,
					Indexer: &memdb.CompoundIndex{
						Indexes: []memdb.Indexer{
							&memdb.StringFieldIndex{Field: "ContextType"},
							&memdb.StringFieldIndex{Field: "ContextID"},
						},
					},
				},
			},
		},
	},
}
