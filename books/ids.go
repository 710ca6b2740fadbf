package books

import "github.com/google/uuid"

// IDGenerator produces record ids. Ids must be unique; generators should
// make them sort in generation order.
type IDGenerator func() RecordID

// NewRecordID returns a UUIDv7, whose leading bits are the creation time.
func NewRecordID() RecordID {
	id, err := uuid.NewV7()
	if err != nil {
		return RecordID(uuid.NewString())
	}
	return RecordID(id.String())
}
