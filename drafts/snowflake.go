package drafts

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const draftIDNode int64 = 0

var draftIDGen = mustSnowflake(draftIDNode)

func mustSnowflake(node int64) *snowflake.Node {
	n, err := snowflake.NewNode(node)
	if err != nil {
		panic(err)
	}

	return n
}

// NewID generates a new draft ID.
func NewID() int64 {
	return draftIDGen.Generate().Int64()
}

// ParseID parses the base36 form of a draft ID, as stored in cookies.
func ParseID(s string) (int64, error) {
	id, err := snowflake.ParseBase36(s)
	if err != nil {
		return 0, ErrDraftNotFound
	}
	return id.Int64(), nil
}

// FormatID formats the ID the way ParseID expects.
func FormatID(id int64) string {
	return snowflake.ID(id).Base36()
}

// IDTime returns the time the ID was generated at.
func IDTime(id int64) time.Time {
	ms := snowflake.ID(id).Time()
	return time.Unix(0, ms*int64(time.Millisecond))
}
