package schema

import "fmt"

// UnknownBlockKindError reports a block kind outside the supported set. It is
// a configuration error raised at schema construction, never mid-session.
type UnknownBlockKindError struct {
	Kind BlockType
}

func (e UnknownBlockKindError) Error() string {
	return fmt.Sprintf("schema: unknown block kind %q", string(e.Kind))
}

// UnknownBlockError reports a reference to a block id that does not exist in
// the form.
type UnknownBlockError struct {
	BlockID string
}

func (e UnknownBlockError) Error() string {
	return fmt.Sprintf("schema: unknown block %q", e.BlockID)
}
