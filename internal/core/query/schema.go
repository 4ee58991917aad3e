package query

// FieldKind tells the translator how to coerce values compared against a field.
type FieldKind int

const (
	KindString FieldKind = iota
	KindObjectID
	KindTime
	KindBool
	// KindStringList is an array of strings; equality matches any element.
	KindStringList
)

// Schema whitelists the fields of one collection that requests may filter,
// sort or project on.
type Schema struct {
	Collection string
	Fields     map[string]FieldKind
	// DefaultLimit applies when the request has no limit. Zero means unbounded.
	DefaultLimit int64
}

func (s Schema) kind(field string) (FieldKind, bool) {
	k, ok := s.Fields[field]
	return k, ok
}

// WithDefaultLimit returns a copy of s using n as the listing default.
func (s Schema) WithDefaultLimit(n int64) Schema {
	s.DefaultLimit = n
	return s
}

// IDField is the identifier kept by every projection.
const IDField = "_id"

// DefaultTaskLimit caps task listings that do not ask for a limit.
const DefaultTaskLimit = 100

var UserSchema = Schema{
	Collection: "users",
	Fields: map[string]FieldKind{
		IDField:        KindObjectID,
		"name":         KindString,
		"email":        KindString,
		"pendingTasks": KindStringList,
		"dateCreated":  KindTime,
	},
}

var TaskSchema = Schema{
	Collection: "tasks",
	Fields: map[string]FieldKind{
		IDField:            KindObjectID,
		"name":             KindString,
		"description":      KindString,
		"deadline":         KindTime,
		"completed":        KindBool,
		"assignedUser":     KindString,
		"assignedUserName": KindString,
		"dateCreated":      KindTime,
	},
	DefaultLimit: DefaultTaskLimit,
}
