package attendance

import "github.com/trezcool/rollcall/core"

// Scope partitions cached attendance data; see ClassScope and AllScope.
type Scope string

const queueScope Scope = "attendance:queue"

// ClassScope is the scope of a teacher's records for one class section.
func ClassScope(teacherID, section string) Scope {
	return Scope(core.Namespace("attendance", "class", teacherID, section))
}

// AllScope is the scope of all of a teacher's records.
func AllScope(teacherID string) Scope {
	return Scope(core.Namespace("attendance", "all", teacherID))
}

// Key returns the persisted key of the scope under prefix.
func (s Scope) Key(prefix string) string {
	return core.Namespace(prefix, string(s))
}
