package tag

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/rollcall/core"
)

var ErrNoRoster = errors.New("no roster for this teacher")

// RosterFile is the YAML document a roster is imported from.
type RosterFile struct {
	TeacherID string    `yaml:"teacher" validate:"required"`
	Students  []Student `yaml:"students" validate:"required,min=1,dive"`
}

// ParseRoster reads and validates a YAML roster.
func ParseRoster(r io.Reader) (RosterFile, error) {
	var rf RosterFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rf); err != nil {
		return RosterFile{}, errors.Wrap(err, "decoding roster")
	}
	rf.TeacherID = core.CleanString(rf.TeacherID)
	for i := range rf.Students {
		rf.Students[i].ID = core.CleanString(rf.Students[i].ID)
		rf.Students[i].Name = core.CleanString(rf.Students[i].Name)
	}
	if err := core.TranslateValidation(core.Validate.Struct(rf)); err != nil {
		return RosterFile{}, err
	}
	return rf, nil
}

// RosterStore keeps each teacher's roster under <prefix>:roster:<teacherId>.
type RosterStore struct {
	store  core.KVStore
	prefix string
	logger core.Logger
}

func NewRosterStore(store core.KVStore, prefix string, logger core.Logger) *RosterStore {
	return &RosterStore{store: store, prefix: prefix, logger: logger}
}

func (rs *RosterStore) key(teacherID string) string {
	return core.Namespace(rs.prefix, "roster", teacherID)
}

func (rs *RosterStore) Save(ctx context.Context, teacherID string, students []Student) error {
	if students == nil {
		students = []Student{}
	}
	data, err := json.Marshal(students)
	if err != nil {
		return errors.Wrap(err, "encoding roster")
	}
	if err := rs.store.Set(ctx, rs.key(teacherID), data); err != nil {
		return errors.Wrap(err, "saving roster")
	}
	return nil
}

// Load returns ErrNoRoster when the teacher has none.
func (rs *RosterStore) Load(ctx context.Context, teacherID string) ([]Student, error) {
	data, err := rs.store.Get(ctx, rs.key(teacherID))
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			return nil, ErrNoRoster
		}
		return nil, errors.Wrap(err, "reading roster")
	}
	var students []Student
	if err := json.Unmarshal(data, &students); err != nil {
		return nil, errors.Wrap(err, "decoding roster")
	}
	return students, nil
}

// Resolver loads the teacher's roster and indexes it.
func (rs *RosterStore) Resolver(ctx context.Context, teacherID string) (*Resolver, error) {
	students, err := rs.Load(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return NewResolver(students, rs.logger), nil
}
