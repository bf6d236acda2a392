package core

type (
	// Logger is any service that can log & report events.
	// expected args: error, map[string]interface{}, Person (at most one), any printable value.
	Logger interface {
		Debug(msg string, args ...interface{})
		Info(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
		Error(msg string, args ...interface{})
		Fatal(msg string, args ...interface{})
	}

	// Person identifies the device user (the teacher) an event relates to.
	Person struct {
		ID   string
		Name string
	}
)
