package build

// Info carries values injected at link time.
type Info struct {
	Version string
	Commit  string
	Date    string
}

type Key struct{}

// InfoKey is the context key for the build Info of the running binary.
var InfoKey = Key{}
