package main

import (
	"context"

	"github.com/kong/ctable/internal/build"
	"github.com/kong/ctable/internal/cmd/root"
	"github.com/kong/ctable/internal/iostreams"
)

var (
	// version, commit and date are set by the linker
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	root.Execute(context.Background(), iostreams.GetOSIOStreams(), &build.Info{
		Version: version,
		Commit:  commit,
		Date:    date,
	})
}
