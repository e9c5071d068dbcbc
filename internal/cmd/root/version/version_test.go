package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kong/ctable/internal/build"
	"github.com/kong/ctable/internal/config"
	"github.com/kong/ctable/internal/iostreams"
	"github.com/kong/ctable/test/cmd"
	testConfig "github.com/kong/ctable/test/config"
)

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		format     string
		showCommit bool
		check      func(t *testing.T, out string)
	}{
		{
			name:   "text",
			format: "text",
			check: func(t *testing.T, out string) {
				require.Equal(t, "1.2.3\n", out)
			},
		},
		{
			name:       "text with commit",
			format:     "text",
			showCommit: true,
			check: func(t *testing.T, out string) {
				require.Equal(t, "1.2.3 (abc123, 2026-10-01)\n", out)
			},
		},
		{
			name:       "json",
			format:     "json",
			showCommit: true,
			check: func(t *testing.T, out string) {
				var got map[string]string
				require.NoError(t, json.Unmarshal([]byte(out), &got))
				require.Equal(t, map[string]string{
					"version": "1.2.3",
					"commit":  "abc123",
					"date":    "2026-10-01",
				}, got)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			all, _, out, _ := iostreams.NewTestIOStreams()
			helper := &cmd.MockHelper{
				GetOutputFormatMock: func() (string, error) { return tt.format, nil },
				GetConfigMock: func() (config.Hook, error) {
					return &testConfig.MockConfigHook{
						Values: map[string]any{ShowCommitConfigPath: tt.showCommit},
					}, nil
				},
				GetStreamsMock: func() *iostreams.IOStreams { return &all },
				GetBuildInfoMock: func() (*build.Info, error) {
					return &build.Info{Version: "1.2.3", Commit: "abc123", Date: "2026-10-01"}, nil
				},
			}

			require.NoError(t, validate(helper))
			require.NoError(t, run(helper))
			tt.check(t, out.String())
		})
	}
}
