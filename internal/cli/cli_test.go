package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const repoHCL = `
dataset "raw" {
  data_id  = { visit = 1, ccd = 1, filter = "g" }
  filename = "raw/1-1.fits"
}
dataset "bias" {
  filename = "CALIB/bias.fits"
  exposure {
    pixel_type = "F"
    width      = 2048
    height     = 4096
  }
}
dataset "flat" {
  data_id  = { filter = "g" }
  filename = "/rerun/test/flat.fits"
  exposure {
    pixel_type = "F"
    width      = 2048
    height     = 4096
  }
}
`

func writeRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "repo.hcl"), []byte(repoHCL), 0o600))
	return root
}

func requireExitCode(t *testing.T, err error, code int) *ExitError {
	t.Helper()
	require.Error(t, err)
	exitErr, ok := err.(*ExitError)
	require.True(t, ok, "expected *ExitError, got %T: %v", err, err)
	require.Equal(t, code, exitErr.Code, exitErr.Message)
	return exitErr
}

func TestNormalizeIDArgs(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "multi-token selector",
			in:   []string{"processCcdValidation", "repo", "--id", "visit=1", "ccd=1..3", "-j", "4"},
			want: []string{"processCcdValidation", "repo", "--id=visit=1 ccd=1..3", "-j", "4"},
		},
		{
			name: "repeated ids",
			in:   []string{"--id", "visit=1", "--id", "visit=2", "ccd=3"},
			want: []string{"--id=visit=1", "--id=visit=2 ccd=3"},
		},
		{
			name: "positional after selector",
			in:   []string{"--id", "visit=1", "repo"},
			want: []string{"--id=visit=1", "repo"},
		},
		{
			name: "already joined",
			in:   []string{"--id=visit=1 ccd=2"},
			want: []string{"--id=visit=1 ccd=2"},
		},
		{
			name: "missing value left alone",
			in:   []string{"--id", "--doraise"},
			want: []string{"--id", "--doraise"},
		},
		{
			name: "repository path with equals sign stays positional",
			in:   []string{"processCcdValidation", "--id", "visit=1", "/data/run=3"},
			want: []string{"processCcdValidation", "--id=visit=1", "/data/run=3"},
		},
		{
			name: "dot-relative repository stays positional",
			in:   []string{"--id", "visit=1", "ccd=2", "./run=3"},
			want: []string{"--id=visit=1 ccd=2", "./run=3"},
		},
		{
			name: "terminator stops folding",
			in:   []string{"--", "--id", "visit=1"},
			want: []string{"--", "--id", "visit=1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, normalizeIDArgs(tc.in)); diff != "" {
				t.Errorf("normalizeIDArgs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecute_Help(t *testing.T) {
	t.Parallel()
	out := &bytes.Buffer{}
	require.NoError(t, Execute(context.Background(), out, []string{"--help"}))
	require.Contains(t, out.String(), "Usage:")
	require.Contains(t, out.String(), "calibValidation")
	require.Contains(t, out.String(), "processCcdValidation")
}

func TestExecute_UsageErrors(t *testing.T) {
	t.Parallel()
	repo := writeRepo(t)

	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{
			name:    "unknown flag",
			args:    []string{"processCcdValidation", repo, "--id", "visit=1", "--bogus"},
			wantMsg: "unknown flag: --bogus",
		},
		{
			name:    "missing calibToTest",
			args:    []string{"calibValidation", repo, "--id", "visit=1"},
			wantMsg: `required flag(s) "calibToTest" not set`,
		},
		{
			name:    "unknown calibration",
			args:    []string{"calibValidation", repo, "--id", "visit=1", "--calibToTest", "sky"},
			wantMsg: `invalid calibration type "sky"`,
		},
		{
			name:    "bad selector",
			args:    []string{"processCcdValidation", repo, "--id", "visit=3..1"},
			wantMsg: "invalid data ID selector",
		},
		{
			name:    "missing repo argument",
			args:    []string{"processCcdValidation", "--id", "visit=1"},
			wantMsg: "accepts 1 arg(s), received 0",
		},
		{
			name:    "bad log level",
			args:    []string{"processCcdValidation", repo, "--id", "visit=1", "--log-level", "loud"},
			wantMsg: "invalid log-level",
		},
		{
			name:    "unreadable repository",
			args:    []string{"processCcdValidation", filepath.Join(repo, "missing"), "--id", "visit=1"},
			wantMsg: "failed to load repository",
		},
		{
			name:    "missing config file",
			args:    []string{"processCcdValidation", repo, "--id", "visit=1", "-c", filepath.Join(repo, "nope.yaml")},
			wantMsg: "failed to read config file",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Execute(context.Background(), &bytes.Buffer{}, tc.args)
			exitErr := requireExitCode(t, err, ExitUsage)
			require.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}

func TestExecute_CalibValidation(t *testing.T) {
	t.Parallel()
	repo := writeRepo(t)

	t.Run("passing calibration", func(t *testing.T) {
		out := &bytes.Buffer{}
		err := Execute(context.Background(), out, []string{"calibValidation", repo, "--id", "visit=1", "--calibToTest", "bias"})
		require.NoError(t, err)
		require.Contains(t, out.String(), "All tests passed.")
	})

	t.Run("flat from a rerun", func(t *testing.T) {
		out := &bytes.Buffer{}
		err := Execute(context.Background(), out, []string{"calibValidation", repo, "--id", "visit=1", "--calibToTest", "flat"})
		exitErr := requireExitCode(t, err, ExitFailed)
		require.Equal(t, "1 tests failed", exitErr.Message)
		require.Contains(t, out.String(), `level=FATAL msg="FAIL: flat has been ingested"`)
	})
}

func TestExecute_ConfigFile(t *testing.T) {
	t.Parallel()
	repo := writeRepo(t)
	cfgPath := filepath.Join(t.TempDir(), "pipecheck.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  format: json\nprocesses: 2\n"), 0o600))

	out := &bytes.Buffer{}
	err := Execute(context.Background(), out, []string{"calibValidation", repo, "-c", cfgPath, "--id", "visit=1", "--calibToTest", "bias"})
	require.NoError(t, err)
	require.Contains(t, out.String(), `"msg":"All tests passed."`)
}

func TestExecute_FlagOverridesEnv(t *testing.T) {
	t.Setenv("PIPECHECK_LOG_FORMAT", "json")
	repo := writeRepo(t)

	out := &bytes.Buffer{}
	err := Execute(context.Background(), out, []string{"calibValidation", repo, "--id", "visit=1", "--calibToTest", "bias"})
	require.NoError(t, err)
	require.Contains(t, out.String(), `"msg":"All tests passed."`)

	out.Reset()
	err = Execute(context.Background(), out, []string{"calibValidation", repo, "--log-format", "text", "--id", "visit=1", "--calibToTest", "bias"})
	require.NoError(t, err)
	require.Contains(t, out.String(), `msg="All tests passed."`)
}

func TestExecute_RepositoryPathWithEquals(t *testing.T) {
	t.Parallel()
	repo := filepath.Join(t.TempDir(), "run=3")
	require.NoError(t, os.MkdirAll(repo, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "repo.hcl"), []byte(repoHCL), 0o600))

	out := &bytes.Buffer{}
	err := Execute(context.Background(), out, []string{"calibValidation", "--calibToTest", "bias", "--id", "visit=1", repo})
	require.NoError(t, err)
	require.Contains(t, out.String(), "All tests passed.")
}
