package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/specialistvlad/pipecheck/internal/validate"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	r := New()
	r.CheckCompleted(ctx, validate.Check{Task: "calibValidation", OK: true})
	r.CheckCompleted(ctx, validate.Check{Task: "calibValidation", OK: true})
	r.CheckCompleted(ctx, validate.Check{Task: "calibValidation", OK: false})
	r.UnitCompleted(ctx, validate.Unit{Task: "calibValidation", Failures: 1, Duration: time.Millisecond})
	r.UnitCompleted(ctx, validate.Unit{Task: "calibValidation", Err: errors.New("boom")})
	r.UnitCompleted(ctx, validate.Unit{Task: "calibValidation"})
	r.RunCompleted("calibValidation", 2*time.Second)

	require.Equal(t, 2.0, testutil.ToFloat64(r.checks.WithLabelValues("calibValidation", "pass")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.checks.WithLabelValues("calibValidation", "fail")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.units.WithLabelValues("calibValidation", "failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.units.WithLabelValues("calibValidation", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.units.WithLabelValues("calibValidation", "passed")))
	require.Equal(t, 2.0, testutil.ToFloat64(r.runTime.WithLabelValues("calibValidation")))
	require.Equal(t, 1, testutil.CollectAndCount(r.unitTime))
}

func TestRecorder_Exports(t *testing.T) {
	t.Parallel()

	r := New()
	r.CheckCompleted(context.Background(), validate.Check{Task: "processCcdValidation", OK: false})

	path := filepath.Join(t.TempDir(), "pipecheck.prom")
	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `pipecheck_checks_total{result="fail",task="processCcdValidation"} 1`)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "# TYPE pipecheck_checks_total counter")
}
