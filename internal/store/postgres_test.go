package store

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"looprender/internal/jobs"
	"looprender/internal/pkg/errors"
)

// fakeRow feeds canned column values into scanJob without a database.
type fakeRow struct {
	vals []any
	err  error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch v := r.vals[i].(type) {
		case string:
			*d.(*string) = v
		case []byte:
			*d.(*[]byte) = v
		case time.Time:
			*d.(*time.Time) = v
		case *time.Time:
			*d.(**time.Time) = v
		case nil:
		}
	}
	return nil
}

func TestScanJob(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	started := created.Add(time.Second)

	row := &fakeRow{vals: []any{
		"job_abc",                       // job_id
		"client-1",                      // client_job_id
		"loop-basic",                    // template
		[]byte(`{"durationSec":10}`),    // params
		"succeeded",                     // status
		created,                         // created_at
		&started,                        // started_at
		&started,                        // finished_at
		"",                              // error
		[]byte(`{"durationSec":10,"outputUrl":"https://r2/o"}`), // result
	}}

	job, err := scanJob(row, "job_abc")
	require.NoError(t, err)

	assert.Equal(t, "job_abc", job.JobID)
	assert.Equal(t, jobs.StatusSucceeded, job.Status)
	assert.Equal(t, "/v1/jobs/job_abc", job.Links.Self)
	assert.Equal(t, float64(10), job.Params["durationSec"])
	require.NotNil(t, job.Result)
	assert.Equal(t, "https://r2/o", job.Result.OutputURL)
	require.NotNil(t, job.StartedAt)
	assert.True(t, job.StartedAt.Equal(started))
}

func TestScanJobNoRows(t *testing.T) {
	_, err := scanJob(&fakeRow{err: pgx.ErrNoRows}, "job_missing")
	require.Error(t, err)
	assert.True(t, errors.IsJobNotFound(err))
}

func TestMarshalJSONCols(t *testing.T) {
	job := jobs.New("loop-basic", "", map[string]any{"durationSec": 10})
	job.Result = &jobs.Result{OutputURL: "u", DurationSec: 10}

	params, result, err := marshalJSONCols(job)
	require.NoError(t, err)
	assert.JSONEq(t, `{"durationSec":10}`, string(params))
	assert.JSONEq(t, `{"outputUrl":"u","durationSec":10}`, string(result))

	bare := jobs.New("loop-basic", "", nil)
	params, result, err = marshalJSONCols(bare)
	require.NoError(t, err)
	assert.Nil(t, params)
	assert.Nil(t, result)
}
