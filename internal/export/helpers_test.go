package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/sstent/garminexport/internal/config"
	"github.com/sstent/garminexport/internal/csvexport"
	"github.com/sstent/garminexport/internal/garmin"
	"github.com/sstent/garminexport/internal/garmin/garmintest"
)

var quiet = log.New(io.Discard)

// activities returns n summaries, newest first, as the list endpoint does.
// Activity i starts on March i, 2021 at 07:00 local, one hour ahead of GMT.
func activities(n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for id := n; id >= 1; id-- {
		out = append(out, map[string]any{
			"activityId":     id,
			"activityName":   fmt.Sprintf("Run %d", id),
			"startTimeLocal": fmt.Sprintf("2021-03-%02d 07:00:00", id),
			"startTimeGMT":   fmt.Sprintf("2021-03-%02d 06:00:00", id),
			"duration":       1800.0,
			"distance":       5000.0,
			"activityType":   map[string]any{"typeId": 1, "parentTypeId": 17, "typeKey": "running"},
		})
	}
	return out
}

func stem(id int) string {
	return fmt.Sprintf("2021-03-%02d_070000_%d", id, id)
}

func testTemplate(t *testing.T) csvexport.Template {
	t.Helper()
	tmpl, err := csvexport.ParseTemplate(strings.NewReader("id=ID\nactivityName=Name\ndevice=Device\ngear=Gear\n"))
	require.NoError(t, err)
	return tmpl
}

func newClient(t *testing.T, srv *garmintest.Server) *garmin.Client {
	t.Helper()
	client, err := garmin.NewClient(srv.Config(), garmin.WithLogger(quiet))
	require.NoError(t, err)
	return client
}

func newService(t *testing.T, srv *garmintest.Server, cfg config.Config, opts Options, options ...Option) *Service {
	t.Helper()
	if opts.Directory == "" {
		opts.Directory = t.TempDir()
	}
	if len(opts.Template.Columns) == 0 {
		opts.Template = testTemplate(t)
	}
	return NewService(newClient(t, srv), cfg, opts, append([]Option{WithLogger(quiet)}, options...)...)
}

func readRows(t *testing.T, dir string) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, CSVFileName))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func column(rows [][]string, i int) []string {
	var out []string
	for _, r := range rows[1:] {
		out = append(out, r[i])
	}
	return out
}
