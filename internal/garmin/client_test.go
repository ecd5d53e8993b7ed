package garmin_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstent/garminexport/internal/garmin"
	"github.com/sstent/garminexport/internal/garmin/garmintest"
)

func newClient(t *testing.T, srv *garmintest.Server) *garmin.Client {
	t.Helper()
	c, err := garmin.NewClient(srv.Config())
	require.NoError(t, err)
	return c
}

func TestLoginReturnsTicket(t *testing.T) {
	srv := garmintest.NewServer(t)
	c := newClient(t, srv)

	ticket, err := c.Login(context.Background(), garmin.Credentials{Username: srv.Username, Password: srv.Password})
	require.NoError(t, err)
	assert.Equal(t, srv.Ticket, ticket)
	assert.Equal(t, 2, srv.Hits("login"))
	assert.Equal(t, 1, srv.Hits("postauth"))
}

func TestLoginWithoutTicketFails(t *testing.T) {
	srv := garmintest.NewServer(t)
	c := newClient(t, srv)

	_, err := c.Login(context.Background(), garmin.Credentials{Username: srv.Username, Password: "wrong"})
	require.ErrorIs(t, err, garmin.ErrNoTicket)
	assert.Equal(t, 0, srv.Hits("postauth"))
}

func TestTotalActivities(t *testing.T) {
	srv := garmintest.NewServer(t)
	srv.TotalActivities = 1234
	c := newClient(t, srv)

	total, err := c.TotalActivities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1234, total)
}

func TestListActivitiesPassesPaging(t *testing.T) {
	srv := garmintest.NewServer(t)
	srv.Activities = []map[string]any{{"activityId": 3}, {"activityId": 2}, {"activityId": 1}}
	c := newClient(t, srv)

	page, err := c.ListActivities(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "2", page[0].String("activityId"))
	assert.Equal(t, "1", page[1].String("activityId"))
}

func TestActivityDetailKeepsRawBody(t *testing.T) {
	srv := garmintest.NewServer(t)
	srv.SetDetail("42", garmintest.Response{Status: http.StatusOK, Body: []byte(`{"activityId":42,"summaryDTO":{"calories":300}}`)})
	c := newClient(t, srv)

	d, err := c.ActivityDetail(context.Background(), "42")
	require.NoError(t, err)
	assert.JSONEq(t, `{"activityId":42,"summaryDTO":{"calories":300}}`, string(d.Raw))
	assert.Equal(t, "300", d.Record.Sub("summaryDTO").String("calories"))
}

func TestDownloadStatusError(t *testing.T) {
	srv := garmintest.NewServer(t)
	srv.SetDownload("gpx", "7", garmintest.Status(http.StatusInternalServerError))
	c := newClient(t, srv)

	_, err := c.Download(context.Background(), garmin.FormatOriginal, "7")
	assert.True(t, garmin.IsNotFound(err))

	_, err = c.Download(context.Background(), garmin.FormatGPX, "7")
	var se *garmin.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.False(t, garmin.IsNotFound(err))

	_, err = c.Download(context.Background(), garmin.FormatJSON, "7")
	assert.ErrorIs(t, err, garmin.ErrUnknownFormat)
}

func TestPropertiesEndpoints(t *testing.T) {
	srv := garmintest.NewServer(t)
	c := newClient(t, srv)

	types, err := c.ActivityTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Running", types.ValueOrKey("activity_type_running"))

	events, err := c.EventTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Race", events.ValueOrKey("race"))
}

func TestParseFormat(t *testing.T) {
	f, err := garmin.ParseFormat("ORIGINAL")
	require.NoError(t, err)
	assert.Equal(t, garmin.FormatOriginal, f)
	assert.Equal(t, "zip", f.Extension())
	assert.Equal(t, "gpx", garmin.FormatGPX.Extension())

	_, err = garmin.ParseFormat("fit")
	assert.ErrorIs(t, err, garmin.ErrUnknownFormat)
}
