package control

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"adsbfeed/internal/tracker"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	snapshots []tracker.Snapshot
	stats     tracker.Stats
}

func (f *fakeQuerier) Query() []tracker.Snapshot { return f.snapshots }
func (f *fakeQuerier) Stats() tracker.Stats      { return f.stats }

func newTestServer(t *testing.T, q Querier) *Server {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv := NewServer(0, q, logger)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.listener = ln
	go srv.acceptLoop()

	t.Cleanup(func() { srv.Stop() })
	return srv
}

func query(t *testing.T, addr string, line string) []byte {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(line + "\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	reader := bufio.NewReader(conn)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	return data
}

func TestControlPortEmptyQueryReturnsAircraftRegister(t *testing.T) {
	q := &fakeQuerier{snapshots: []tracker.Snapshot{{ICAO: 0xABCDEF, Callsign: "TEST123"}}}
	srv := newTestServer(t, q)

	data := query(t, srv.listener.Addr().String(), "")

	var got []tracker.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	require.Equal(t, uint32(0xABCDEF), got[0].ICAO)
}

func TestControlPortAircraftQueryReturnsAircraftRegister(t *testing.T) {
	q := &fakeQuerier{snapshots: []tracker.Snapshot{{ICAO: 0x123456}}}
	srv := newTestServer(t, q)

	data := query(t, srv.listener.Addr().String(), "aircraft")

	var got []tracker.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	require.Equal(t, uint32(0x123456), got[0].ICAO)
}

func TestControlPortStatsQueryReturnsStats(t *testing.T) {
	q := &fakeQuerier{stats: tracker.Stats{AircraftTracked: 7}}
	srv := newTestServer(t, q)

	data := query(t, srv.listener.Addr().String(), "stats")

	var got tracker.Stats
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, 7, got.AircraftTracked)
}

func TestControlPortUnknownQueryReturnsError(t *testing.T) {
	q := &fakeQuerier{}
	srv := newTestServer(t, q)

	data := query(t, srv.listener.Addr().String(), "bogus")

	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	require.Contains(t, got["error"], "bogus")
}

func TestControlPortQueryIsCaseInsensitive(t *testing.T) {
	q := &fakeQuerier{stats: tracker.Stats{AircraftTracked: 3}}
	srv := newTestServer(t, q)

	data := query(t, srv.listener.Addr().String(), "STATS")

	var got tracker.Stats
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, 3, got.AircraftTracked)
}
