package sink_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/bills-enricher/internal/models"
	"github.com/DeafMist/bills-enricher/internal/sink"
)

type stubSink struct {
	name  string
	err   error
	calls int
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Persist(context.Context, models.Bills) error {
	s.calls++
	return s.err
}

type stubWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.closed = true
	return nil
}

func sampleBills() models.Bills {
	ayes, nays := 70, 60
	return models.Bills{
		"SF2": {BillID: "SF2", Categories: []string{"Transportation"}, SenateSponsors: []models.SponsorDetail{}, HouseSponsors: []models.SponsorDetail{}},
		"HF1": {BillID: "HF1", HouseAyes: &ayes, HouseNays: &nays, Categories: []string{"Transportation", "Education"}, SenateSponsors: []models.SponsorDetail{}, HouseSponsors: []models.SponsorDetail{}},
	}
}

func TestLoadSourceBills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bills-list.json")
	content := `[{"bill":"HF1","house_vote":"70-60","vetoed":"0"},{"bill":"SF2","description":"roads"}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := sink.LoadSourceBills(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "HF1", records[0].Bill)
	require.Equal(t, "70-60", *records[0].HouseVote)
	require.Nil(t, records[0].SenateVote)
	require.Equal(t, "roads", *records[1].Description)
}

func TestLoadSourceBillsErrors(t *testing.T) {
	_, err := sink.LoadSourceBills(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bill":"HF1"}`), 0o644))
	_, err = sink.LoadSourceBills(path)
	require.Error(t, err)
}

func TestFilePersistWritesJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data", "bills.json")
	f := &sink.File{Path: path}

	require.NoError(t, f.Persist(context.Background(), sampleBills()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, float64(70), decoded["HF1"]["house_ayes"])
	require.NotContains(t, decoded["SF2"], "house_ayes")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFilePersistIsByteStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bills.json")
	f := &sink.File{Path: path}

	require.NoError(t, f.Persist(context.Background(), sampleBills()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, f.Persist(context.Background(), sampleBills()))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestFanoutPrimaryFailureStops(t *testing.T) {
	boom := errors.New("disk full")
	primary := &stubSink{name: "file", err: boom}
	secondary := &stubSink{name: "kafka"}

	f := &sink.Fanout{Primary: primary, Secondaries: []sink.Sink{secondary}}
	require.ErrorIs(t, f.Persist(context.Background(), sampleBills()), boom)
	require.Equal(t, 0, secondary.calls)
}

func TestFanoutSecondaryFailureIsLogged(t *testing.T) {
	primary := &stubSink{name: "file"}
	broken := &stubSink{name: "elasticsearch", err: errors.New("down")}
	ok := &stubSink{name: "kafka"}

	f := &sink.Fanout{Primary: primary, Secondaries: []sink.Sink{broken, ok}}
	require.NoError(t, f.Persist(context.Background(), sampleBills()))
	require.Equal(t, 1, primary.calls)
	require.Equal(t, 1, broken.calls)
	require.Equal(t, 1, ok.calls)
}

func TestBuildMessagesSortedByID(t *testing.T) {
	msgs, err := sink.BuildMessages(sampleBills(), "run-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "HF1", string(msgs[0].Key))
	require.Equal(t, "SF2", string(msgs[1].Key))
	require.Equal(t, "run_id", msgs[0].Headers[0].Key)
	require.Equal(t, "run-1", string(msgs[0].Headers[0].Value))

	var bill models.EnrichedBill
	require.NoError(t, json.Unmarshal(msgs[0].Value, &bill))
	require.Equal(t, 70, *bill.HouseAyes)
}

func TestKafkaPersist(t *testing.T) {
	w := &stubWriter{}
	k := sink.NewKafkaWithWriter(w, "run-2")

	require.Equal(t, "kafka", k.Name())
	require.NoError(t, k.Persist(context.Background(), sampleBills()))
	require.Len(t, w.msgs, 2)

	require.NoError(t, k.Persist(context.Background(), models.Bills{}))
	require.Len(t, w.msgs, 2)

	require.NoError(t, k.Close())
	require.True(t, w.closed)
}
