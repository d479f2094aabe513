package delivery

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"BeatStudio/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrackStore struct {
	recordings map[int64]*model.Recording
	delivered  map[int64]string
}

func newFakeTrackStore(ids ...int64) *fakeTrackStore {
	s := &fakeTrackStore{
		recordings: make(map[int64]*model.Recording),
		delivered:  make(map[int64]string),
	}
	for _, id := range ids {
		s.recordings[id] = &model.Recording{ID: id, Status: model.RecordingInProgress}
	}
	return s
}

func (s *fakeTrackStore) GetByID(_ context.Context, id int64) (*model.Recording, error) {
	return s.recordings[id], nil
}

func (s *fakeTrackStore) SetDeliveredTrack(_ context.Context, id int64, trackPath string) error {
	s.delivered[id] = trackPath
	return nil
}

type uploadCall struct {
	objectName  string
	size        int64
	contentType string
	body        []byte
}

func captureUploads(calls *[]uploadCall) UploadFunc {
	return func(_ context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
		body, err := io.ReadAll(reader)
		if err != nil {
			return "", err
		}
		*calls = append(*calls, uploadCall{objectName, size, contentType, body})
		return objectName, nil
	}
}

func TestDeliverUploadsAndCompletesRecording(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "42.mp3")
	require.NoError(t, os.WriteFile(path, []byte("final mix"), 0o644))

	store := newFakeTrackStore(42)
	var calls []uploadCall
	w := NewWatcher(dir, store, captureUploads(&calls), "delivered/")

	w.Deliver(context.Background(), path)

	require.Len(t, calls, 1)
	assert.Equal(t, "delivered/42.mp3", calls[0].objectName)
	assert.Equal(t, "audio/mpeg", calls[0].contentType)
	assert.Equal(t, []byte("final mix"), calls[0].body)
	assert.Equal(t, "delivered/42.mp3", store.delivered[42])

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "local file should be removed after delivery")
}

func TestDeliverIgnoresUnparseableNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("lyrics"), 0o644))

	store := newFakeTrackStore()
	var calls []uploadCall
	w := NewWatcher(dir, store, captureUploads(&calls), "delivered/")

	w.Deliver(context.Background(), path)

	assert.Empty(t, calls)
	_, err := os.Stat(path)
	assert.NoError(t, err, "unparseable files stay in place")
}

func TestDeliverUnknownRecordingKeepsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "7.wav")
	require.NoError(t, os.WriteFile(path, []byte("take"), 0o644))

	store := newFakeTrackStore() // recording 7 does not exist
	var calls []uploadCall
	w := NewWatcher(dir, store, captureUploads(&calls), "delivered/")

	w.Deliver(context.Background(), path)

	assert.Empty(t, calls)
	assert.Empty(t, store.delivered)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestDeliverSkipsUnpaidRecording(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "9.mp3")
	require.NoError(t, os.WriteFile(path, []byte("rough cut"), 0o644))

	store := newFakeTrackStore(9)
	store.recordings[9].Status = model.RecordingPending
	var calls []uploadCall
	w := NewWatcher(dir, store, captureUploads(&calls), "delivered/")

	w.Deliver(context.Background(), path)

	assert.Empty(t, calls)
	assert.Empty(t, store.delivered)
	_, err := os.Stat(path)
	assert.NoError(t, err, "unpaid work stays in the directory")
}

func TestDeliverIsIdempotentPerFileName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "42.flac")
	require.NoError(t, os.WriteFile(path, []byte("master"), 0o644))

	store := newFakeTrackStore(42)
	var calls []uploadCall
	w := NewWatcher(dir, store, captureUploads(&calls), "delivered/")

	w.Deliver(context.Background(), path)
	w.Deliver(context.Background(), path)

	assert.Len(t, calls, 1)
}

func TestParseRecordingID(t *testing.T) {
	id, err := parseRecordingID("128.wav")
	require.NoError(t, err)
	assert.Equal(t, int64(128), id)

	_, err = parseRecordingID("final_mix.wav")
	assert.Error(t, err)

	_, err = parseRecordingID("-3.mp3")
	assert.Error(t, err)
}
