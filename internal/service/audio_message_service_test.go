package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-portal-api/internal/dto"
	"github.com/noah-isme/sma-portal-api/internal/models"
)

type stubUploader struct {
	uploaded []string
	url      string
	err      error
}

func (u *stubUploader) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	u.uploaded = append(u.uploaded, name)
	return u.url, nil
}

// wavSample is a minimal RIFF/WAVE header, enough for MIME detection.
func wavSample() []byte {
	sample := []byte("RIFF\x24\x00\x00\x00WAVEfmt ")
	return append(sample, make([]byte, 32)...)
}

func TestAudioCreateUploadsAndPublishes(t *testing.T) {
	messages, _, _ := newTestMessageService(t, false)
	uploader := &stubUploader{url: "https://cdn.sma-adp.sch.id/audio/pengumuman.wav"}
	svc := NewAudioMessageService(messages, uploader, testLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject:       "Pesan suara",
		Body:          "Dengarkan pengumuman berikut",
		RecipientType: string(models.RecipientWholeSchool),
	}, "pengumuman.wav", bytes.NewReader(wavSample()))
	require.NoError(t, err)
	require.Equal(t, uploader.url, created.AudioURL)
	require.Equal(t, []string{"pengumuman.wav"}, uploader.uploaded)

	listed := messages.List(ctx, classTenStudent())
	require.Len(t, listed, 1)
	require.Equal(t, uploader.url, listed[0].AudioURL)
}

func TestAudioCreateRejectsNonAudio(t *testing.T) {
	messages, _, _ := newTestMessageService(t, false)
	uploader := &stubUploader{url: "https://cdn.sma-adp.sch.id/audio/x"}
	svc := NewAudioMessageService(messages, uploader, testLogger())

	_, err := svc.Create(context.Background(), principalSender(), dto.MessageCreateRequest{
		Subject:       "Pesan suara",
		Body:          "Isi",
		RecipientType: string(models.RecipientWholeSchool),
	}, "notes.txt", strings.NewReader("jadwal ujian semester ganjil"))
	require.ErrorIs(t, err, ErrUnsupportedAudio)
	require.Empty(t, uploader.uploaded)
}

func TestAudioCreateRejectsEmptyAndOversized(t *testing.T) {
	messages, _, _ := newTestMessageService(t, false)
	svc := NewAudioMessageService(messages, &stubUploader{url: "x"}, testLogger())
	ctx := context.Background()

	payload := dto.MessageCreateRequest{
		Subject:       "Pesan suara",
		Body:          "Isi",
		RecipientType: string(models.RecipientWholeSchool),
	}

	_, err := svc.Create(ctx, principalSender(), payload, "empty.wav", bytes.NewReader(nil))
	require.Error(t, err)

	oversized := append(wavSample(), make([]byte, maxAudioSize)...)
	_, err = svc.Create(ctx, principalSender(), payload, "huge.wav", bytes.NewReader(oversized))
	require.Error(t, err)
}
