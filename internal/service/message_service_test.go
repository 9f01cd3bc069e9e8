package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-portal-api/internal/dto"
	"github.com/noah-isme/sma-portal-api/internal/models"
	"github.com/noah-isme/sma-portal-api/internal/store"
)

func principalSender() models.ViewerContext {
	return models.ViewerContext{
		Role:        models.SenderPrincipal,
		Email:       "kepala@sma-adp.sch.id",
		DisplayName: "Ibu Kepala",
		PersonID:    "p1",
	}
}

func classTenStudent() models.ViewerContext {
	return models.ViewerContext{
		Role:        models.RoleStudent,
		Email:       "ani@sma-adp.sch.id",
		DisplayName: "Ani",
		PersonID:    "s1",
		Class:       "10",
		Section:     "A",
	}
}

func staffViewer() models.ViewerContext {
	return models.ViewerContext{
		Role:        models.RoleTeacher,
		Email:       "guru@sma-adp.sch.id",
		DisplayName: "Pak Budi",
		PersonID:    "t1",
	}
}

func newTestMessageService(t *testing.T, usesPublished bool) (MessageService, *store.Memory, *testClock) {
	t.Helper()

	memory := store.NewMemory()
	clock := newTestClock()

	svc := NewMessageService(MessageServiceOptions{
		Store:         memory,
		Key:           "portal:announcements",
		Collection:    "announcements",
		UsesPublished: usesPublished,
		Validator:     testValidator(),
		Logger:        testLogger(),
		Now:           clock.Now,
	})

	return svc, memory, clock
}

func TestCreateThenListRoundTrip(t *testing.T) {
	svc, _, _ := newTestMessageService(t, false)
	ctx := context.Background()

	created, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject:        "Ujian tengah semester",
		Body:           "Jadwal ujian terlampir.",
		RecipientType:  "class",
		RecipientClass: "10",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, models.StatusUnread, created.Status)

	matching := svc.List(ctx, classTenStudent())
	require.Len(t, matching, 1)
	require.Equal(t, created.ID, matching[0].ID)

	nonMatching := svc.List(ctx, staffViewer())
	require.Empty(t, nonMatching)

	otherClass := classTenStudent()
	otherClass.Class = "11"
	require.Empty(t, svc.List(ctx, otherClass))
}

func TestListSortsNewestFirst(t *testing.T) {
	svc, _, clock := newTestMessageService(t, false)
	ctx := context.Background()

	first, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Pertama", Body: "isi", RecipientType: "whole_school",
	})
	require.NoError(t, err)

	clock.Advance(time.Minute)

	second, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Kedua", Body: "isi", RecipientType: "whole_school",
	})
	require.NoError(t, err)

	view := svc.List(ctx, classTenStudent())
	require.Len(t, view, 2)
	require.Equal(t, second.ID, view[0].ID)
	require.Equal(t, first.ID, view[1].ID)
}

func TestCreateRegeneratesDuplicateIDs(t *testing.T) {
	svc, _, _ := newTestMessageService(t, false)
	ctx := context.Background()

	// The clock does not advance between creates, so the timestamp-derived
	// id would collide without regeneration.
	first, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Satu", Body: "isi", RecipientType: "whole_school",
	})
	require.NoError(t, err)

	second, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Dua", Body: "isi", RecipientType: "whole_school",
	})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	view := svc.List(ctx, classTenStudent())
	require.Len(t, view, 2)
}

func TestCreateRejectsDisallowedRecipient(t *testing.T) {
	svc, _, _ := newTestMessageService(t, false)
	ctx := context.Background()

	teacher := staffViewer()
	_, err := svc.Create(ctx, teacher, dto.MessageCreateRequest{
		Subject: "Halo", Body: "isi", RecipientType: "whole_school",
	})
	require.ErrorIs(t, err, ErrRecipientNotAllowed)

	_, err = svc.Create(ctx, teacher, dto.MessageCreateRequest{
		Subject: "Halo", Body: "isi", RecipientType: "class", RecipientClass: "10",
	})
	require.NoError(t, err)
}

func TestCreateRejectsMissingQualifier(t *testing.T) {
	svc, _, _ := newTestMessageService(t, false)
	ctx := context.Background()

	_, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Halo", Body: "isi", RecipientType: "class",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "recipient_class")

	_, err = svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Halo", Body: "isi", RecipientType: "individual_student",
	})
	require.Error(t, err)
}

func TestCreateSanitizesPayload(t *testing.T) {
	svc, _, _ := newTestMessageService(t, false)
	ctx := context.Background()

	created, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject:       "Pengumuman <script>alert('x')</script>",
		Body:          "<b>Besok libur</b>",
		RecipientType: "whole_school",
	})
	require.NoError(t, err)
	require.Equal(t, "Pengumuman", created.Subject)
	require.Equal(t, "Besok libur", created.Body)

	_, err = svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject:       "x",
		Body:          "<script>alert('x')</script>",
		RecipientType: "whole_school",
	})
	require.Error(t, err)
}

func TestMarkReadIsIdempotentAndScoped(t *testing.T) {
	svc, _, _ := newTestMessageService(t, false)
	ctx := context.Background()

	first, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Satu", Body: "isi", RecipientType: "whole_school",
	})
	require.NoError(t, err)

	second, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Dua", Body: "isi", RecipientType: "whole_school",
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, first.ID))
	require.NoError(t, svc.MarkRead(ctx, first.ID))

	statuses := map[string]string{}
	for _, message := range svc.List(ctx, classTenStudent()) {
		statuses[message.ID] = message.Status
	}
	require.Equal(t, models.StatusRead, statuses[first.ID])
	require.Equal(t, models.StatusUnread, statuses[second.ID])

	// Unknown id is a no-op, not an error.
	require.NoError(t, svc.MarkRead(ctx, "does-not-exist"))
}

func TestMarkAllReadOnlyTouchesMatchingRecords(t *testing.T) {
	svc, _, _ := newTestMessageService(t, false)
	ctx := context.Background()

	forClassTen, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Kelas 10", Body: "isi", RecipientType: "class", RecipientClass: "10",
	})
	require.NoError(t, err)

	forTeachers, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Guru", Body: "isi", RecipientType: "all_teachers",
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkAllRead(ctx, classTenStudent()))

	studentView := svc.List(ctx, classTenStudent())
	require.Len(t, studentView, 1)
	require.Equal(t, forClassTen.ID, studentView[0].ID)
	require.Equal(t, models.StatusRead, studentView[0].Status)

	teacherView := svc.List(ctx, staffViewer())
	require.Len(t, teacherView, 1)
	require.Equal(t, forTeachers.ID, teacherView[0].ID)
	require.Equal(t, models.StatusUnread, teacherView[0].Status)
}

func TestPublishToggleRevealsAndRestamps(t *testing.T) {
	svc, _, clock := newTestMessageService(t, true)
	ctx := context.Background()

	draft, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Rahasia", Body: "isi", RecipientType: "whole_school", Draft: true,
	})
	require.NoError(t, err)
	require.NotNil(t, draft.Published)
	require.False(t, *draft.Published)

	// Unpublished drafts are invisible to every viewer.
	require.Empty(t, svc.List(ctx, classTenStudent()))
	require.Empty(t, svc.List(ctx, staffViewer()))

	clock.Advance(2 * time.Hour)

	published, err := svc.PublishToggle(ctx, principalSender(), draft.ID)
	require.NoError(t, err)
	require.True(t, *published.Published)
	// Publishing re-stamps the creation time.
	require.True(t, published.CreatedAt.After(draft.CreatedAt))

	require.Len(t, svc.List(ctx, classTenStudent()), 1)
	require.Len(t, svc.List(ctx, staffViewer()), 1)

	// Toggling back hides it again without touching the timestamp.
	hidden, err := svc.PublishToggle(ctx, principalSender(), draft.ID)
	require.NoError(t, err)
	require.False(t, *hidden.Published)
	require.Equal(t, published.CreatedAt, hidden.CreatedAt)
	require.Empty(t, svc.List(ctx, classTenStudent()))
}

func TestPublishToggleErrors(t *testing.T) {
	svc, _, _ := newTestMessageService(t, true)
	ctx := context.Background()

	_, err := svc.PublishToggle(ctx, principalSender(), "missing")
	require.ErrorIs(t, err, ErrMessageNotFound)

	plain, _, _ := newTestMessageService(t, false)
	_, err = plain.PublishToggle(ctx, principalSender(), "any")
	require.ErrorIs(t, err, ErrPublishUnsupported)
}

func TestDeleteRemovesRecord(t *testing.T) {
	svc, _, _ := newTestMessageService(t, false)
	ctx := context.Background()

	created, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Hapus", Body: "isi", RecipientType: "whole_school",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, principalSender(), created.ID))
	require.Empty(t, svc.List(ctx, classTenStudent()))

	require.ErrorIs(t, svc.Delete(ctx, principalSender(), created.ID), ErrMessageNotFound)
}

func TestListDegradesToEmptyOnBadBlob(t *testing.T) {
	svc, memory, _ := newTestMessageService(t, false)
	ctx := context.Background()

	require.NoError(t, memory.Set(ctx, "portal:announcements", []byte("not json")))
	require.Empty(t, svc.List(ctx, classTenStudent()))
}

func TestUnknownRecipientTypeInStoredBlobIsInvisible(t *testing.T) {
	svc, memory, _ := newTestMessageService(t, false)
	ctx := context.Background()

	blob := `[{"id":"1","sender_type":"principal","subject":"x","body":"y",
		"created_at":"2025-08-18T07:00:00Z","recipient_type":"bogus","status":"unread"}]`
	require.NoError(t, memory.Set(ctx, "portal:announcements", []byte(blob)))

	require.Empty(t, svc.List(ctx, classTenStudent()))
	require.Empty(t, svc.List(ctx, staffViewer()))
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	svc, _, _ := newTestMessageService(t, false)
	ctx := context.Background()

	updates, cleanup, err := svc.Subscribe(ctx, classTenStudent())
	require.NoError(t, err)

	// Initial snapshot of the (empty) collection.
	initial := <-updates
	require.Empty(t, initial)

	created, err := svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Baru", Body: "isi", RecipientType: "class", RecipientClass: "10",
	})
	require.NoError(t, err)

	snapshot := <-updates
	require.Len(t, snapshot, 1)
	require.Equal(t, created.ID, snapshot[0].ID)

	cleanup()
	cleanup() // idempotent

	_, open := <-updates
	require.False(t, open)
}

func TestSubscribeFiltersPerViewer(t *testing.T) {
	svc, _, _ := newTestMessageService(t, false)
	ctx := context.Background()

	updates, cleanup, err := svc.Subscribe(ctx, staffViewer())
	require.NoError(t, err)
	defer cleanup()

	<-updates // initial

	_, err = svc.Create(ctx, principalSender(), dto.MessageCreateRequest{
		Subject: "Untuk kelas", Body: "isi", RecipientType: "class", RecipientClass: "10",
	})
	require.NoError(t, err)

	snapshot := <-updates
	require.Empty(t, snapshot)
}
