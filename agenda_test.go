package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmate/calendar"
	"taskmate/model"
	"taskmate/session"
	"taskmate/store/memstore"
)

func TestRenderAgenda(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 6, 15, 8, 0, 0, 0, loc)
	mk := func(id, title string, at time.Time) model.Assignment {
		a := model.NewAssignment(id, "alice", title, now, "m")
		a.Reminder = model.ReminderAt(at)
		return a
	}
	items := []model.Assignment{
		mk("a", "Essay", time.Date(2024, 6, 15, 14, 30, 0, 0, loc)),
		mk("b", "Lab", time.Date(2024, 6, 14, 9, 0, 0, 0, loc)),
		mk("c", "Quiz", time.Date(2024, 6, 20, 9, 5, 0, 0, loc)),
	}

	var buf bytes.Buffer
	renderAgenda(&buf, calendar.Build(items, now, loc), loc)

	want := "You have 1 task due today! (2024-06-15)\n" +
		"\n2024-06-14 [overdue]\n  09:00 AM  Lab\n" +
		"\n2024-06-15 [today]\n  02:30 PM  Essay\n" +
		"\n2024-06-20 [upcoming]\n  09:05 AM  Quiz\n"
	assert.Equal(t, want, buf.String())
}

func TestResolveSession(t *testing.T) {
	st := memstore.New()
	st.PutUser(model.UserProfile{UID: "alice", DisplayName: "Alice", Email: "alice@example.com"})
	ctx := context.Background()

	h := session.NewHolder()
	resolveSession(ctx, h, st.Users(), "alice")
	sess, err := h.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", sess.DisplayName)

	h = session.NewHolder()
	resolveSession(ctx, h, st.Users(), "ghost")
	sess, err = h.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.Session{UID: "ghost"}, sess)

	h = session.NewHolder()
	resolveSession(ctx, h, st.Users(), "")
	_, err = h.Wait(ctx)
	assert.True(t, errors.Is(err, session.ErrNoSession))
}

func TestWatchAgenda_PrintsOnChange(t *testing.T) {
	st := memstore.New()
	a := model.NewAssignment("a1", "alice", "Essay", time.Now(), "m1")
	a.Reminder = model.ReminderAt(time.Now())
	require.NoError(t, st.Create(context.Background(), a))

	ctx, cancel := context.WithCancel(context.Background())
	var buf syncBuffer
	done := make(chan error, 1)
	go func() { done <- watchAgenda(ctx, st, session.Session{UID: "alice"}, time.Local, &buf) }()

	require.Eventually(t, func() bool { return bytes.Contains(buf.Bytes(), []byte("Essay")) }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watchAgenda did not return")
	}
}
