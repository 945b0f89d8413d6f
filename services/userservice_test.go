package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmate/model"
	"taskmate/session"
	"taskmate/store/memstore"
)

func TestUserService_Register(t *testing.T) {
	st := memstore.New()
	svc := NewUserService(st.Users(), zerolog.Nop(), time.Second)
	ctx := context.Background()
	dave := session.Session{UID: "dave", Email: "dave@example.com", DisplayName: "Dave"}

	_, found, err := svc.Profile(ctx, dave)
	require.NoError(t, err)
	assert.False(t, found)

	photo := " https://img/dave "
	p, err := svc.Register(ctx, dave, ProfileUpdate{PhotoURL: &photo})
	require.NoError(t, err)
	assert.Equal(t, model.UserProfile{UID: "dave", Email: "dave@example.com", DisplayName: "Dave", PhotoURL: "https://img/dave"}, p)

	byEmail, err := st.Users().FindByEmail(ctx, "dave@example.com")
	require.NoError(t, err)
	assert.Equal(t, "dave", byEmail.UID)

	p, found, err = svc.Profile(ctx, dave)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "https://img/dave", p.PhotoURL)
}

func TestUserService_RegisterRejectsBlankName(t *testing.T) {
	svc := NewUserService(memstore.New().Users(), zerolog.Nop(), time.Second)
	blank := "  "
	_, err := svc.Register(context.Background(), alice, ProfileUpdate{DisplayName: &blank})
	assert.True(t, model.IsValidationError(err))
}

func TestUserService_PersistenceError(t *testing.T) {
	st := memstore.New()
	st.FailWrites(errors.New("unavailable"))
	svc := NewUserService(st.Users(), zerolog.Nop(), time.Second)

	_, err := svc.Register(context.Background(), alice, ProfileUpdate{})
	assert.True(t, model.IsPersistenceError(err))
}

func TestUserService_RequiresSession(t *testing.T) {
	svc := NewUserService(memstore.New().Users(), zerolog.Nop(), time.Second)
	_, _, err := svc.Profile(context.Background(), session.Session{})
	assert.ErrorIs(t, err, session.ErrNoSession)
}
