package firestorestore

import (
	"context"

	"cloud.google.com/go/firestore"

	"taskmate/model"
	"taskmate/store"
)

type Users struct {
	client *firestore.Client
}

var _ store.Users = (*Users)(nil)

func NewUsers(client *firestore.Client) *Users {
	return &Users{client: client}
}

func (u *Users) FindByEmail(ctx context.Context, email string) (model.UserProfile, error) {
	docs, err := u.client.Collection(store.UsersCollection).
		Where("email", "==", email).
		Limit(1).
		Documents(ctx).
		GetAll()
	if err != nil {
		return model.UserProfile{}, err
	}
	if len(docs) == 0 {
		return model.UserProfile{}, model.ErrNotFound
	}
	return profileFrom(docs[0])
}

func (u *Users) Get(ctx context.Context, uid string) (model.UserProfile, error) {
	snap, err := u.client.Collection(store.UsersCollection).Doc(uid).Get(ctx)
	if err != nil {
		return model.UserProfile{}, mapNotFound(err)
	}
	return profileFrom(snap)
}

func (u *Users) Save(ctx context.Context, p model.UserProfile) error {
	fields := map[string]interface{}{"uid": p.UID}
	if p.DisplayName != "" {
		fields["displayName"] = p.DisplayName
	}
	if p.PhotoURL != "" {
		fields["photoURL"] = p.PhotoURL
	}
	if p.Email != "" {
		fields["email"] = p.Email
	}
	_, err := u.client.Collection(store.UsersCollection).Doc(p.UID).Set(ctx, fields, firestore.MergeAll)
	return err
}

func profileFrom(snap *firestore.DocumentSnapshot) (model.UserProfile, error) {
	var p model.UserProfile
	if err := snap.DataTo(&p); err != nil {
		return model.UserProfile{}, err
	}
	if p.UID == "" {
		p.UID = snap.Ref.ID
	}
	return p, nil
}
