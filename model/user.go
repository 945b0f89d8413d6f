package model

// UserProfile is the read-only profile stored in the users collection.
type UserProfile struct {
	UID         string `firestore:"uid,omitempty" json:"uid"`
	DisplayName string `firestore:"displayName,omitempty" json:"displayName"`
	PhotoURL    string `firestore:"photoURL,omitempty" json:"photoURL"`
	Email       string `firestore:"email,omitempty" json:"email"`
}
