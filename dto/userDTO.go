package dto

import "taskmate/model"

type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

type ProfileResponse struct {
	model.UserProfile
	Registered bool `json:"registered"`
}
