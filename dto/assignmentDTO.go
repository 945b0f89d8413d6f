package dto

import (
	"time"

	"taskmate/model"
	"taskmate/services"
)

type CreateAssignmentRequest struct {
	Title string `json:"title"`
}

type UpdateTitleRequest struct {
	Title string `json:"title"`
}

type UpdateContentRequest struct {
	Content    string           `json:"content"`
	TextAlign  string           `json:"textAlign"`
	TextFormat model.TextFormat `json:"textFormat"`
}

// UpdateReminderRequest sets the reminder from an exact time or from the raw
// form fields. Leaving both empty clears it.
type UpdateReminderRequest struct {
	At   *time.Time              `json:"at"`
	Form *services.ReminderInput `json:"form"`
}

type ShareRequest struct {
	Email string `json:"email"`
}

type AssignmentResponse struct {
	model.Assignment
	ReminderLabel string `json:"reminderLabel"`
}

type ReceiptResponse struct {
	Message string           `json:"message"`
	Receipt services.Receipt `json:"receipt"`
}

type CollaboratorResponse struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photoURL"`
}
