package models

type ChatState struct {
	UserID int64
	State  string
}
