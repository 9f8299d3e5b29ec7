package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateHistoryID() string {
	return fmt.Sprintf("play_%s_%s",
		time.Now().UTC().Format("20060102"),
		uuid.NewString())
}

func GenerateDepositID() string {
	return fmt.Sprintf("dep_%s_%s",
		time.Now().UTC().Format("20060102"),
		uuid.NewString())
}

func GenerateItemID() string {
	return "item_" + uuid.NewString()
}

// TelegramName resolves the account id for a Telegram user: the @username,
// then First_Last, then First, then a fixed placeholder.
func TelegramName(username, firstName, lastName string) string {
	switch {
	case username != "":
		return username
	case firstName != "" && lastName != "":
		return firstName + "_" + lastName
	case firstName != "":
		return firstName
	default:
		return "Unknown_User"
	}
}
