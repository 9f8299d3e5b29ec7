package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

var ErrInvalidInitData = errors.New("invalid telegram init data")

// DefaultInitDataMaxAge bounds how old a Mini App launch may be.
const DefaultInitDataMaxAge = 24 * time.Hour

// TelegramAuthenticator checks the initData string a Telegram Mini App
// passes to its backend.
type TelegramAuthenticator struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

func NewTelegramAuthenticator(botToken string, maxAge time.Duration) *TelegramAuthenticator {
	return &TelegramAuthenticator{
		botToken: botToken,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Verify validates the hash and auth_date of initData and returns the
// launching user.
func (a *TelegramAuthenticator) Verify(initData string) (*gotgbot.User, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}
	if values.Get("hash") == "" {
		return nil, fmt.Errorf("%w: missing hash", ErrInvalidInitData)
	}

	ok, err := ext.ValidateWebAppInitData(initData, a.botToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: hash mismatch", ErrInvalidInitData)
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: missing auth_date", ErrInvalidInitData)
	}
	if a.maxAge > 0 && a.now().Sub(time.Unix(authDate, 0)) > a.maxAge {
		return nil, fmt.Errorf("%w: expired", ErrInvalidInitData)
	}

	var user gotgbot.User
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, fmt.Errorf("%w: bad user: %v", ErrInvalidInitData, err)
	}
	if user.Id == 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidInitData)
	}
	return &user, nil
}
