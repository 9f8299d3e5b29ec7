package services_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"rewards-backend/internal/services"
)

// signInitData builds Mini App launch data hashed the way Telegram does.
func signInitData(botToken string, authDate time.Time, user string) string {
	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", user)

	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))

	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func TestTelegramVerify(t *testing.T) {
	auth := services.NewTelegramAuthenticator("123:abc", time.Hour)
	data := signInitData("123:abc", time.Now(), `{"id":42,"first_name":"Ada","last_name":"L","username":"ada"}`)

	user, err := auth.Verify(data)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if user.Id != 42 || user.Username != "ada" || user.FirstName != "Ada" {
		t.Errorf("Unexpected user %+v", user)
	}
}

func TestTelegramVerifyRejects(t *testing.T) {
	auth := services.NewTelegramAuthenticator("123:abc", time.Hour)
	userJSON := `{"id":42,"first_name":"Ada"}`

	tampered, _ := url.ParseQuery(signInitData("123:abc", time.Now(), userJSON))
	tampered.Set("user", `{"id":1,"first_name":"Eve"}`)

	tests := map[string]string{
		"other bot": signInitData("999:zzz", time.Now(), userJSON),
		"expired":   signInitData("123:abc", time.Now().Add(-2*time.Hour), userJSON),
		"tampered":  tampered.Encode(),
		"no hash":   "auth_date=1&user=%7B%7D",
		"bad hash":  "auth_date=1&user=%7B%7D&hash=zz",
		"no user":   signInitData("123:abc", time.Now(), `{}`),
	}
	for name, data := range tests {
		if _, err := auth.Verify(data); !errors.Is(err, services.ErrInvalidInitData) {
			t.Errorf("%s: expected ErrInvalidInitData, got %v", name, err)
		}
	}
}
