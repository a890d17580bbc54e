package config

import (
	"fmt"
	"os"
)

// DefaultTimeZone is used when VESYNC_TZ is unset.
const DefaultTimeZone = "America/New_York"

// Credentials holds the cloud account settings read from the
// environment. Username and password are required; the bridge refuses
// to start without them.
type Credentials struct {
	Username string
	Password string
	TimeZone string

	// BaseURL overrides the cloud endpoint when set (tests, proxies).
	BaseURL string
}

// CredentialsFromEnv reads VESYNC_USERNAME, VESYNC_PASSWORD, VESYNC_TZ
// and VESYNC_API_URL from the environment.
func CredentialsFromEnv() (Credentials, error) {
	creds := Credentials{
		Username: os.Getenv("VESYNC_USERNAME"),
		Password: os.Getenv("VESYNC_PASSWORD"),
		TimeZone: os.Getenv("VESYNC_TZ"),
		BaseURL:  os.Getenv("VESYNC_API_URL"),
	}

	if creds.Username == "" {
		return Credentials{}, fmt.Errorf("VESYNC_USERNAME is not set")
	}
	if creds.Password == "" {
		return Credentials{}, fmt.Errorf("VESYNC_PASSWORD is not set")
	}
	if creds.TimeZone == "" {
		creds.TimeZone = DefaultTimeZone
	}
	return creds, nil
}
