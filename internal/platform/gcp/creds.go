package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/yungbote/bizplan-backend/internal/platform/envutil"
)

// ClientOptionsFromEnv accepts either inline JSON credentials or a path.
// With neither set, the client falls back to application default credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	if creds == "" {
		creds = envutil.String("GOOGLE_APPLICATION_CREDENTIALS", "")
	}
	if emulator := envutil.String("STORAGE_EMULATOR_HOST", ""); emulator != "" {
		return []option.ClientOption{option.WithoutAuthentication()}
	}
	switch {
	case creds == "":
		return nil
	case strings.HasPrefix(creds, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(creds)}
	}
}
