package earthengine

import (
	"context"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// NewServiceAccountHTTPClient builds an authenticated client from a service
// account key file. The key's project id is returned alongside it.
func NewServiceAccountHTTPClient(ctx context.Context, credentialsFile string) (*http.Client, string, error) {
	if credentialsFile == "" {
		return nil, "", errors.New("missing GOOGLE_APPLICATION_CREDENTIALS")
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read service account credentials")
	}
	creds, err := google.CredentialsFromJSON(ctx, data, Scope)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to parse service account credentials")
	}
	return oauth2.NewClient(ctx, creds.TokenSource), creds.ProjectID, nil
}
