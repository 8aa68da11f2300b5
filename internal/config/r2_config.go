package config

import "os"

// R2 bucket settings for disaster recovery. Credentials come from the
// R2_ACCESS_KEY / R2_SECRET_KEY environment variables.
const (
	R2BucketName = "verify-db-backups"
	R2Region     = "auto"

	defaultR2Endpoint = "https://backup.r2.cloudflarestorage.com"
)

func r2Endpoint() string {
	if ep := os.Getenv("R2_ENDPOINT"); ep != "" {
		return ep
	}
	return defaultR2Endpoint
}
