package config

import (
	"fmt"
	"os"
)

func Template() string {
	return edgectlTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(edgectlTemplate), 0o600)
}

const edgectlTemplate = `[log]
level = "info"
timestamp = true
no_color = false

[serve]
addr = "127.0.0.1:7100"
cors_origins = ["http://localhost:3000"]
# token = ""  # bearer token required on /v1 routes when set
# tls_cert = "certs/edgectl.crt"
# tls_key = "certs/edgectl.key"

[output]
format = "text"

[metadata]
format = "raw"
`
