package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "capture":
		return captureTemplate, nil
	case "expect", "expectations":
		return expectTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const captureTemplate = `name = "envelopectl"
addr = "127.0.0.1:8765"
cors_origins = ["http://localhost:3000"]
max_body_bytes = 67108864
max_stored_requests = 1024

[limits]
max_header_bytes = 65536
max_item_bytes = 67108864
max_inflated_bytes = 268435456

[[projects]]
id = "123456"
key = "uiaeosnrtdy"
`

const expectTemplate = `# Checks run by "envelopectl verify".
format = "envelope"
attachments = ["CMakeCache.txt"]
minidump = true
debug_breadcrumb = true
stacktrace = false

[event]
level = "info"
logger = "my-logger"

[event.message]
formatted = "Hello World!"

[session]
did = "42"

[crash]
view_hierarchy = false
ring_log = true
`
