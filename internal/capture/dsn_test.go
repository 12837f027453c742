package capture

import (
	"testing"

	"github.com/danmuck/envelopectl/internal/testutil/testlog"
)

func TestDSN(t *testing.T) {
	testlog.Start(t)
	got, err := DSN("http://localhost:8765", "uiaeosnrtdy", "123456")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	if got != "http://uiaeosnrtdy@127.0.0.1:8765/123456" {
		t.Fatalf("dsn = %q", got)
	}
	if got, _ := DSN("http://10.0.0.2:9000/", "", "/7/"); got != "http://10.0.0.2:9000/7" {
		t.Fatalf("dsn without key = %q", got)
	}
	if _, err := DSN("127.0.0.1:9000", "k", "1"); err == nil {
		t.Fatalf("expected error for schemeless url")
	}
}
