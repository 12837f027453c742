package observability

import (
	"testing"

	"github.com/danmuck/envelopectl/internal/testutil/testlog"
	"github.com/rs/zerolog/log"
)

func TestInitLoggerReplacesGlobal(t *testing.T) {
	testlog.Start(t)
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	logger := InitLogger("capture-test")
	if logger.GetLevel() != log.Logger.GetLevel() {
		t.Fatalf("global logger not replaced")
	}
	logger.Debug().Msg("logger ready")
}
