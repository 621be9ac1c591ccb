package edge

import (
	"github.com/danmuck/edgexchange/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Liveness tags stored in every handle.
const (
	MagicAlive uint32 = 0xfeedfeed
	MagicDead  uint32 = 0xdeaddead
)

// DataLimit is the maximum number of buffers one Data holds.
const DataLimit = 16

// ReleaseFunc is run exactly once over a buffer whose ownership was handed to
// a handle, when that handle is destroyed or the buffer is replaced. A nil
// ReleaseFunc marks the buffer as borrowed: the handle never releases it.
type ReleaseFunc func(buf []byte)

// Free is the release action for buffers the package allocates itself (see
// Data.Copy). The collector reclaims the memory; Free scrubs the bytes so a
// view kept past the handle's lifetime cannot read live data.
func Free(buf []byte) {
	clear(buf)
}

func invalid(op, reason string) error {
	log.Error().Msgf("%s invalid param, %s", op, reason)
	return protocol.InvalidParameter(op, reason)
}
