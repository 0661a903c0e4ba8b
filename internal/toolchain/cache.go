package toolchain

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"hash"
	"log/slog"

	"github.com/petrijr/comgr/internal/persistence"
)

// Key computes the content address of a stage request. Any change to the
// action, target, language, options, working directory or any input or
// include produces a different key.
func Key(req Request) string {
	h := sha256.New()
	writeField(h, []byte("comgr-stage-v1"))
	writeField(h, []byte(req.Action.String()))
	writeField(h, []byte(req.OutputKind.String()))
	writeField(h, []byte(req.ISAName))
	writeField(h, []byte(req.Language.String()))
	writeField(h, []byte(req.WorkingDir))
	writeUint(h, uint64(len(req.Options)))
	for _, o := range req.Options {
		writeField(h, []byte(o))
	}
	for _, group := range [][]Object{req.Inputs, req.Includes} {
		writeUint(h, uint64(len(group)))
		for _, obj := range group {
			writeField(h, []byte(obj.Kind.String()))
			writeField(h, []byte(obj.Name))
			writeField(h, obj.Data)
		}
	}
	// Unnamed inputs are named after their position.
	writeUint(h, uint64(req.Index))
	return hex.EncodeToString(h.Sum(nil))
}

func writeUint(h hash.Hash, n uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], n)
	h.Write(buf[:])
}

// writeField length-prefixes b so adjacent fields cannot run together.
func writeField(h hash.Hash, b []byte) {
	writeUint(h, uint64(len(b)))
	h.Write(b)
}

type cachedResult struct {
	Outputs     []Object
	Diagnostics []byte
	Log         []byte
}

// CachingProcessor answers repeated requests from a persistence.Cache.
// Only successful results are stored.
type CachingProcessor struct {
	next   Processor
	cache  persistence.Cache
	logger *slog.Logger
}

var _ Processor = (*CachingProcessor)(nil)

func NewCachingProcessor(next Processor, cache persistence.Cache, logger *slog.Logger) *CachingProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingProcessor{next: next, cache: cache, logger: logger}
}

func (p *CachingProcessor) Process(ctx context.Context, req Request) (*Result, error) {
	key := Key(req)

	raw, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		cached, derr := persistence.DecodeValue[cachedResult](raw)
		if derr == nil {
			return &Result{
				Outputs:     cached.Outputs,
				Diagnostics: cached.Diagnostics,
				Log:         cached.Log,
				Cached:      true,
			}, nil
		}
		p.logger.WarnContext(ctx, "stage_cache_corrupt", slog.String("key", key), slog.Any("error", derr))
	case !errors.Is(err, persistence.ErrCacheMiss):
		p.logger.WarnContext(ctx, "stage_cache_get_failed", slog.String("key", key), slog.Any("error", err))
	}

	res, err := p.next.Process(ctx, req)
	if err != nil || res == nil {
		return res, err
	}

	enc, eerr := persistence.EncodeValue(cachedResult{
		Outputs:     res.Outputs,
		Diagnostics: res.Diagnostics,
		Log:         res.Log,
	})
	if eerr == nil {
		eerr = p.cache.Put(ctx, key, enc)
	}
	if eerr != nil {
		p.logger.WarnContext(ctx, "stage_cache_put_failed", slog.String("key", key), slog.Any("error", eerr))
	}
	return res, nil
}
