package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/angelmondragon/elibrary-backend/pkg/enums"
)

type DecoderFunc func(payload json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	decoders map[decoderKey]DecoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]DecoderFunc)}
}

// NewLedgerDecoders registers version 1 decoders for every ledger event.
func NewLedgerDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	for _, desc := range LedgerDescriptors("") {
		desc := desc
		reg.Register(desc.EventType, 1, func(payload json.RawMessage) (any, error) {
			return decodeData(desc, payload)
		})
	}
	return reg
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder DecoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.decoders[decoderKey{eventType: eventType, version: version}] = decoder
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mtx.RLock()
	decoder, ok := r.decoders[decoderKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}
	return decoder(payload)
}
