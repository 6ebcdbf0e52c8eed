// Package objconfig decodes the opaque per-klass configuration blob
// create_object receives (spec §6: "config layout is klass-specific and
// opaque; each klass's constructor decodes it"). Blobs are JSON, decoded
// with json-iterator for parity with the way this pack's storage-system
// teacher (aistore) decodes opaque wire payloads.
package objconfig

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/voidtrance/vortex/internal/xerrors"
)

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// Decode unmarshals blob into a new T. An empty blob decodes to the zero
// value of T, so klasses with no required configuration can omit it.
func Decode[T any](blob []byte) (T, error) {
	var cfg T
	if len(blob) == 0 {
		return cfg, nil
	}
	if err := api.Unmarshal(blob, &cfg); err != nil {
		return cfg, xerrors.Wrap(xerrors.KindInvalidArgument, err, "decode object config")
	}
	return cfg, nil
}

// Encode marshals cfg back to JSON, mainly for tests that round-trip a
// config struct through the same opaque-blob boundary real callers use.
func Encode(cfg any) ([]byte, error) {
	return api.Marshal(cfg)
}
