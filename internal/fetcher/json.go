package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DecodeJSONObject decodes a single JSON object from a reader.
func DecodeJSONObject[T any](r io.Reader) (*T, error) {
	var obj T
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return nil, eris.Wrap(err, "json: decode object")
	}
	return &obj, nil
}

// FetchJSON runs FetchAll and decodes each body into T. Slots whose request
// failed or whose body does not decode are nil.
func FetchJSON[T any](ctx context.Context, f *Fetcher, codes []string, urlTemplate string) []*T {
	bodies := f.FetchAll(ctx, codes, urlTemplate)
	out := make([]*T, len(bodies))
	for i, body := range bodies {
		if body == nil {
			continue
		}
		v, err := DecodeJSONObject[T](bytes.NewReader(body))
		if err != nil {
			zap.L().Error("fetch: undecodable response",
				zap.String("service", f.service),
				zap.String("code", codes[i]),
				zap.Error(err),
			)
			continue
		}
		out[i] = v
	}
	return out
}
