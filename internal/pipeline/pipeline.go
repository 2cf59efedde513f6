// Package pipeline runs the statistics, establishment and boundary queries:
// fetch every unit, decode, aggregate, reshape.
package pipeline

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/medlin-app/medlin/internal/cube"
	"github.com/medlin-app/medlin/internal/establishment"
	"github.com/medlin-app/medlin/internal/fetcher"
	"github.com/medlin-app/medlin/internal/mapping"
	"github.com/medlin-app/medlin/internal/reshape"
	"github.com/medlin-app/medlin/pkg/insee"
)

// Pipeline wires the fetcher to the reshapers.
type Pipeline struct {
	insee      *fetcher.Fetcher
	sirene     *fetcher.Fetcher
	geo        *fetcher.Fetcher
	endpoints  insee.Endpoints
	normalizer *establishment.Normalizer
}

// emptySearchPage stands in for the 404 SIRENE returns when a search has
// no hit.
var emptySearchPage = []byte(`{"header":{"statut":404,"total":0,"nombre":0},"etablissements":[]}`)

// New creates a Pipeline. Boundary requests reuse f without its credential.
func New(f *fetcher.Fetcher, endpoints insee.Endpoints, proj *mapping.Projection) *Pipeline {
	return &Pipeline{
		insee:      f,
		sirene:     f.WithStatusBody(http.StatusNotFound, emptySearchPage),
		geo:        f.Anonymous("geo"),
		endpoints:  endpoints,
		normalizer: establishment.New(proj),
	}
}

// Query selects a topic for a set of geographic units.
type Query struct {
	Topic string      `json:"topic"`
	Level insee.Level `json:"level"`
	Codes []string    `json:"codes"`
}

// StatsResult is a reshaped topic. View holds one of the reshape views.
type StatsResult struct {
	BatchID string      `json:"batchId"`
	Topic   string      `json:"topic"`
	Level   insee.Level `json:"level"`
	Codes   []string    `json:"codes"`
	// Missing lists the units whose data could not be fetched or decoded.
	Missing []string `json:"missing,omitempty"`
	View    any      `json:"view"`
}

// Stats fetches and reshapes one topic. Units that fail are reported in
// Missing; reshape.ErrNoData is returned when none contributed.
func (p *Pipeline) Stats(ctx context.Context, q Query) (*StatsResult, error) {
	if q.Level == "" {
		q.Level = insee.Commune
	}
	dataset, err := insee.Lookup(q.Topic)
	if err != nil {
		return nil, err
	}
	if err := insee.ValidateCodes(q.Level, q.Codes); err != nil {
		return nil, err
	}

	batch := uuid.New().String()
	log := zap.L().With(
		zap.String("batch_id", batch),
		zap.String("topic", q.Topic),
		zap.String("level", string(q.Level)),
		zap.Int("codes", len(q.Codes)),
	)
	log.Info("pipeline: fetching topic")
	start := time.Now()

	bodies := p.insee.FetchAll(ctx, q.Codes, p.endpoints.DatasetTemplate(dataset, q.Level))
	cubes, missing := decodeCubes(log, q.Codes, bodies)

	view, err := reshapeTopic(q.Topic, cubes)
	if err != nil {
		log.Warn("pipeline: topic has no data", zap.Strings("missing", missing), zap.Error(err))
		return nil, eris.Wrapf(err, "pipeline: %s", q.Topic)
	}

	log.Info("pipeline: topic complete",
		zap.Int("missing", len(missing)),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return &StatsResult{
		BatchID: batch,
		Topic:   q.Topic,
		Level:   q.Level,
		Codes:   q.Codes,
		Missing: missing,
		View:    view,
	}, nil
}

func decodeCubes(log *zap.Logger, codes []string, bodies [][]byte) ([]*cube.StatCube, []string) {
	cubes := make([]*cube.StatCube, len(bodies))
	var missing []string
	for i, body := range bodies {
		if body == nil {
			missing = append(missing, codes[i])
			continue
		}
		c, err := cube.Decode(body)
		if err != nil {
			log.Error("pipeline: undecodable cube", zap.String("code", codes[i]), zap.Error(err))
			missing = append(missing, codes[i])
			continue
		}
		if err := c.Validate(); err != nil {
			log.Warn("pipeline: inconsistent cube", zap.String("code", codes[i]), zap.Error(err))
		}
		cubes[i] = c
	}
	return cubes, missing
}

func reshapeTopic(topic string, cubes []*cube.StatCube) (any, error) {
	if topic == "revenus-median" {
		return reshape.Summarize(cubes)
	}
	merged := cube.Merge(cubes)
	switch topic {
	case "population":
		return reshape.Population(merged)
	case "menages":
		return reshape.Households(merged)
	case "familles":
		return reshape.Families(merged)
	case "logement":
		return reshape.Housing(merged)
	case "revenus":
		return reshape.Income(merged)
	case "diplomes":
		return reshape.Diploma(merged)
	}
	return nil, eris.Errorf("pipeline: no reshaper for topic %q", topic)
}

// TopicOutcome is the result of one topic within StatsAll.
type TopicOutcome struct {
	Topic  string       `json:"topic"`
	Result *StatsResult `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// StatsAll runs several topics for the same units in parallel. A failing
// topic is reported in its outcome and does not stop the others.
func (p *Pipeline) StatsAll(ctx context.Context, topics []string, level insee.Level, codes []string) []TopicOutcome {
	out := make([]TopicOutcome, len(topics))
	g, gCtx := errgroup.WithContext(ctx)
	for i, topic := range topics {
		g.Go(func() error {
			res, err := p.Stats(gCtx, Query{Topic: topic, Level: level, Codes: codes})
			out[i] = TopicOutcome{Topic: topic, Result: res}
			if err != nil {
				out[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// EstablishmentsResult is the normalized listing of one activity.
type EstablishmentsResult struct {
	BatchID  string   `json:"batchId"`
	NAF      string   `json:"naf"`
	Communes []string `json:"communes"`
	// Missing lists the communes whose search failed.
	Missing []string `json:"missing,omitempty"`
	// Empty lists the communes searched successfully with no establishment.
	Empty   []string               `json:"empty,omitempty"`
	Records []establishment.Record `json:"records"`
}

// Establishments searches the active establishments of naf in each commune,
// flattens the hits and sorts them by display name.
func (p *Pipeline) Establishments(ctx context.Context, naf string, communes []string) (*EstablishmentsResult, error) {
	if err := insee.ValidateNAF(naf); err != nil {
		return nil, err
	}
	if err := insee.ValidateCodes(insee.Commune, communes); err != nil {
		return nil, err
	}

	batch := uuid.New().String()
	log := zap.L().With(
		zap.String("batch_id", batch),
		zap.String("naf", naf),
		zap.Int("communes", len(communes)),
	)

	bodies := p.sirene.FetchFunc(ctx, communes, func(code string) string {
		return p.endpoints.EstablishmentSearch(naf, code)
	})

	res := &EstablishmentsResult{BatchID: batch, NAF: naf, Communes: communes, Records: []establishment.Record{}}
	var raws []establishment.Raw
	for i, body := range bodies {
		if body == nil {
			res.Missing = append(res.Missing, communes[i])
			continue
		}
		page, err := fetcher.DecodeJSONObject[establishment.SearchResponse](bytes.NewReader(body))
		if err != nil {
			log.Error("pipeline: undecodable establishment page", zap.String("code", communes[i]), zap.Error(err))
			res.Missing = append(res.Missing, communes[i])
			continue
		}
		if page.Header.Total > len(page.Etablissements) {
			log.Warn("pipeline: establishment search truncated",
				zap.String("code", communes[i]),
				zap.Int("total", page.Header.Total),
				zap.Int("returned", len(page.Etablissements)),
			)
		}
		if len(page.Etablissements) == 0 {
			res.Empty = append(res.Empty, communes[i])
			continue
		}
		raws = append(raws, page.Etablissements...)
	}

	res.Records = append(res.Records, p.normalizer.NormalizeAll(raws)...)
	establishment.SortByName(res.Records)

	log.Info("pipeline: establishments complete",
		zap.Int("records", len(res.Records)),
		zap.Int("missing", len(res.Missing)),
		zap.Int("empty", len(res.Empty)),
	)
	return res, nil
}

// Boundaries fetches the contour of each commune and merges them into one
// collection. It also returns the codes that have no boundary.
func (p *Pipeline) Boundaries(ctx context.Context, communes []string) (*geojson.FeatureCollection, []string, error) {
	if err := insee.ValidateCodes(insee.Commune, communes); err != nil {
		return nil, nil, err
	}
	bodies := p.geo.FetchAll(ctx, communes, p.endpoints.CommuneBoundaryTemplate())
	fc := mapping.MergeBoundaries(bodies)
	return fc, mapping.MissingBoundaries(fc, communes), nil
}
