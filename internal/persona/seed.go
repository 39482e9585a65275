package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// seedFields maps the keys of the persona export onto Persona fields.
var seedFields = map[string]func(p *Persona, raw json.RawMessage) error{
	"이름":         stringField(func(p *Persona) *string { return &p.Name }),
	"마이크로세그먼트":   stringField(func(p *Persona) *string { return &p.Segment }),
	"연령대":        stringField(func(p *Persona) *string { return &p.AgeGroup }),
	"성별":         stringField(func(p *Persona) *string { return &p.Gender }),
	"직업":         stringField(func(p *Persona) *string { return &p.Job }),
	"가족구성":       stringField(func(p *Persona) *string { return &p.FamilyStructure }),
	"고객가치(RFM)":  stringField(func(p *Persona) *string { return &p.CustomerValue }),
	"구매패턴":       listField(func(p *Persona) *StringList { return &p.PurchasePattern }),
	"라이프스타일":     listField(func(p *Persona) *StringList { return &p.Lifestyle }),
	"페르소나 요약 태그": stringField(func(p *Persona) *string { return &p.SummaryTag }),
}

func stringField(target func(*Persona) *string) func(*Persona, json.RawMessage) error {
	return func(p *Persona, raw json.RawMessage) error {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			*target(p) = strings.TrimSpace(s)
			return nil
		}
		// Some exports store scalar columns as lists.
		var list StringList
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		*target(p) = strings.Join(list, ", ")
		return nil
	}
}

func listField(target func(*Persona) *StringList) func(*Persona, json.RawMessage) error {
	return func(p *Persona, raw json.RawMessage) error {
		return json.Unmarshal(raw, target(p))
	}
}

// ParseSeed decodes a persona export: a JSON array of objects keyed by the
// Korean column names. Unknown keys are ignored.
func ParseSeed(r io.Reader) ([]Persona, error) {
	var rows []map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("persona: decode seed: %w", err)
	}

	out := make([]Persona, 0, len(rows))
	for i, row := range rows {
		var p Persona
		for key, raw := range row {
			apply, ok := seedFields[key]
			if !ok {
				continue
			}
			if err := apply(&p, raw); err != nil {
				return nil, fmt.Errorf("persona: seed row %d field %q: %w", i, key, err)
			}
		}
		if p.Name == "" && p.SummaryTag == "" {
			return nil, fmt.Errorf("persona: seed row %d: %w", i, ErrInvalidPersona)
		}
		out = append(out, p)
	}
	return out, nil
}

// S3GetAPI is the subset of the S3 client used to fetch seed files.
type S3GetAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// SeedLoader opens seed files from the local disk or from s3://bucket/key.
type SeedLoader struct {
	s3 S3GetAPI
}

// NewSeedLoader returns a loader; s3Client may be nil when only local files are used.
func NewSeedLoader(s3Client S3GetAPI) *SeedLoader {
	return &SeedLoader{s3: s3Client}
}

// Load reads and parses the seed at source.
func (l *SeedLoader) Load(ctx context.Context, source string) ([]Persona, error) {
	rc, err := l.open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ParseSeed(rc)
}

func (l *SeedLoader) open(ctx context.Context, source string) (io.ReadCloser, error) {
	bucket, key, isS3 := parseS3URI(source)
	if !isS3 {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("persona: open seed %s: %w", source, err)
		}
		return f, nil
	}
	if l.s3 == nil {
		return nil, fmt.Errorf("persona: s3 client not configured for %s", source)
	}
	out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("persona: s3 get %s: %w", source, err)
	}
	return out.Body, nil
}

func parseS3URI(source string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(source, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// Import loads source and stores every persona through repo.
func Import(ctx context.Context, loader *SeedLoader, repo Repository, source string) (int, error) {
	personas, err := loader.Load(ctx, source)
	if err != nil {
		return 0, err
	}
	return repo.BulkCreate(ctx, personas)
}
