package store

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// Meta keys holding the shaping targets.
const (
	MetaTargetBranchCount = "target_branch_count"
	MetaTargetBranchDepth = "target_branch_depth"
)

//go:embed fixture.schema.json
var fixtureSchemaJSON []byte

var (
	fixtureSchemaOnce sync.Once
	fixtureSchema     *jsonschema.Schema
	fixtureSchemaErr  error
)

// ErrInvalidFixture wraps fixture documents that fail schema validation.
type ErrInvalidFixture struct {
	Err error
}

func (e *ErrInvalidFixture) Error() string {
	return fmt.Sprintf("invalid fixture: %v", e.Err)
}

func (e *ErrInvalidFixture) Unwrap() error {
	return e.Err
}

// Fixture is a YAML document of profiles, trees and settings to load.
type Fixture struct {
	Meta struct {
		TargetBranchCount int `yaml:"target_branch_count"`
		TargetBranchDepth int `yaml:"target_branch_depth"`
	} `yaml:"meta"`
	Profiles []FixtureProfile `yaml:"profiles"`
	Trees    []FixtureTree    `yaml:"trees"`
}

// FixtureProfile is a profile entry of a fixture.
type FixtureProfile struct {
	Name              string `yaml:"name"`
	Mothertongue      string `yaml:"mothertongue"`
	LifecycleState    string `yaml:"lifecycle_state"`
	ReadingSpanDone   bool   `yaml:"reading_span_done"`
	QuestionnaireDone bool   `yaml:"questionnaire_done"`
}

// FixtureTree is a tree entry of a fixture; Text is the root.
type FixtureTree struct {
	Language          string            `yaml:"language"`
	Bucket            string            `yaml:"bucket"`
	OtherMothertongue bool              `yaml:"other_mothertongue"`
	Text              string            `yaml:"text"`
	Children          []FixtureSentence `yaml:"children"`
}

// FixtureSentence is a non-root sentence of a fixture tree.
type FixtureSentence struct {
	Text     string            `yaml:"text"`
	Children []FixtureSentence `yaml:"children"`
}

// SeedResult counts what Seed created.
type SeedResult struct {
	Profiles  int
	Trees     int
	Sentences int
}

// ParseFixture reads and validates a YAML fixture document.
func ParseFixture(r io.Reader) (*Fixture, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &ErrInvalidFixture{Err: err}
	}
	if doc == nil {
		doc = map[string]any{}
	}

	// The validator expects JSON values, so round-trip through JSON.
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, &ErrInvalidFixture{Err: err}
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, &ErrInvalidFixture{Err: err}
	}

	schema, err := compiledFixtureSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(inst); err != nil {
		return nil, &ErrInvalidFixture{Err: err}
	}

	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, &ErrInvalidFixture{Err: err}
	}
	return &f, nil
}

// Seed loads f into the store. Profiles whose name already exists are
// skipped; trees are always added.
func (s *Store) Seed(ctx context.Context, f *Fixture) (SeedResult, error) {
	var res SeedResult

	if n := f.Meta.TargetBranchCount; n > 0 {
		if err := s.Meta().Set(ctx, MetaTargetBranchCount, strconv.Itoa(n)); err != nil {
			return res, err
		}
	}
	if n := f.Meta.TargetBranchDepth; n > 0 {
		if err := s.Meta().Set(ctx, MetaTargetBranchDepth, strconv.Itoa(n)); err != nil {
			return res, err
		}
	}

	profiles := s.Profiles()
	for _, fp := range f.Profiles {
		_, err := profiles.ByName(ctx, fp.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return res, err
		}
		p, err := profiles.Create(ctx, fp.Name, fp.Mothertongue)
		if err != nil {
			return res, err
		}
		if fp.LifecycleState != "" {
			p.LifecycleState = fp.LifecycleState
		}
		p.ReadingSpanDone = fp.ReadingSpanDone
		p.QuestionnaireDone = fp.QuestionnaireDone
		if err := profiles.Save(ctx, p); err != nil {
			return res, err
		}
		res.Profiles++
	}

	sentences := s.Sentences()
	for _, ft := range f.Trees {
		root, err := sentences.CreateTree(ctx, RootInput{
			Text:              ft.Text,
			Language:          ft.Language,
			Bucket:            ft.Bucket,
			OtherMothertongue: ft.OtherMothertongue,
		})
		if err != nil {
			return res, err
		}
		res.Trees++
		res.Sentences++
		n, err := seedChildren(ctx, sentences, root, ft.Children)
		res.Sentences += n
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func seedChildren(ctx context.Context, repo *SentenceRepo, parent *Sentence, children []FixtureSentence) (int, error) {
	n := 0
	for _, c := range children {
		child, err := repo.Write(ctx, WriteInput{
			ParentID: parent.ID,
			Text:     c.Text,
			Bucket:   parent.Bucket,
		})
		if err != nil {
			return n, err
		}
		n++
		m, err := seedChildren(ctx, repo, child, c.Children)
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func compiledFixtureSchema() (*jsonschema.Schema, error) {
	fixtureSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(fixtureSchemaJSON))
		if err != nil {
			fixtureSchemaErr = fmt.Errorf("parse fixture schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://fixture.json"
		if err := c.AddResource(url, doc); err != nil {
			fixtureSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		fixtureSchema, fixtureSchemaErr = c.Compile(url)
	})
	return fixtureSchema, fixtureSchemaErr
}
