package rulebook

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/edilcheck/compliance-pipeline/constants"
)

//go:embed rulebook-v1.json
var bundledSnapshot []byte

// Source fetches the live rulebook document. In production this is the
// object store; tests inject fakes.
type Source interface {
	FetchRulebook(ctx context.Context) ([]byte, error)
}

// Catalog serves rule sets with a short TTL cache. On source failure it
// falls back to the last-known-good rulebook, then to the bundled snapshot.
// Lookups never return an error to the caller: unknown docTypes yield nil,
// letting the validator proceed with empty rules.
type Catalog struct {
	source Source
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	current   *Rulebook
	fetchedAt time.Time
}

func NewCatalog(source Source, ttl time.Duration, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Catalog{source: source, ttl: ttl, logger: logger, now: time.Now}
}

// load returns the cached rulebook, refreshing it when the TTL elapsed.
func (c *Catalog) load(ctx context.Context) *Rulebook {
	c.mu.RLock()
	rb := c.current
	fresh := rb != nil && c.now().Sub(c.fetchedAt) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return rb
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// another goroutine may have refreshed while we waited for the lock
	if c.current != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.current
	}

	if c.source != nil {
		if raw, err := c.source.FetchRulebook(ctx); err == nil {
			var parsed Rulebook
			if jerr := json.Unmarshal(raw, &parsed); jerr == nil && len(parsed.Documents) > 0 {
				c.current = &parsed
				c.fetchedAt = c.now()
				c.logger.Info("rulebook.loaded",
					"schema_version", parsed.SchemaVersion,
					"doc_types", len(parsed.Documents),
				)
				return c.current
			} else {
				c.logger.Warn("rulebook.parse_failed", "error", jerr)
			}
		} else {
			c.logger.Warn("rulebook.fetch_failed", "error", err)
		}
	}

	// serve last-known-good past its TTL rather than failing
	if c.current != nil {
		c.fetchedAt = c.now()
		c.logger.Warn("rulebook.serving_stale", "schema_version", c.current.SchemaVersion)
		return c.current
	}

	var snapshot Rulebook
	if err := json.Unmarshal(bundledSnapshot, &snapshot); err != nil {
		// the snapshot ships with the binary; failing to parse it is a build defect
		c.logger.Error("rulebook.snapshot_corrupt", "error", err)
		c.current = &Rulebook{SchemaVersion: "none"}
	} else {
		c.current = &snapshot
		c.logger.Warn("rulebook.serving_bundled_snapshot", "schema_version", snapshot.SchemaVersion)
	}
	c.fetchedAt = c.now()
	return c.current
}

// Invalidate drops the cache so the next lookup refetches.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

// RulesFor returns the rule set for docType, or nil when the type is
// unknown. Matching is exact first, then normalized (case, underscore and
// space insensitive) to tolerate classifier naming drift.
func (c *Catalog) RulesFor(ctx context.Context, docType string) *RuleSet {
	if docType == "" {
		return nil
	}
	rb := c.load(ctx)

	for i := range rb.Documents {
		if rb.Documents[i].DocType == docType {
			return &rb.Documents[i]
		}
	}

	want := constants.NormalizeDocType(docType)
	for i := range rb.Documents {
		if constants.NormalizeDocType(rb.Documents[i].DocType) == want {
			return &rb.Documents[i]
		}
	}
	c.logger.Warn("rulebook.unknown_doc_type", "doc_type", docType)
	return nil
}

// RequiredPIIFields returns the union of PII fields any check for docType
// declares it needs. An empty result means the validator must redact.
func (c *Catalog) RequiredPIIFields(ctx context.Context, docType string) []string {
	rs := c.RulesFor(ctx, docType)
	if rs == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var fields []string
	for _, check := range rs.Checks {
		for _, f := range check.RequiresPII {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				fields = append(fields, f)
			}
		}
	}
	return fields
}

// DocTypes lists every document type in the active rulebook.
func (c *Catalog) DocTypes(ctx context.Context) []string {
	rb := c.load(ctx)
	out := make([]string, 0, len(rb.Documents))
	for _, d := range rb.Documents {
		out = append(out, d.DocType)
	}
	return out
}

// DisplayName resolves the human label for docType, falling back to the
// raw type string.
func (c *Catalog) DisplayName(ctx context.Context, docType string) string {
	if rs := c.RulesFor(ctx, docType); rs != nil && rs.DisplayName != "" {
		return rs.DisplayName
	}
	return docType
}

// SchemaVersion reports the active rulebook version, for audit logging.
func (c *Catalog) SchemaVersion(ctx context.Context) string {
	return c.load(ctx).SchemaVersion
}

// String implements fmt.Stringer for debug logs.
func (c *Catalog) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return "rulebook.Catalog(empty)"
	}
	return fmt.Sprintf("rulebook.Catalog(v%s, %d types)", c.current.SchemaVersion, len(c.current.Documents))
}
